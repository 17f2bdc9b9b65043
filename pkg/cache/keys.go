package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
)

// Keyer builds cache keys for generation artifacts.
type Keyer interface {
	// LayerKey identifies optimized layer counts for a mesh hash and the
	// estimator and optimizer parameters.
	LayerKey(inputHash string, params any) string
	// GridKey identifies a sigma grid built from the layer counts stored
	// under layerKey with the given builder parameters.
	GridKey(layerKey string, params any) string
}

// DefaultKeyer produces "layers:<sha256>" and "grid:<sha256>" keys over
// the JSON encoding of the key parts.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) LayerKey(inputHash string, params any) string {
	return digestKey("layers", inputHash, params)
}

func (DefaultKeyer) GridKey(layerKey string, params any) string {
	return digestKey("grid", layerKey, params)
}

// scopedKeyer prefixes every key of an inner keyer, so several projects
// can share one Redis.
type scopedKeyer struct {
	Keyer
	prefix string
}

// NewScopedKeyer prefixes the keys of inner, or of a DefaultKeyer when
// inner is nil. An empty prefix returns inner unchanged.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = DefaultKeyer{}
	}
	if prefix == "" {
		return inner
	}
	return scopedKeyer{Keyer: inner, prefix: prefix}
}

func (k scopedKeyer) LayerKey(inputHash string, params any) string {
	return k.prefix + k.Keyer.LayerKey(inputHash, params)
}

func (k scopedKeyer) GridKey(layerKey string, params any) string {
	return k.prefix + k.Keyer.GridKey(layerKey, params)
}

func digestKey(kind string, parts ...any) string {
	data, err := json.Marshal(parts)
	if err != nil {
		// Unencodable params (NaN, channels) never hit.
		data = []byte(err.Error())
	}
	return kind + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Hasher accumulates numeric arrays for [Hash]. Floats are taken by their
// IEEE-754 bits, so signed zeros differ, and each slice is length-prefixed.
type Hasher struct {
	buf []byte
}

func (h *Hasher) word(v uint64) {
	h.buf = binary.LittleEndian.AppendUint64(h.buf, v)
}

// Floats appends v.
func (h *Hasher) Floats(v []float64) *Hasher {
	h.word(uint64(len(v)))
	for _, x := range v {
		h.word(math.Float64bits(x))
	}
	return h
}

// Ints appends v.
func (h *Hasher) Ints(v []int) *Hasher {
	h.word(uint64(len(v)))
	for _, x := range v {
		h.word(uint64(int64(x)))
	}
	return h
}

// Sum returns the hex digest of everything appended so far.
func (h *Hasher) Sum() string { return Hash(h.buf) }
