package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/lscgrid/pkg/lsc2"
	"github.com/matzehuels/lscgrid/pkg/lsc2/tabu"
)

// layerPayload is the cached result of the estimate and optimize stages.
type layerPayload struct {
	NLayer0   []int        `json:"nlayer0"`
	NLayer    []int        `json:"nlayer"`
	Optimizer *tabu.Result `json:"optimizer,omitempty"`
}

// gridPayload is the cached result of the build stage. Only the valid
// levels of each node are stored.
type gridPayload struct {
	Levels    [][]float64 `json:"levels"`
	Linear    int         `json:"linear"`
	Collapsed int         `json:"collapsed"`
	Flattened int         `json:"flattened"`
}

func encodeLayers(p *layerPayload) ([]byte, error) {
	return json.Marshal(p)
}

func decodeLayers(data []byte, nodes int) (*layerPayload, error) {
	var p layerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if len(p.NLayer0) != nodes || len(p.NLayer) != nodes {
		return nil, fmt.Errorf("cached layer counts cover %d nodes, want %d", len(p.NLayer), nodes)
	}
	return &p, nil
}

func encodeGrid(out *lsc2.BuildOutput) ([]byte, error) {
	f := out.Sigma
	p := gridPayload{
		Levels:    make([][]float64, f.NodeCount()),
		Linear:    out.Linear,
		Collapsed: out.Collapsed,
		Flattened: out.Flattened,
	}
	for i := range p.Levels {
		p.Levels[i] = f.Levels(i)
	}
	return json.Marshal(p)
}

func decodeGrid(data []byte, nodes int) (*lsc2.BuildOutput, error) {
	var p gridPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if len(p.Levels) != nodes {
		return nil, fmt.Errorf("cached grid covers %d nodes, want %d", len(p.Levels), nodes)
	}

	nlevel := make([]int, nodes)
	for i, lv := range p.Levels {
		nlevel[i] = len(lv)
	}
	f, err := lsc2.NewSigmaField(nlevel)
	if err != nil {
		return nil, err
	}
	for i, lv := range p.Levels {
		if err := f.SetLevels(i, lv); err != nil {
			return nil, err
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &lsc2.BuildOutput{
		Sigma:     f,
		Linear:    p.Linear,
		Collapsed: p.Collapsed,
		Flattened: p.Flattened,
	}, nil
}
