package vgrid

import (
	"encoding/json"
	"io"
	"os"
)

// Summary is the per-run JSON report written next to vgrid.in.
type Summary struct {
	RunID string `json:"run_id"`
	Nodes int    `json:"nodes"`
	NVrt  int    `json:"nvrt"`

	Objective ObjectiveSummary `json:"objective"`

	NLayer0       []int `json:"nlayer0"`
	NLayer        []int `json:"nlayer"`
	NLayerRevised []int `json:"nlayer_revised"`

	Linear    int `json:"linear_nodes"`
	Collapsed int `json:"collapsed_nodes"`
	Flattened int `json:"flattened_nodes"`
}

// ObjectiveSummary reports the optimizer's effect.
type ObjectiveSummary struct {
	Initial    float64 `json:"initial"`
	Final      float64 `json:"final"`
	Iterations int     `json:"iterations"`
	Changeable int     `json:"changeable_nodes"`
	Eligible   int     `json:"eligible_edges"`
}

// WriteSummaryJSON writes s as indented JSON.
func WriteSummaryJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteSummaryFile writes s to path as indented JSON.
func WriteSummaryFile(path string, s *Summary) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteSummaryJSON(out, s)
}
