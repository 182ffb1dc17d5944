// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Run Report
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: JSON Run Report
//
// Description:
//   Serializes the winning partition and the refined candidate field to a
//   JSON document for downstream tooling.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package orchestrator

import (
	"os"
	"time"

	"github.com/sugawarayuuta/sonnet"
)

type reportCandidate struct {
	Origin      string  `json:"origin"`
	NumParts    int     `json:"num_parts"`
	InitialCost float32 `json:"initial_cost"`
	Cost        float32 `json:"cost"`
}

type runReport struct {
	CreatedAt  string            `json:"created_at"`
	Netlist    string            `json:"netlist"`
	Tech       string            `json:"tech"`
	Seed       int64             `json:"seed"`
	UBFactor   float32           `json:"ub_factor"`
	NumParts   int               `json:"num_parts"`
	Cost       float32           `json:"cost"`
	Valid      bool              `json:"valid"`
	Origin     string            `json:"origin"`
	Partition  []int             `json:"partition"`
	Aspect     []float32         `json:"aspect_ratios"`
	XLocs      []float32         `json:"x_locations"`
	YLocs      []float32         `json:"y_locations"`
	Candidates []reportCandidate `json:"candidates"`
}

// WriteReport dumps the run outcome to path as JSON.
func WriteReport(path string, cfg Config, best *Result, refined []Result) error {
	report := runReport{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Netlist:   cfg.NetlistFile,
		Tech:      cfg.Tech,
		Seed:      cfg.Seed,
		UBFactor:  cfg.UBFactor,
		NumParts:  best.NumParts,
		Cost:      best.Cost,
		Valid:     best.Valid,
		Origin:    best.Origin,
		Partition: best.Partition,
		Aspect:    best.AspectRatios,
		XLocs:     best.XLocs,
		YLocs:     best.YLocs,
	}
	for _, r := range refined {
		report.Candidates = append(report.Candidates, reportCandidate{
			Origin:      r.Origin,
			NumParts:    r.NumParts,
			InitialCost: r.InitialCost,
			Cost:        r.Cost,
		})
	}
	raw, err := sonnet.Marshal(&report)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
