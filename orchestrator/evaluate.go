// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Partition Evaluation
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: Evaluation Mode
//
// Description:
//   Scores an existing partition file: floorplans it at full effort, reports
//   the cost-model score and whether the placement meets every reach
//   constraint. No refinement happens here.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package orchestrator

import (
	"bufio"
	"errors"
	"os"
	"strconv"

	"chipletpart/constants"
	"chipletpart/costmodel"
	"chipletpart/refiner"
	"chipletpart/utils"
)

var (
	ErrPartitionSize = errors.New("orchestrator: partition file does not cover every vertex")
	ErrNegativeID    = errors.New("orchestrator: partition file contains a negative id")
)

// ReadPartitionFile parses one partition id per line. Negative ids reject
// the whole file.
func ReadPartitionFile(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var partition []int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		s, e := utils.NextToken(line, 0)
		if s < 0 {
			continue
		}
		id, err := strconv.Atoi(utils.B2s(line[s:e]))
		if err != nil {
			return nil, err
		}
		if id < 0 {
			return nil, ErrNegativeID
		}
		partition = append(partition, id)
	}
	return partition, sc.Err()
}

// EvaluatePartition floorplans and scores the partition stored at path.
func (o *Orchestrator) EvaluatePartition(path string) (*Result, error) {
	partition, err := ReadPartitionFile(path)
	if err != nil {
		return nil, err
	}
	if len(partition) != o.hg.NumVertices() {
		return nil, ErrPartitionSize
	}
	numParts := 0
	for _, p := range partition {
		if p+1 > numParts {
			numParts = p + 1
		}
	}

	maxMoves, iters, boundary := o.effort(true)
	evaluator := costmodel.NewCutEvaluator(o.hg)
	ref := refiner.New(numParts, iters, maxMoves, evaluator,
		utils.DeriveSeed(o.cfg.Seed, "evaluate", 0))
	ref.SetBoundaryFlag(boundary)
	ref.SetSeparation(o.cfg.Separation)
	ref.SetTechArray([]string{o.cfg.Tech})

	aspects, xs, ys, valid := ref.RunFloorplanner(o.hg, partition,
		10000, constants.NumPerturbPerStep, 1.0)

	return &Result{
		Partition:    partition,
		NumParts:     numParts,
		Cost:         ref.GetCostFromScratch(partition),
		Valid:        valid,
		AspectRatios: aspects,
		XLocs:        xs,
		YLocs:        ys,
		Origin:       "evaluated",
	}, nil
}
