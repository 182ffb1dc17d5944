// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Hypergraph Text I/O
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: hMETIS-Style Netlist Reader / Writer
//
// Description:
//   Parses the legacy line-oriented netlist format and writes the coarsened
//   chiplet-level netlist back in the same format. Parsing works directly on
//   byte spans — no Split/Fields allocations on the per-line hot path.
//
// Format:
//   line 1: num_hyperedges num_vertices [flags]
//           flags%10==1 → hyperedge lines carry weight/reach/io_size
//           flags>=10   → vertex weight lines follow the hyperedges
//   hyperedge line (weighted): weight reach io_size v1 v2 ...  (1-based ids)
//   duplicate hyperedges (order-independent mixed-id hash over members) are dropped
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package hypergraph

import (
	"bufio"
	"errors"
	"os"
	"strconv"

	"chipletpart/utils"
)

var (
	ErrEmptyFile  = errors.New("hypergraph: empty netlist file")
	ErrBadHeader  = errors.New("hypergraph: malformed netlist header")
	ErrShortFile  = errors.New("hypergraph: netlist file ended early")
	ErrBadNetLine = errors.New("hypergraph: malformed hyperedge line")
)

// splitFloats parses every whitespace-delimited token on a line as float32.
func splitFloats(line []byte, out []float32) ([]float32, error) {
	i := 0
	for {
		s, e := utils.NextToken(line, i)
		if s < 0 {
			return out, nil
		}
		f, err := strconv.ParseFloat(utils.B2s(line[s:e]), 32)
		if err != nil {
			return nil, err
		}
		out = append(out, float32(f))
		i = e
	}
}

// splitInts parses every token on a line as int.
func splitInts(line []byte, out []int) []int {
	i := 0
	for {
		s, e := utils.NextToken(line, i)
		if s < 0 {
			return out
		}
		out = append(out, int(utils.ParseDecU64(line[s:e])))
		i = e
	}
}

// ReadNetlistFile parses an hMETIS-style netlist into a Hypergraph.
// Unweighted inputs receive unit weight vectors of the given dimensions and
// reach/io-size defaults of the caller's choosing.
func ReadNetlistFile(path string, vertexDims, edgeDims int, defaultReach, defaultIoSize float32) (*Hypergraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<22)
	if !sc.Scan() {
		return nil, ErrEmptyFile
	}
	header := splitInts(sc.Bytes(), nil)
	if len(header) < 2 {
		return nil, ErrBadHeader
	}
	numEdges, numVertices := header[0], header[1]
	edgeWeightFlag, vertexWeightFlag := false, false
	if len(header) == 3 {
		edgeWeightFlag = header[2]%10 == 1
		vertexWeightFlag = header[2] >= 10
	}

	hyperedges := make([][]int, 0, numEdges)
	edgeWeights := make([][]float32, 0, numEdges)
	reaches := make([]float32, 0, numEdges)
	ioSizes := make([]float32, 0, numEdges)
	distinct := make(map[uint64]struct{}, numEdges)

	for i := 0; i < numEdges; i++ {
		if !sc.Scan() {
			return nil, ErrShortFile
		}
		line := sc.Bytes()
		if edgeWeightFlag {
			vals, err := splitFloats(line, nil)
			if err != nil || len(vals) < 4 {
				return nil, ErrBadNetLine
			}
			members := make([]int, 0, len(vals)-3)
			var hash uint64
			for _, v := range vals[3:] {
				id := int(v) - 1 // file ids are 1-based
				members = append(members, id)
				hash += utils.Mix64(uint64(id))
			}
			if _, dup := distinct[hash]; dup {
				continue
			}
			distinct[hash] = struct{}{}
			edgeWeights = append(edgeWeights, []float32{vals[0]})
			reaches = append(reaches, vals[1])
			ioSizes = append(ioSizes, vals[2])
			hyperedges = append(hyperedges, members)
		} else {
			members := splitInts(line, nil)
			if len(members) == 0 {
				return nil, ErrBadNetLine
			}
			var hash uint64
			for j := range members {
				members[j]--
				hash += utils.Mix64(uint64(members[j]))
			}
			if _, dup := distinct[hash]; dup {
				continue
			}
			distinct[hash] = struct{}{}
			w := make([]float32, edgeDims)
			for j := range w {
				w[j] = 1.0
			}
			edgeWeights = append(edgeWeights, w)
			reaches = append(reaches, defaultReach)
			ioSizes = append(ioSizes, defaultIoSize)
			hyperedges = append(hyperedges, members)
		}
	}

	vertexWeights := make([][]float32, 0, numVertices)
	for i := 0; i < numVertices; i++ {
		if vertexWeightFlag {
			if !sc.Scan() {
				return nil, ErrShortFile
			}
			w, err := splitFloats(sc.Bytes(), nil)
			if err != nil {
				return nil, ErrBadNetLine
			}
			vertexWeights = append(vertexWeights, w)
		} else {
			w := make([]float32, vertexDims)
			for j := range w {
				w[j] = 1.0
			}
			vertexWeights = append(vertexWeights, w)
		}
	}

	return New(vertexDims, edgeDims, hyperedges, vertexWeights, edgeWeights, reaches, ioSizes)
}

// WriteNetlistFile renders the hypergraph back in the weighted text format,
// one hyperedge per line followed by one first-dimension weight per vertex.
func (h *Hypergraph) WriteNetlistFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.WriteString(strconv.Itoa(h.numHyperedges))
	w.WriteString("  ")
	w.WriteString(strconv.Itoa(h.numVertices))
	w.WriteString(" 11\n")

	for e := 0; e < h.numHyperedges; e++ {
		weight := float32(1.0)
		if len(h.edgeWeights[e]) > 0 {
			weight = h.edgeWeights[e][0]
		}
		w.WriteString(strconv.FormatFloat(float64(weight), 'g', -1, 32))
		w.WriteByte(' ')
		w.WriteString(strconv.FormatFloat(float64(h.reaches[e]), 'g', -1, 32))
		w.WriteByte(' ')
		w.WriteString(strconv.FormatFloat(float64(h.ioSizes[e]), 'g', -1, 32))
		for _, v := range h.Vertices(e) {
			w.WriteByte(' ')
			w.WriteString(strconv.Itoa(v + 1))
		}
		w.WriteByte('\n')
	}
	for v := 0; v < h.numVertices; v++ {
		weight := float32(0)
		if len(h.vertexWeights[v]) > 0 {
			weight = h.vertexWeights[v][0]
		}
		w.WriteString(strconv.FormatFloat(float64(weight), 'g', -1, 32))
		w.WriteByte('\n')
	}
	return w.Flush()
}
