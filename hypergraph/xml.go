// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - XML Netlist Ingestion
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: IO / Netlist / Block-Definition Readers
//
// Description:
//   Primary input path. An <ios> document maps IO types onto signal reach, a
//   <netlist> document lists two-block nets with a type and a bandwidth, and
//   a plain-text block-definition file supplies per-block area weights.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package hypergraph

import (
	"bufio"
	"encoding/xml"
	"errors"
	"os"
	"strconv"

	"chipletpart/debug"
	"chipletpart/utils"
)

var (
	ErrNoIoFile  = errors.New("hypergraph: no io definitions file specified")
	ErrNoNetlist = errors.New("hypergraph: netlist document has no nets")
)

type xmlIoDoc struct {
	XMLName xml.Name   `xml:"ios"`
	Ios     []xmlIoDef `xml:"io"`
}

type xmlIoDef struct {
	Type  string  `xml:"type,attr"`
	Reach float64 `xml:"reach,attr"`
}

type xmlNetlistDoc struct {
	XMLName xml.Name `xml:"netlist"`
	Nets    []xmlNet `xml:"net"`
}

type xmlNet struct {
	Type      string  `xml:"type,attr"`
	Block0    string  `xml:"block0,attr"`
	Block1    string  `xml:"block1,attr"`
	Bandwidth float64 `xml:"bandwidth,attr"`
}

// ReadIoDefinitions parses the <ios> document into a type→reach table.
func ReadIoDefinitions(path string) (map[string]float32, error) {
	if path == "" {
		return nil, ErrNoIoFile
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc xmlIoDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	table := make(map[string]float32, len(doc.Ios))
	for _, io := range doc.Ios {
		table[io.Type] = float32(io.Reach)
	}
	return table, nil
}

// ReadBlockDefinitions parses `name area power tech` lines into a name→area
// table. Malformed lines are skipped, matching the tolerant legacy reader.
func ReadBlockDefinitions(path string) (map[string]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	areas := make(map[string]float32)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		s0, e0 := utils.NextToken(line, 0)
		if s0 < 0 {
			continue
		}
		s1, e1 := utils.NextToken(line, e0)
		if s1 < 0 {
			continue
		}
		area, err := strconv.ParseFloat(utils.B2s(line[s1:e1]), 32)
		if err != nil {
			continue
		}
		areas[string(line[s0:e0])] = float32(area)
	}
	return areas, sc.Err()
}

// ReadXMLNetlist builds the block-level hypergraph from the three primary
// input files. Vertex ids are assigned in first-appearance order; the
// returned name slice maps ids back to block names. Nets with a type missing
// from the IO table get reach −1; blocks missing from the definitions file
// get unit area.
func ReadXMLNetlist(ioFile, netlistFile, blocksFile string) (*Hypergraph, []string, error) {
	ioTable, err := ReadIoDefinitions(ioFile)
	if err != nil {
		return nil, nil, err
	}

	raw, err := os.ReadFile(netlistFile)
	if err != nil {
		return nil, nil, err
	}
	var doc xmlNetlistDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, err
	}
	if len(doc.Nets) == 0 {
		return nil, nil, ErrNoNetlist
	}

	nameToIndex := make(map[string]int)
	var names []string
	index := func(name string) int {
		if id, ok := nameToIndex[name]; ok {
			return id
		}
		id := len(names)
		nameToIndex[name] = id
		names = append(names, name)
		return id
	}

	hyperedges := make([][]int, 0, len(doc.Nets))
	edgeWeights := make([][]float32, 0, len(doc.Nets))
	reaches := make([]float32, 0, len(doc.Nets))
	ioSizes := make([]float32, 0, len(doc.Nets))

	for _, net := range doc.Nets {
		reach := float32(-1.0)
		if r, ok := ioTable[net.Type]; ok {
			reach = r
		}
		reaches = append(reaches, reach)
		ioSizes = append(ioSizes, 1.0)

		bandwidth := float32(net.Bandwidth)
		if bandwidth == 0 {
			bandwidth = 1.0
		}
		edgeWeights = append(edgeWeights, []float32{bandwidth})
		hyperedges = append(hyperedges, []int{index(net.Block0), index(net.Block1)})
	}

	areas, err := ReadBlockDefinitions(blocksFile)
	if err != nil {
		return nil, nil, err
	}
	vertexWeights := make([][]float32, len(names))
	for i, name := range names {
		area := float32(1.0)
		if a, ok := areas[name]; ok {
			area = a
		}
		vertexWeights[i] = []float32{area}
	}

	h, err := New(1, 1, hyperedges, vertexWeights, edgeWeights, reaches, ioSizes)
	if err != nil {
		return nil, nil, err
	}
	debug.DropMessage("hypergraph", "built "+strconv.Itoa(h.NumVertices())+
		" blocks / "+strconv.Itoa(h.NumHyperedges())+" nets from xml netlist")
	return h, names, nil
}

// WriteVertexMap writes the 1-based id → block-name mapping produced by
// ReadXMLNetlist, one pair per line.
func WriteVertexMap(path string, names []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for i, name := range names {
		w.WriteString(strconv.Itoa(i + 1))
		w.WriteByte(' ')
		w.WriteString(name)
		w.WriteByte('\n')
	}
	return w.Flush()
}
