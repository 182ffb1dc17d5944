// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Run Persistence
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: SQLite Run Store
//
// Description:
//   Appends one row per completed run so sweeps across seeds and chiplet
//   counts can be compared after the fact. The partition itself is stored
//   as a space-separated id list.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package orchestrator

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const runsSchema = `CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at INTEGER NOT NULL,
	netlist TEXT NOT NULL,
	seed INTEGER NOT NULL,
	num_parts INTEGER NOT NULL,
	cost REAL NOT NULL,
	valid INTEGER NOT NULL,
	origin TEXT NOT NULL,
	partition TEXT NOT NULL
)`

// SaveRun appends one run record, creating the table on first use.
func SaveRun(dbPath, netlist string, seed int64, r *Result) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(runsSchema); err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO runs(created_at, netlist, seed, num_parts, cost, valid, origin, partition)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), netlist, seed, r.NumParts, r.Cost, r.Valid, r.Origin,
		encodePartition(r.Partition))
	return err
}

// LoadBestRun returns the lowest-cost record for a netlist, or sql.ErrNoRows.
func LoadBestRun(dbPath, netlist string) (*Result, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if _, err := db.Exec(runsSchema); err != nil {
		return nil, err
	}
	row := db.QueryRow(
		`SELECT num_parts, cost, valid, origin, partition FROM runs
		 WHERE netlist = ? ORDER BY cost ASC LIMIT 1`, netlist)

	var r Result
	var encoded string
	if err := row.Scan(&r.NumParts, &r.Cost, &r.Valid, &r.Origin, &encoded); err != nil {
		return nil, err
	}
	partition, err := decodePartition(encoded)
	if err != nil {
		return nil, err
	}
	r.Partition = partition
	return &r, nil
}

func encodePartition(partition []int) string {
	var b strings.Builder
	for i, p := range partition {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}

func decodePartition(encoded string) ([]int, error) {
	if encoded == "" {
		return nil, nil
	}
	fields := strings.Fields(encoded)
	partition := make([]int, len(fields))
	for i, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		partition[i] = id
	}
	return partition, nil
}
