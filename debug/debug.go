// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go — Cold-path logging helper (zero-alloc)
//
// Purpose:
//   - Logs infrequent error and stage-transition paths without heap pressure.
//   - Used only in cold paths: input failures, degraded-mode notices,
//     orchestration progress.
//
// Notes:
//   - Avoids fmt.Sprintf to minimize footprint and latency.
//   - No alloc, no interfaces beyond error.
//
// ⚠️ Never invoke in hot loops — use only in diagnostics.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import "chipletpart/utils"

// DropError logs error messages with a custom alloc-free print strategy.
// It writes directly to stderr, bypassing any heap allocations.
//
//go:nosplit
//go:inline
func DropError(prefix string, err error) {
	if err != nil {
		msg := prefix + ": " + err.Error() + "\n"
		utils.PrintWarning(msg)
	} else {
		msg := prefix + "\n"
		utils.PrintWarning(msg)
	}
}

// DropMessage logs debug messages with a zero-allocation print strategy.
// Used for stage transitions, candidate filtering decisions, and other
// infrequent events.
//
//go:nosplit
//go:inline
func DropMessage(prefix, message string) {
	msg := prefix + ": " + message + "\n"
	utils.PrintWarning(msg)
}
