package utils

import (
	"os"
	"unsafe"

	"golang.org/x/crypto/sha3"
)

///////////////////////////////////////////////////////////////////////////////
// Conversion Utilities — Zero-Alloc Casts
///////////////////////////////////////////////////////////////////////////////

// B2s converts a []byte to a string **without** allocation.
// ⚠️ Caller must ensure the input slice remains valid and unchanged.
// Used for human-readable print paths and token parsing.
//
//go:nosplit
//go:inline
func B2s(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// PrintWarning writes a message straight to stderr. No formatting, no
// allocation beyond the caller's concatenation.
//
//go:nosplit
func PrintWarning(msg string) {
	os.Stderr.WriteString(msg)
}

///////////////////////////////////////////////////////////////////////////////
// Token Micro-Scanners — For Netlist Text Parsing
///////////////////////////////////////////////////////////////////////////////

// NextToken returns the [start,end) span of the next whitespace-delimited
// token at or after index i, or (-1,-1) when the line is exhausted.
//
//go:nosplit
//go:inline
func NextToken(b []byte, i int) (int, int) {
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\r') {
		i++
	}
	if i >= len(b) {
		return -1, -1
	}
	j := i
	for j < len(b) && b[j] != ' ' && b[j] != '\t' && b[j] != '\r' {
		j++
	}
	return i, j
}

// CountTokens returns the number of whitespace-delimited tokens in b.
//
//go:nosplit
//go:inline
func CountTokens(b []byte) int {
	n, i := 0, 0
	for {
		s, e := NextToken(b, i)
		if s < 0 {
			return n
		}
		n++
		i = e
	}
}

// ParseDecU64 parses a non-negative decimal integer, stopping at the first
// non-digit. Faster than strconv for the short ids netlist files carry.
//
//go:nosplit
//go:inline
func ParseDecU64(b []byte) uint64 {
	var u uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		u = u*10 + uint64(c-'0')
	}
	return u
}

///////////////////////////////////////////////////////////////////////////////
// Hash & Mixers — Seed Derivation & Duplicate Detection
///////////////////////////////////////////////////////////////////////////////

// Mix64 applies a Murmur3-style avalanche to a 64-bit value.
//
//go:nosplit
//go:inline
func Mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// DeriveSeed maps (seed, stage, worker) onto an independent sub-seed via
// SHA3-256 so stochastic stages never share generator state. Deterministic
// across runs and platforms.
func DeriveSeed(seed int64, stage string, worker int) int64 {
	var buf [16]byte
	u := uint64(seed)
	w := uint64(worker)
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> (8 * i))
		buf[8+i] = byte(w >> (8 * i))
	}
	h := sha3.New256()
	h.Write(buf[:])
	h.Write([]byte(stage))
	sum := h.Sum(nil)
	var out uint64
	for i := 0; i < 8; i++ {
		out |= uint64(sum[i]) << (8 * i)
	}
	// Keep the sign bit clear so the result feeds rand.NewSource directly.
	return int64(out &^ (1 << 63))
}
