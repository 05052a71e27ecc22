package loader

import "strings"

// isConstraintViolation distinguishes a database constraint error (one the
// fast path should recover from by falling back to the slow path) from a
// genuine driver/connection error (one that should abort the load), per
// the fast-path fallback decision. modernc.org/sqlite and
// lib/pq report constraint failures as plain error strings rather than a
// typed error, so this matches on the vocabulary both drivers use.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"):
		return true
	case strings.Contains(msg, "foreign key constraint"):
		return true
	case strings.Contains(msg, "check constraint"):
		return true
	case strings.Contains(msg, "not null constraint"):
		return true
	case strings.Contains(msg, "duplicate key value"):
		return true
	case strings.Contains(msg, "violates"):
		return true
	default:
		return false
	}
}
