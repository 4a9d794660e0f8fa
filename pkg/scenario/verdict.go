// Package scenario implements the turn-taking orchestration core: verdict
// classification, turn routing, and the bounded conversation loops that
// drive the poetry and mystery collaborations.
package scenario

import "strings"

// Verdict is the closed set of outcomes a classifier can produce.
type Verdict int8

const (
	// VerdictApproved means the critic accepted the poem.
	VerdictApproved Verdict = iota
	// VerdictRevise means the poem needs another pass.
	VerdictRevise
	// VerdictSolved means both investigators agree on the solution.
	VerdictSolved
	// VerdictUnsolved means the verification reply did not concur.
	VerdictUnsolved
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictApproved:
		return "approved"
	case VerdictRevise:
		return "revise"
	case VerdictSolved:
		return "solved"
	case VerdictUnsolved:
		return "unsolved"
	default:
		return "unknown"
	}
}

// ClassifyPoetry maps a critic reply to Approved or Revise by its leading
// keyword, case-insensitively. Anything unrecognized defaults to Revise;
// recognized reports whether a keyword actually matched so the caller can
// emit a diagnostic. The function itself is pure and never fails.
func ClassifyPoetry(text string) (verdict Verdict, recognized bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.HasPrefix(normalized, "approved"):
		return VerdictApproved, true
	case strings.HasPrefix(normalized, "revise"):
		return VerdictRevise, true
	default:
		return VerdictRevise, false
	}
}

// ProposesSolution reports whether an investigator reply declares a solution.
// This is a deliberate substring heuristic: an agent merely discussing the
// word can trip it, which is a documented accuracy limitation.
func ProposesSolution(text string) bool {
	return strings.Contains(strings.ToUpper(text), "SOLUTION:")
}

// ClassifyVerification maps a verification reply to Solved or Unsolved.
// Any reply containing "concur" (case-insensitive) counts as agreement.
func ClassifyVerification(text string) Verdict {
	if strings.Contains(strings.ToUpper(text), "CONCUR") {
		return VerdictSolved
	}
	return VerdictUnsolved
}
