package scenario

// Terminal is the state a scenario run ends in.
type Terminal int8

const (
	// TerminalApproved means the critic approved the poem.
	TerminalApproved Terminal = iota
	// TerminalSolved means both investigators agreed on a solution.
	TerminalSolved
	// TerminalLimitReached means the turn limit ran out first. This is an
	// expected outcome that calls for manual follow-up, not an error.
	TerminalLimitReached
)

// String returns the terminal state name.
func (t Terminal) String() string {
	switch t {
	case TerminalApproved:
		return "approved"
	case TerminalSolved:
		return "solved"
	case TerminalLimitReached:
		return "limit_reached"
	default:
		return "unknown"
	}
}

// Result reports how a scenario run ended and after how many turns.
type Result struct {
	Terminal Terminal
	Turns    int
}
