package scenario

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"fellowship/pkg/logx"
	"fellowship/pkg/metrics"
)

// Mystery scenario participants.
const (
	SauronAgentName  = "Sauron the Mystery Weaver"
	GandalfAgentName = "Gandalf the Grey"
	BilboAgentName   = "Bilbo Baggins"
)

// DefaultMysteryMaxTurns bounds the investigation when no override is
// configured. Every investigator exchange counts, not just verifications.
const DefaultMysteryMaxTurns = 8

// mysteryTask is the one-shot opening handed to the setter.
const mysteryTask = "Weave a dark mystery set in Middle-earth. Use your quote tool to fetch a LOTR quote " +
	"for inspiration, then craft your mysterious riddle."

const scenarioMystery = "mystery"

// Mystery runs the three-party investigation: the setter weaves a riddle
// once, then the two investigators alternate until one proposes a solution
// the other concurs with, or the turn limit runs out.
type Mystery struct {
	setter        Agent
	investigatorA Agent
	investigatorB Agent
	out           io.Writer
	rec           *metrics.Recorder
	logger        *logx.Logger
	maxTurns      int
}

// NewMystery creates the mystery scenario. A non-positive limit falls back
// to the default; a nil writer discards console output.
func NewMystery(setter, investigatorA, investigatorB Agent, maxTurns int, out io.Writer) *Mystery {
	if maxTurns <= 0 {
		maxTurns = DefaultMysteryMaxTurns
	}
	if out == nil {
		out = io.Discard
	}
	return &Mystery{
		setter:        setter,
		investigatorA: investigatorA,
		investigatorB: investigatorB,
		out:           out,
		rec:           metrics.Default(),
		logger:        logx.NewLogger(scenarioMystery),
		maxTurns:      maxTurns,
	}
}

// Run drives the investigation to a terminal state. Agent invocation
// failures abort the run and propagate unmodified.
func (m *Mystery) Run(ctx context.Context) (Result, error) {
	m.banner("🌋 THE MYSTERY OF MIDDLE-EARTH 🌋")

	setting, err := m.takeTurn(ctx, m.setter, mysteryTask, true)
	if err != nil {
		return Result{}, err
	}

	m.banner("🧙 INVESTIGATION BEGINS 🧙")

	nextMessage := fmt.Sprintf("A dark mystery has been presented:\n\n%s\n\nWhat are your initial thoughts?", setting.Output)
	speakerA := true

	for turn := 1; turn <= m.maxTurns; turn++ {
		m.logger.Debug("investigation turn %d of %d", turn, m.maxTurns)

		if !speakerA {
			record, err := m.takeTurn(ctx, m.investigatorB, nextMessage, false)
			if err != nil {
				return Result{}, err
			}
			nextMessage = fmt.Sprintf("Bilbo's observation:\n\n%s\n\nIncorporate his insights and continue your deduction.", record.Output)
			speakerA = true
			continue
		}

		record, err := m.takeTurn(ctx, m.investigatorA, nextMessage, false)
		if err != nil {
			return Result{}, err
		}

		if !ProposesSolution(record.Output) {
			nextMessage = fmt.Sprintf("Gandalf's analysis:\n\n%s\n\nWhat are your thoughts? Do you notice anything else?", record.Output)
			speakerA = false
			continue
		}

		fmt.Fprintln(m.out, "\n🎯 Gandalf has proposed a solution!")

		verification := fmt.Sprintf("Gandalf proposes the following solution:\n\n%s\n\nDo you concur with this solution, or do you see any flaws?", record.Output)
		reply, err := m.takeTurn(ctx, m.investigatorB, verification, false)
		if err != nil {
			return Result{}, err
		}

		verdict := ClassifyVerification(reply.Output)
		m.rec.RecordVerdict(scenarioMystery, verdict.String())

		if verdict == VerdictSolved {
			fmt.Fprintln(m.out, "\n✅ Mystery solved! Both investigators agree!")
			m.rec.RecordRun(scenarioMystery, TerminalSolved.String())
			return Result{Terminal: TerminalSolved, Turns: turn}, nil
		}

		// Dissent folds back to the proposing investigator.
		nextMessage = fmt.Sprintf("Bilbo's response to your solution:\n\n%s\n\nConsider his feedback and continue investigating.", reply.Output)
		speakerA = true
	}

	fmt.Fprintln(m.out, "\n⚠️ Investigation ongoing - the mystery remains unsolved after maximum turns.")
	fmt.Fprintln(m.out, "The darkness of Mordor keeps its secrets still...")
	m.rec.RecordRun(scenarioMystery, TerminalLimitReached.String())
	return Result{Terminal: TerminalLimitReached, Turns: m.maxTurns}, nil
}

// banner prints a framed section header.
func (m *Mystery) banner(title string) {
	frame := strings.Repeat("=", 80)
	fmt.Fprintf(m.out, "\n%s\n%s\n%s\n", frame, title, frame)
}

// takeTurn wraps TakeTurn with per-turn metrics.
func (m *Mystery) takeTurn(ctx context.Context, agent Agent, message string, logToolCalls bool) (TurnRecord, error) {
	start := time.Now()
	record, err := TakeTurn(ctx, agent, message, m.out, logToolCalls)
	if err != nil {
		return TurnRecord{}, err
	}
	m.rec.RecordTurn(scenarioMystery, agent.Name(), time.Since(start))
	for _, name := range record.ToolCalls {
		m.rec.RecordToolCall(name)
	}
	return record, nil
}
