package scenario

import (
	"context"
	"fmt"
	"io"
	"time"

	"fellowship/pkg/logx"
	"fellowship/pkg/metrics"
)

// Poetry scenario participants.
const (
	PoetAgentName   = "LOTR Poet"
	CriticAgentName = "LOTR Poem Expert"
)

// DefaultPingPongLimit bounds the poetry revision loop when no override
// is configured.
const DefaultPingPongLimit = 5

// InitialPoemTask is the fixed opening task handed to the poet.
const InitialPoemTask = "Fetch a Lord of the Rings quote using your quote tool, summarize it in one sentence, " +
	"and craft a concise four-line poem that reflects the quote's mood."

// PoetInstructions is the poet's system prompt.
const PoetInstructions = "You are a lyrical poet from Middle-earth.\n" +
	"- Always call the `get_lotr_quote` tool before drafting a poem.\n" +
	"- Paraphrase the quote in one sentence before the poem so collaborators know the context.\n" +
	"- Compose exactly four poetic lines referencing characters, places, or emotions from the quote.\n" +
	"- Close with `STATUS: READY` when you believe the poem satisfies the review criteria or " +
	"`STATUS: REVISION` when asking for more feedback."

// CriticInstructions is the critic's system prompt.
const CriticInstructions = "You are a meticulous Loremaster ensuring LOTR poems honor the lore.\n" +
	"- Inspect the provided paraphrase and poem for accuracy, line count (exactly four), and tone.\n" +
	"- Respond with `APPROVED: <short explanation>` if everything looks great.\n" +
	"- Otherwise respond with `REVISE: <actionable feedback>` describing what must change " +
	"(line count, lore, rhyme, etc.)."

const scenarioPoetry = "poetry"

// PingPong runs the poet/critic revision loop: the poet drafts, the critic
// reviews, and the draft bounces back with feedback until it is approved or
// the turn limit runs out.
type PingPong struct {
	poet   Agent
	critic Agent
	out    io.Writer
	rec    *metrics.Recorder
	logger *logx.Logger
	limit  int
}

// NewPingPong creates the poetry scenario. A non-positive limit falls back
// to the default; a nil writer discards console output.
func NewPingPong(poet, critic Agent, limit int, out io.Writer) *PingPong {
	if limit <= 0 {
		limit = DefaultPingPongLimit
	}
	if out == nil {
		out = io.Discard
	}
	return &PingPong{
		poet:   poet,
		critic: critic,
		out:    out,
		rec:    metrics.Default(),
		logger: logx.NewLogger(scenarioPoetry),
		limit:  limit,
	}
}

// Run drives the loop to a terminal state. The returned result reports the
// 1-based cycle at which approval occurred, or that the limit was reached.
// Agent invocation failures abort the run and propagate unmodified.
func (p *PingPong) Run(ctx context.Context) (Result, error) {
	nextTask := InitialPoemTask

	for turn := 1; turn <= p.limit; turn++ {
		p.logger.Debug("cycle %d of %d", turn, p.limit)

		draft, err := p.takeTurn(ctx, p.poet, nextTask, true)
		if err != nil {
			return Result{}, err
		}

		review := "Please evaluate the paraphrase and poem below. Confirm APPROVED or provide REVISE " +
			"feedback.\n\n" + draft.Output
		critique, err := p.takeTurn(ctx, p.critic, review, false)
		if err != nil {
			return Result{}, err
		}

		verdict, recognized := ClassifyPoetry(critique.Output)
		if !recognized {
			fmt.Fprintln(p.out, "Unrecognized verdict, defaulting to REVISE queue.")
		}
		p.rec.RecordVerdict(scenarioPoetry, verdict.String())

		if verdict == VerdictApproved {
			fmt.Fprintf(p.out, "\n✅ Poem approved after %d ping-pong cycle(s).\n", turn)
			p.rec.RecordRun(scenarioPoetry, TerminalApproved.String())
			return Result{Terminal: TerminalApproved, Turns: turn}, nil
		}

		nextTask = fmt.Sprintf(
			"Incorporate the critic feedback below. Keep the poem to four lines, reuse the "+
				"retrieved quote context, and respond with STATUS: REVISION or STATUS: READY.\n\n"+
				"Feedback: %s\n\nPrevious poem draft:\n%s",
			critique.Output, draft.Output)
	}

	fmt.Fprintln(p.out, "\n⚠️ Ping-pong limit reached without approval. Please review the latest draft manually.")
	p.rec.RecordRun(scenarioPoetry, TerminalLimitReached.String())
	return Result{Terminal: TerminalLimitReached, Turns: p.limit}, nil
}

// takeTurn wraps TakeTurn with per-turn metrics.
func (p *PingPong) takeTurn(ctx context.Context, agent Agent, message string, logToolCalls bool) (TurnRecord, error) {
	start := time.Now()
	record, err := TakeTurn(ctx, agent, message, p.out, logToolCalls)
	if err != nil {
		return TurnRecord{}, err
	}
	p.rec.RecordTurn(scenarioPoetry, agent.Name(), time.Since(start))
	for _, name := range record.ToolCalls {
		p.rec.RecordToolCall(name)
	}
	return record, nil
}
