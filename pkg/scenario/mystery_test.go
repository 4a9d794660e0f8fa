package scenario

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMysterySolvedOnConcur(t *testing.T) {
	sauron := &fakeAgent{name: SauronAgentName, replies: []string{"a dark riddle"}}
	gandalf := &fakeAgent{name: GandalfAgentName, replies: []string{"SOLUTION: the ring itself"}}
	bilbo := &fakeAgent{name: BilboAgentName, replies: []string{"I concur, well reasoned"}}

	var buf bytes.Buffer
	result, err := NewMystery(sauron, gandalf, bilbo, 8, &buf).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Terminal != TerminalSolved {
		t.Errorf("terminal = %v, want solved", result.Terminal)
	}
	if result.Turns != 1 {
		t.Errorf("turns = %d, want 1", result.Turns)
	}
	if sauron.calls != 1 {
		t.Errorf("setter called %d times, want one-shot", sauron.calls)
	}
	if !strings.Contains(buf.String(), "Mystery solved! Both investigators agree!") {
		t.Errorf("missing solved banner: %q", buf.String())
	}
}

func TestMysteryNeverConcurExactTurns(t *testing.T) {
	const maxTurns = 4
	sauron := &fakeAgent{name: SauronAgentName, replies: []string{"a dark riddle"}}
	gandalf := &fakeAgent{name: GandalfAgentName, replies: []string{"SOLUTION: it was Saruman"}}
	bilbo := &fakeAgent{name: BilboAgentName, replies: []string{"I see flaws in that"}}

	var buf bytes.Buffer
	result, err := NewMystery(sauron, gandalf, bilbo, maxTurns, &buf).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Terminal != TerminalLimitReached {
		t.Errorf("terminal = %v, want limit reached", result.Terminal)
	}
	if result.Turns != maxTurns {
		t.Errorf("turns = %d, want exactly %d", result.Turns, maxTurns)
	}
	// Every iteration is a proposal plus a failed verification.
	if gandalf.calls != maxTurns || bilbo.calls != maxTurns {
		t.Errorf("gandalf calls = %d, bilbo calls = %d, want %d each", gandalf.calls, bilbo.calls, maxTurns)
	}
	if !strings.Contains(buf.String(), "the mystery remains unsolved after maximum turns") {
		t.Errorf("missing limit warning: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "The darkness of Mordor keeps its secrets still...") {
		t.Errorf("missing closing line: %q", buf.String())
	}
}

func TestMysteryAlternationWithoutSolution(t *testing.T) {
	const maxTurns = 4
	sauron := &fakeAgent{name: SauronAgentName, replies: []string{"a dark riddle"}}
	gandalf := &fakeAgent{name: GandalfAgentName, replies: []string{"still pondering the clues"}}
	bilbo := &fakeAgent{name: BilboAgentName, replies: []string{"I noticed muddy footprints"}}

	result, err := NewMystery(sauron, gandalf, bilbo, maxTurns, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Terminal != TerminalLimitReached {
		t.Errorf("terminal = %v, want limit reached", result.Terminal)
	}
	// Strict A/B alternation: two turns each within four iterations.
	if gandalf.calls != 2 || bilbo.calls != 2 {
		t.Errorf("gandalf calls = %d, bilbo calls = %d, want 2 each", gandalf.calls, bilbo.calls)
	}

	if !strings.Contains(gandalf.inputs[0], "A dark mystery has been presented") ||
		!strings.Contains(gandalf.inputs[0], "a dark riddle") {
		t.Errorf("opening context malformed: %q", gandalf.inputs[0])
	}
	if !strings.Contains(bilbo.inputs[0], "Gandalf's analysis:") {
		t.Errorf("analysis hand-off malformed: %q", bilbo.inputs[0])
	}
	if !strings.Contains(gandalf.inputs[1], "Bilbo's observation:") {
		t.Errorf("observation hand-off malformed: %q", gandalf.inputs[1])
	}
}

func TestMysteryDissentFoldsBackToProposer(t *testing.T) {
	sauron := &fakeAgent{name: SauronAgentName, replies: []string{"a dark riddle"}}
	gandalf := &fakeAgent{name: GandalfAgentName, replies: []string{
		"SOLUTION: the Balrog did it",
		"SOLUTION: on reflection, the Balrog, with help",
	}}
	bilbo := &fakeAgent{name: BilboAgentName, replies: []string{
		"I see a flaw in that reasoning",
		"I concur now",
	}}

	result, err := NewMystery(sauron, gandalf, bilbo, 8, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Terminal != TerminalSolved || result.Turns != 2 {
		t.Fatalf("result = %+v, want solved on turn 2", result)
	}
	if !strings.Contains(gandalf.inputs[1], "Bilbo's response to your solution:") ||
		!strings.Contains(gandalf.inputs[1], "continue investigating") {
		t.Errorf("dissent context malformed: %q", gandalf.inputs[1])
	}
	if !strings.Contains(bilbo.inputs[0], "Gandalf proposes the following solution:") {
		t.Errorf("verification prompt malformed: %q", bilbo.inputs[0])
	}
}

func TestMysteryPropagatesSetterError(t *testing.T) {
	boom := errors.New("model down")
	sauron := &fakeAgent{name: SauronAgentName, err: boom}
	gandalf := &fakeAgent{name: GandalfAgentName, replies: []string{"x"}}
	bilbo := &fakeAgent{name: BilboAgentName, replies: []string{"y"}}

	_, err := NewMystery(sauron, gandalf, bilbo, 8, nil).Run(context.Background())
	var invErr *AgentInvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected AgentInvocationError, got %v", err)
	}
	if gandalf.calls != 0 || bilbo.calls != 0 {
		t.Error("investigators should not run after setter failure")
	}
}
