package debate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailcouncil/internal/events"
	"github.com/mailcouncil/internal/prompts"
	"github.com/mailcouncil/internal/tasks"
	"github.com/mailcouncil/internal/teams"
	"github.com/mailcouncil/pkg/models"
)

const testDecision = `{"summary": "Quarantine the message and alert the user.", "action_items": ["Block the sender domain", "Purge copies from other mailboxes"]}`

// scriptedGenerator plays the provider: numbered member turns, a fixed JSON
// ruling for decision prompts, an optional failure at call N, and an
// optional gate that holds each call until the test feeds it a token.
type scriptedGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	failAt  int
	failErr error
	gate    chan struct{}
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.gate != nil {
		<-g.gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)

	if g.failAt > 0 && g.calls >= g.failAt {
		return "", g.failErr
	}
	if strings.Contains(prompt, "FINAL DECISION") {
		return testDecision, nil
	}
	return fmt.Sprintf("turn output %d", g.calls), nil
}

func (g *scriptedGenerator) snapshot() (int, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls, append([]string(nil), g.prompts...)
}

type stubSource struct {
	team teams.Team
}

func (s stubSource) Get(key string) (teams.Team, error) {
	if key != s.team.Key {
		return teams.Team{}, fmt.Errorf("%w: %s", teams.ErrTeamNotFound, key)
	}
	return s.team, nil
}

type fixture struct {
	engine  *Engine
	tracker *tasks.Tracker
	bus     *events.Broadcaster
	gen     *scriptedGenerator
}

func newFixture(t *testing.T, cfg Config, gen *scriptedGenerator) *fixture {
	t.Helper()
	registry, err := teams.NewRegistry(teams.Builtin())
	require.NoError(t, err)

	tracker := tasks.NewTracker()
	bus := events.NewBroadcaster(events.DefaultBuffer)
	t.Cleanup(bus.Close)

	return &fixture{
		engine:  NewEngine(cfg, registry, gen, tracker, bus, nil),
		tracker: tracker,
		bus:     bus,
		gen:     gen,
	}
}

func phishingItem() models.WorkItem {
	return models.WorkItem{
		SourceID: "imap-7431",
		Kind:     models.WorkItemEmail,
		Email: &models.Email{
			Subject: "Action required: unusual sign-in on your account",
			Sender:  "security@micros0ft-support.example",
			Body:    "We detected an unusual sign-in. Verify your password here within 24 hours or lose access.",
			Signals: []models.Signal{{Model: "nb-ensemble", Label: "phishing", Score: 0.91}},
		},
	}
}

func awaitTerminal(t *testing.T, tracker *tasks.Tracker, id string) models.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := tracker.Get(id)
		require.NoError(t, err)
		if task.Status.Terminal() {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("task never reached a terminal state")
	return models.Task{}
}

func awaitEvent(t *testing.T, sub *events.Subscriber, match func(models.Event) bool) models.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			require.True(t, ok, "event stream closed")
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching event")
		}
	}
}

func thinkingOf(role string) func(models.Event) bool {
	return func(ev models.Event) bool {
		return ev.Type == models.EventAgentMessage &&
			ev.Data.Message != nil && ev.Data.Message.Thinking && ev.Data.Role == role
	}
}

func finalizedTurn(ev models.Event) bool {
	return ev.Type == models.EventAgentMessage &&
		ev.Data.Message != nil && !ev.Data.Message.Thinking
}

func TestEmailDebateFullTranscript(t *testing.T) {
	terminal := make(chan string, 1)
	gen := &scriptedGenerator{}
	fix := newFixture(t, Config{
		TraceDir:   t.TempDir(),
		OnTerminal: func(id string) { terminal <- id },
	}, gen)

	sub := fix.bus.Subscribe()
	defer sub.Close()

	id, err := fix.engine.StartDebate("fraud", phishingItem())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	task := awaitTerminal(t, fix.tracker, id)
	require.Equal(t, models.TaskCompleted, task.Status)

	// 3 members x 3 rounds + 1 decision turn.
	require.Len(t, task.Messages, 10)

	wantRoles := []string{
		"Fraud Analyst", "Threat Intelligence Researcher", "Payment Risk Specialist",
		"Fraud Analyst", "Threat Intelligence Researcher", "Payment Risk Specialist",
		"Fraud Analyst", "Threat Intelligence Researcher", "Payment Risk Specialist",
		"Security Director",
	}
	wantRounds := []int{1, 1, 1, 2, 2, 2, 3, 3, 3, 4}
	for i, msg := range task.Messages {
		assert.Equal(t, i+1, msg.Sequence)
		assert.Equal(t, wantRoles[i], msg.Role)
		assert.Equal(t, wantRounds[i], msg.Round)
		assert.False(t, msg.Thinking)
		assert.NotEmpty(t, msg.Content)
	}

	require.NotNil(t, task.Decision)
	assert.Equal(t, "Quarantine the message and alert the user.", task.Decision.Summary)
	assert.Equal(t, []string{"Block the sender domain", "Purge copies from other mailboxes"}, task.Decision.ActionItems)
	assert.Equal(t, "Security Director", task.Decision.DecidedBy)
	assert.Empty(t, task.Error)

	calls, sent := gen.snapshot()
	require.Equal(t, 10, calls)

	// Round 1 turns are independent; from round 2 on every prompt carries
	// the whole transcript so far, so context strictly grows turn by turn.
	for _, p := range sent[:3] {
		assert.NotContains(t, p, prompts.TranscriptHeader)
	}
	assert.Contains(t, sent[3], prompts.TranscriptHeader)
	assert.Contains(t, sent[3], "turn output 3")
	assert.Contains(t, sent[4], "turn output 4")
	for i := 1; i <= 9; i++ {
		assert.Contains(t, sent[9], fmt.Sprintf("turn output %d", i))
	}

	// Observers: a thinking notice precedes each of the 10 finalized turns,
	// then the completion event closes the stream's view of the task.
	var finalized []models.Message
	var thinking int
	for {
		ev := awaitEvent(t, sub, func(models.Event) bool { return true })
		if ev.Type == models.EventDebateComplete {
			require.NotNil(t, ev.Data.Decision)
			assert.Equal(t, task.Decision.Summary, ev.Data.Decision.Summary)
			break
		}
		require.Equal(t, models.EventAgentMessage, ev.Type)
		require.NotNil(t, ev.Data.Message)
		assert.Equal(t, id, ev.Data.TaskID)
		if ev.Data.Message.Thinking {
			thinking++
			continue
		}
		finalized = append(finalized, *ev.Data.Message)
	}
	require.Len(t, finalized, 10)
	assert.Equal(t, 10, thinking)
	for i, msg := range finalized {
		assert.Equal(t, i+1, msg.Sequence)
		assert.Equal(t, wantRoles[i], msg.Role)
	}

	assert.Equal(t, id, <-terminal)
}

func TestEmailDebateWritesTrace(t *testing.T) {
	dir := t.TempDir()
	terminal := make(chan string, 1)
	fix := newFixture(t, Config{
		TraceDir:   dir,
		OnTerminal: func(id string) { terminal <- id },
	}, &scriptedGenerator{})

	id, err := fix.engine.StartDebate("triage", models.WorkItem{Kind: models.WorkItemQuery, Query: "Where does this go?"})
	require.NoError(t, err)
	assert.Equal(t, id, <-terminal)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), id)

	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "MAILCOUNCIL DEBATE TRACE")
	assert.Contains(t, content, "PROMPT - Support Agent (round 1)")
	assert.Contains(t, content, "DEBATE COMPLETE")
}

func TestDirectQueryRunsOneMemberRound(t *testing.T) {
	gen := &scriptedGenerator{}
	fix := newFixture(t, Config{}, gen)

	id, err := fix.engine.StartDebate("fraud", models.WorkItem{
		Kind:  models.WorkItemQuery,
		Query: "Should we block all mail from lookalike domains?",
	})
	require.NoError(t, err)

	task := awaitTerminal(t, fix.tracker, id)
	require.Equal(t, models.TaskCompleted, task.Status)

	// One abbreviated member pass, then the decision turn.
	require.Len(t, task.Messages, 4)
	assert.Equal(t, 1, task.Messages[2].Round)
	assert.Equal(t, 2, task.Messages[3].Round)
	assert.Equal(t, "Security Director", task.Messages[3].Role)
	require.NotNil(t, task.Decision)

	_, sent := gen.snapshot()
	require.Len(t, sent, 4)
	for _, p := range sent[:3] {
		assert.Contains(t, p, "DIRECT QUERY:")
		assert.NotContains(t, p, "ROUND 1")
	}
	assert.Contains(t, sent[3], "FINAL DECISION:")
}

func TestProviderFailureAbortsDebate(t *testing.T) {
	terminal := make(chan string, 1)
	gen := &scriptedGenerator{
		failAt:  5,
		failErr: errors.New("ollama: connection refused"),
	}
	fix := newFixture(t, Config{OnTerminal: func(id string) { terminal <- id }}, gen)

	sub := fix.bus.Subscribe()
	defer sub.Close()

	id, err := fix.engine.StartDebate("fraud", phishingItem())
	require.NoError(t, err)

	task := awaitTerminal(t, fix.tracker, id)
	assert.Equal(t, models.TaskFailed, task.Status)

	// Turns 1-4 finished before the failing fifth call; the partial
	// transcript stays on the task.
	assert.Len(t, task.Messages, 4)
	assert.Nil(t, task.Decision)
	assert.Contains(t, task.Error, "Threat Intelligence Researcher")
	assert.Contains(t, task.Error, "round 2")
	assert.Contains(t, task.Error, "connection refused")

	ev := awaitEvent(t, sub, func(ev models.Event) bool { return ev.Type == models.EventDebateError })
	assert.Equal(t, id, ev.Data.TaskID)
	assert.Equal(t, task.Error, ev.Data.Reason)

	assert.Equal(t, id, <-terminal)
}

func TestCancelTakesEffectBetweenTurns(t *testing.T) {
	gen := &scriptedGenerator{gate: make(chan struct{})}
	fix := newFixture(t, Config{}, gen)

	sub := fix.bus.Subscribe()
	defer sub.Close()

	id, err := fix.engine.StartDebate("fraud", phishingItem())
	require.NoError(t, err)

	// Let the first two turns complete.
	awaitEvent(t, sub, thinkingOf("Fraud Analyst"))
	gen.gate <- struct{}{}
	awaitEvent(t, sub, finalizedTurn)
	awaitEvent(t, sub, thinkingOf("Threat Intelligence Researcher"))
	gen.gate <- struct{}{}
	awaitEvent(t, sub, finalizedTurn)

	// The third turn's thinking notice means the engine is past its
	// between-turns cancellation check and inside the provider call.
	awaitEvent(t, sub, thinkingOf("Payment Risk Specialist"))
	require.NoError(t, fix.engine.Cancel(id))
	gen.gate <- struct{}{}

	task := awaitTerminal(t, fix.tracker, id)
	assert.Equal(t, models.TaskFailed, task.Status)
	assert.Equal(t, "cancelled", task.Error)

	// The in-flight turn was never aborted: it landed before the flag was
	// honored, so three turns survive.
	assert.Len(t, task.Messages, 3)
	assert.Nil(t, task.Decision)

	ev := awaitEvent(t, sub, func(ev models.Event) bool { return ev.Type == models.EventDebateError })
	assert.Equal(t, "cancelled", ev.Data.Reason)

	err = fix.engine.Cancel(id)
	assert.ErrorIs(t, err, ErrTaskNotRunning)

	err = fix.engine.Cancel("no-such-task")
	assert.ErrorIs(t, err, tasks.ErrTaskNotFound)
}

func TestEmptyWorkItemStillDebated(t *testing.T) {
	gen := &scriptedGenerator{}
	fix := newFixture(t, Config{}, gen)

	id, err := fix.engine.StartDebate("fraud", models.WorkItem{Kind: models.WorkItemEmail})
	require.NoError(t, err)

	task := awaitTerminal(t, fix.tracker, id)
	assert.Equal(t, models.TaskCompleted, task.Status)
	assert.Len(t, task.Messages, 10)

	_, sent := gen.snapshot()
	assert.Contains(t, sent[0], prompts.NoContentMarker)
}

func TestZeroMemberTeamGoesStraightToDecision(t *testing.T) {
	solo := teams.Team{
		Key:  "solo",
		Name: "Solo Review",
		Roles: []teams.AgentRole{
			{Name: "Arbiter", Persona: "Terse.", Responsibility: "Rule on everything alone.", DecisionMaker: true},
		},
	}
	tracker := tasks.NewTracker()
	bus := events.NewBroadcaster(events.DefaultBuffer)
	defer bus.Close()
	engine := NewEngine(Config{}, stubSource{team: solo}, &scriptedGenerator{}, tracker, bus, nil)

	id, err := engine.StartDebate("solo", phishingItem())
	require.NoError(t, err)

	task := awaitTerminal(t, tracker, id)
	assert.Equal(t, models.TaskCompleted, task.Status)
	require.Len(t, task.Messages, 1)
	assert.Equal(t, "Arbiter", task.Messages[0].Role)
	assert.Equal(t, 1, task.Messages[0].Round)
	require.NotNil(t, task.Decision)
	assert.Equal(t, "Arbiter", task.Decision.DecidedBy)
}

func TestTeamWithoutDecisionMakerFails(t *testing.T) {
	headless := teams.Team{
		Key:  "headless",
		Name: "Headless",
		Roles: []teams.AgentRole{
			{Name: "Analyst One", Persona: "p", Responsibility: "r"},
			{Name: "Analyst Two", Persona: "p", Responsibility: "r"},
		},
	}
	tracker := tasks.NewTracker()
	bus := events.NewBroadcaster(events.DefaultBuffer)
	defer bus.Close()
	engine := NewEngine(Config{}, stubSource{team: headless}, &scriptedGenerator{}, tracker, bus, nil)

	id, err := engine.StartDebate("headless", phishingItem())
	require.NoError(t, err)

	task := awaitTerminal(t, tracker, id)
	assert.Equal(t, models.TaskFailed, task.Status)
	assert.Equal(t, "team has no decision maker", task.Error)
	assert.Empty(t, task.Messages)
}

func TestStartDebateUnknownTeam(t *testing.T) {
	fix := newFixture(t, Config{}, &scriptedGenerator{})

	_, err := fix.engine.StartDebate("no-such-team", phishingItem())
	assert.ErrorIs(t, err, teams.ErrTeamNotFound)
	assert.Empty(t, fix.tracker.List())
}

func TestConcurrentDebatesDoNotInterleave(t *testing.T) {
	gen := &scriptedGenerator{}
	fix := newFixture(t, Config{}, gen)

	first, err := fix.engine.StartDebate("fraud", phishingItem())
	require.NoError(t, err)
	second, err := fix.engine.StartDebate("fraud", phishingItem())
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	for _, id := range []string{first, second} {
		task := awaitTerminal(t, fix.tracker, id)
		assert.Equal(t, models.TaskCompleted, task.Status)
		require.Len(t, task.Messages, 10)
		for i, msg := range task.Messages {
			assert.Equal(t, i+1, msg.Sequence)
		}
		require.NotNil(t, task.Decision)
	}
}

type prefixScrubber struct{}

func (prefixScrubber) WorkItem(item models.WorkItem) models.WorkItem {
	out := item
	out.Query = "[scrubbed] " + item.Query
	return out
}

func TestScrubberAppliedAtSubmission(t *testing.T) {
	gen := &scriptedGenerator{}
	registry, err := teams.NewRegistry(teams.Builtin())
	require.NoError(t, err)
	tracker := tasks.NewTracker()
	bus := events.NewBroadcaster(events.DefaultBuffer)
	defer bus.Close()
	engine := NewEngine(Config{}, registry, gen, tracker, bus, prefixScrubber{})

	id, err := engine.StartDebate("triage", models.WorkItem{
		Kind:  models.WorkItemQuery,
		Query: "call me at 555-0100",
	})
	require.NoError(t, err)

	task := awaitTerminal(t, tracker, id)
	assert.Equal(t, "[scrubbed] call me at 555-0100", task.WorkItem.Query)

	_, sent := gen.snapshot()
	assert.Contains(t, sent[0], "[scrubbed] call me at 555-0100")
}
