// Package debate runs the multi-round team discussions at the heart of
// MailCouncil. Each debate is one goroutine owning one task record: members
// speak in fixed registry order across the configured rounds, then the
// decision maker closes the debate with a ruling.
package debate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mailcouncil/internal/events"
	"github.com/mailcouncil/internal/llm"
	"github.com/mailcouncil/internal/logging"
	"github.com/mailcouncil/internal/metrics"
	"github.com/mailcouncil/internal/prompts"
	"github.com/mailcouncil/internal/tasks"
	"github.com/mailcouncil/internal/teams"
	"github.com/mailcouncil/pkg/models"
)

// ErrTaskNotRunning is returned by Cancel when the task exists but has
// already reached a terminal state.
var ErrTaskNotRunning = errors.New("task is not running")

// DefaultRounds is the number of member rounds for a full email debate:
// initial assessment, challenge, synthesis.
const DefaultRounds = 3

// TeamSource provides team lookups. Satisfied by *teams.Registry.
type TeamSource interface {
	Get(key string) (teams.Team, error)
}

// Sanitizer cleans a work item before its content reaches any provider.
type Sanitizer interface {
	WorkItem(models.WorkItem) models.WorkItem
}

// Config tunes one engine instance.
type Config struct {
	// Rounds is the member round count for email debates. Direct queries
	// always run a single abbreviated round.
	Rounds int
	// TraceDir enables per-debate prompt/response trace files when set.
	TraceDir string
	// OnTerminal fires after a task reaches COMPLETED or FAILED. Used to
	// enqueue archival; must not block for long.
	OnTerminal func(taskID string)
}

// Engine schedules and executes debates. Debates run concurrently with no
// shared mutable state beyond the tracker; turns within one debate are
// strictly sequential because every prompt builds on the transcript so far.
type Engine struct {
	cfg       Config
	teams     TeamSource
	generator llm.Generator
	tracker   *tasks.Tracker
	bus       *events.Broadcaster
	scrubber  Sanitizer

	mu   sync.Mutex
	runs map[string]*runState
}

// runState is the cancellation flag for one active debate. The flag is
// checked between turns only; an in-flight provider call is never aborted.
type runState struct {
	mu        sync.Mutex
	cancelled bool
}

func (r *runState) cancel() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
}

func (r *runState) cancelRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// NewEngine wires a debate engine. The scrubber may be nil when no privacy
// stage is configured.
func NewEngine(cfg Config, source TeamSource, generator llm.Generator, tracker *tasks.Tracker, bus *events.Broadcaster, scrubber Sanitizer) *Engine {
	if cfg.Rounds <= 0 {
		cfg.Rounds = DefaultRounds
	}
	return &Engine{
		cfg:       cfg,
		teams:     source,
		generator: generator,
		tracker:   tracker,
		bus:       bus,
		scrubber:  scrubber,
		runs:      make(map[string]*runState),
	}
}

// StartDebate validates the team, registers a PENDING task and schedules the
// run. It returns as soon as the task exists; execution is asynchronous.
func (e *Engine) StartDebate(teamKey string, item models.WorkItem) (string, error) {
	team, err := e.teams.Get(teamKey)
	if err != nil {
		return "", err
	}

	if e.scrubber != nil {
		item = e.scrubber.WorkItem(item)
	}

	taskID := e.tracker.Create(team.Key, item)

	e.mu.Lock()
	e.runs[taskID] = &runState{}
	e.mu.Unlock()

	metrics.DebatesStarted.Inc()
	log.Debug().
		Str("task_id", taskID).
		Str("team", team.Key).
		Str("kind", string(item.Kind)).
		Msg("debate accepted")

	go e.run(taskID, team, item)
	return taskID, nil
}

// Cancel requests cancellation of an active debate. The flag takes effect
// between turns: the current turn finishes, then the task finalizes as
// FAILED with reason "cancelled". Unknown ids return ErrTaskNotFound;
// already-terminal tasks return ErrTaskNotRunning.
func (e *Engine) Cancel(taskID string) error {
	e.mu.Lock()
	state, active := e.runs[taskID]
	e.mu.Unlock()

	if active {
		state.cancel()
		return nil
	}
	if _, err := e.tracker.Get(taskID); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrTaskNotRunning, taskID)
}

func (e *Engine) run(taskID string, team teams.Team, item models.WorkItem) {
	logger := logging.ForTask(taskID)
	started := time.Now()

	defer func() {
		e.mu.Lock()
		delete(e.runs, taskID)
		e.mu.Unlock()

		metrics.DebateDuration.WithLabelValues(team.Key).Observe(time.Since(started).Seconds())
		if e.cfg.OnTerminal != nil {
			e.cfg.OnTerminal(taskID)
		}
	}()

	var trace *logging.DebateTrace
	if e.cfg.TraceDir != "" {
		t, err := logging.StartDebateTrace(e.cfg.TraceDir, taskID)
		if err != nil {
			logger.Warn().Err(err).Msg("debate trace disabled")
		} else {
			trace = t
		}
	}
	defer trace.Close()

	if err := e.tracker.MarkRunning(taskID); err != nil {
		logger.Error().Err(err).Msg("could not mark task running")
		return
	}

	maker, ok := team.DecisionMaker()
	if !ok {
		e.fail(taskID, team, "team has no decision maker", logger, trace)
		return
	}
	members := team.Members()

	rounds := e.cfg.Rounds
	if item.Kind == models.WorkItemQuery {
		rounds = 1
	}
	if len(members) == 0 {
		// Misconfigured team: nothing to debate, go straight to the ruling.
		rounds = 0
	}

	trace.LogSection(fmt.Sprintf("DEBATE START - team %s, %d members, %d rounds", team.Key, len(members), rounds))

	for round := 1; round <= rounds; round++ {
		for _, role := range members {
			if e.cancelRequested(taskID) {
				e.fail(taskID, team, "cancelled", logger, trace)
				return
			}
			if err := e.memberTurn(taskID, team, role, item, round, trace); err != nil {
				e.fail(taskID, team, turnFailure(role.Name, round, err), logger, trace)
				return
			}
		}
	}

	if e.cancelRequested(taskID) {
		e.fail(taskID, team, "cancelled", logger, trace)
		return
	}

	decision, err := e.decisionTurn(taskID, team, maker, item, rounds+1, trace)
	if err != nil {
		e.fail(taskID, team, turnFailure(maker.Name, rounds+1, err), logger, trace)
		return
	}

	if err := e.tracker.Complete(taskID, decision); err != nil {
		logger.Error().Err(err).Msg("could not finalize task")
		return
	}
	metrics.DebatesCompleted.Inc()
	e.bus.Publish(models.DebateCompleteEvent(taskID, decision))
	trace.LogSection("DEBATE COMPLETE")
	logger.Debug().
		Str("team", team.Key).
		Str("decided_by", decision.DecidedBy).
		Msg("debate complete")
}

// memberTurn produces one finalized member message. From round 2 on the
// prompt carries every turn stored so far, so each turn's context strictly
// grows; round 1 turns are independent.
func (e *Engine) memberTurn(taskID string, team teams.Team, role teams.AgentRole, item models.WorkItem, round int, trace *logging.DebateTrace) error {
	var transcript []models.Message
	if round >= 2 {
		snapshot, err := e.tracker.Get(taskID)
		if err != nil {
			return err
		}
		transcript = snapshot.Messages
	}

	prompt := prompts.BuildTurnPrompt(team, role, item, transcript, round)
	content, err := e.speak(taskID, role, round, prompt, trace)
	if err != nil {
		return err
	}

	msg, err := e.tracker.Append(taskID, models.Message{
		Round:   round,
		Role:    role.Name,
		Icon:    role.Icon,
		Content: content,
	})
	if err != nil {
		return err
	}
	e.bus.Publish(models.AgentMessageEvent(taskID, msg))
	return nil
}

// decisionTurn runs the single decision-maker turn over the complete
// transcript and parses the ruling.
func (e *Engine) decisionTurn(taskID string, team teams.Team, maker teams.AgentRole, item models.WorkItem, round int, trace *logging.DebateTrace) (models.Decision, error) {
	snapshot, err := e.tracker.Get(taskID)
	if err != nil {
		return models.Decision{}, err
	}

	prompt := prompts.BuildDecisionPrompt(team, maker, item, snapshot.Messages)
	raw, err := e.speak(taskID, maker, round, prompt, trace)
	if err != nil {
		return models.Decision{}, err
	}
	decision := llm.ParseDecision(raw, maker.Name)

	msg, err := e.tracker.Append(taskID, models.Message{
		Round:   round,
		Role:    maker.Name,
		Icon:    maker.Icon,
		Content: raw,
	})
	if err != nil {
		return models.Decision{}, err
	}
	e.bus.Publish(models.AgentMessageEvent(taskID, msg))
	return decision, nil
}

// speak publishes the interim thinking notice, then runs the provider call.
// The notice is stream-only and never stored. The call deliberately gets a
// fresh context: cancellation applies between turns, so an in-flight call
// always runs to its own completion or timeout.
func (e *Engine) speak(taskID string, role teams.AgentRole, round int, prompt string, trace *logging.DebateTrace) (string, error) {
	e.bus.Publish(models.AgentMessageEvent(taskID, models.Message{
		Round:     round,
		Role:      role.Name,
		Icon:      role.Icon,
		Thinking:  true,
		Timestamp: time.Now().UTC(),
	}))

	trace.LogPrompt(role.Name, round, prompt)
	content, err := e.generator.Generate(context.Background(), prompt)
	if err != nil {
		trace.LogError(fmt.Sprintf("%s (round %d)", role.Name, round), err)
		return "", err
	}
	trace.LogResponse(role.Name, round, content)
	return content, nil
}

func (e *Engine) fail(taskID string, team teams.Team, reason string, logger zerolog.Logger, trace *logging.DebateTrace) {
	if err := e.tracker.Fail(taskID, reason); err != nil {
		logger.Error().Err(err).Msg("could not finalize task")
		return
	}
	metrics.DebatesFailed.Inc()
	e.bus.Publish(models.DebateErrorEvent(taskID, reason))
	trace.LogSection("DEBATE FAILED: " + reason)
	logger.Warn().
		Str("team", team.Key).
		Str("reason", reason).
		Msg("debate failed")
}

func (e *Engine) cancelRequested(taskID string) bool {
	e.mu.Lock()
	state := e.runs[taskID]
	e.mu.Unlock()
	return state != nil && state.cancelRequested()
}

func turnFailure(role string, round int, err error) string {
	return fmt.Sprintf("provider failure on %s turn (round %d): %v", role, round, err)
}
