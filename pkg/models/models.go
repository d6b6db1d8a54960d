package models

import (
	"time"
)

// Task lifecycle

// TaskStatus is the lifecycle state of a debate task. Transitions only move
// forward: pending -> running -> completed or failed.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Work items

// WorkItemKind distinguishes the two submission modes.
type WorkItemKind string

const (
	WorkItemEmail WorkItemKind = "email"
	WorkItemQuery WorkItemKind = "query"
)

// Signal is one upstream classifier vote attached to an email by the mail
// pipeline. Debates treat signals as context, not ground truth.
type Signal struct {
	Model string  `json:"model"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Email is the structured form of a work item sourced from the mail pipeline.
type Email struct {
	Subject string   `json:"subject"`
	Sender  string   `json:"sender"`
	Body    string   `json:"body"`
	Signals []Signal `json:"signals,omitempty"`
}

// WorkItem is the unit of work a debate runs over: a structured email or a
// free-text query. SourceID echoes the caller's stable identifier so results
// can be joined back to the originating system.
type WorkItem struct {
	SourceID string       `json:"source_id,omitempty"`
	Kind     WorkItemKind `json:"kind"`
	Email    *Email       `json:"email,omitempty"`
	Query    string       `json:"query,omitempty"`
}

// Transcript

// Message is one agent turn in a debate transcript. Thinking marks the
// interim "agent is working" notice streamed to observers; only finalized
// turns (Thinking=false) are stored on the task.
type Message struct {
	Sequence  int       `json:"sequence"`
	Round     int       `json:"round"`
	Role      string    `json:"role"`
	Icon      string    `json:"icon,omitempty"`
	Content   string    `json:"content"`
	Thinking  bool      `json:"thinking,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Decision is the decision maker's synthesized ruling for a task.
type Decision struct {
	Summary     string   `json:"summary"`
	ActionItems []string `json:"action_items"`
	DecidedBy   string   `json:"decided_by"`
}

// Task is the full lifecycle record of one debate run.
type Task struct {
	ID        string     `json:"id"`
	TeamKey   string     `json:"team"`
	WorkItem  WorkItem   `json:"work_item"`
	Status    TaskStatus `json:"status"`
	Messages  []Message  `json:"messages"`
	Decision  *Decision  `json:"decision,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TaskSummary is the lightweight listing row used by dashboards.
type TaskSummary struct {
	ID           string     `json:"id"`
	TeamKey      string     `json:"team"`
	Status       TaskStatus `json:"status"`
	MessageCount int        `json:"message_count"`
	HasDecision  bool       `json:"has_decision"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Events

// EventType identifies the debate progress events pushed to observers.
type EventType string

const (
	EventAgentMessage   EventType = "agent_message"
	EventDebateComplete EventType = "debate_complete"
	EventDebateError    EventType = "debate_error"
)

// Event is the envelope streamed to subscribers over SSE and WebSocket.
type Event struct {
	Type EventType `json:"type"`
	Data EventData `json:"data"`
}

// EventData carries the type-specific payload. TaskID is set on every event
// so subscribers watching the shared stream can filter client-side.
type EventData struct {
	TaskID   string    `json:"task_id"`
	Role     string    `json:"role,omitempty"`
	Message  *Message  `json:"message,omitempty"`
	Decision *Decision `json:"decision,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// AgentMessageEvent builds the event for one agent turn, finalized or
// thinking.
func AgentMessageEvent(taskID string, msg Message) Event {
	return Event{
		Type: EventAgentMessage,
		Data: EventData{TaskID: taskID, Role: msg.Role, Message: &msg},
	}
}

// DebateCompleteEvent builds the terminal success event.
func DebateCompleteEvent(taskID string, decision Decision) Event {
	return Event{
		Type: EventDebateComplete,
		Data: EventData{TaskID: taskID, Decision: &decision},
	}
}

// DebateErrorEvent builds the terminal failure event.
func DebateErrorEvent(taskID, reason string) Event {
	return Event{
		Type: EventDebateError,
		Data: EventData{TaskID: taskID, Reason: reason},
	}
}
