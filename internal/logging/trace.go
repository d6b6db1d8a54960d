package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DebateTrace captures the full prompt/response exchange of one debate in a
// plain-text file, for auditing what each agent actually saw. All methods
// are safe on a nil receiver, so callers with tracing disabled pass nil and
// skip the conditionals.
type DebateTrace struct {
	taskID    string
	logFile   *os.File
	mutex     sync.Mutex
	startTime time.Time
}

// StartDebateTrace opens a trace file for one task under dir. The file name
// carries the task id and a timestamp so reruns never collide.
func StartDebateTrace(dir, taskID string) (*DebateTrace, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("debate_%s_%s.log", taskID, timestamp))
	logFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	t := &DebateTrace{
		taskID:    taskID,
		logFile:   logFile,
		startTime: time.Now(),
	}
	t.writeHeader()
	return t, nil
}

// Log writes one timestamped line to the trace.
func (t *DebateTrace) Log(format string, args ...interface{}) {
	if t == nil {
		return
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.writeLine(fmt.Sprintf(format, args...))
}

// LogSection writes a visual section divider.
func (t *DebateTrace) LogSection(title string) {
	if t == nil {
		return
	}

	separator := strings.Repeat("=", 80)
	t.Log(separator)
	t.Log("= %s", title)
	t.Log(separator)
}

// LogPrompt records the exact prompt sent for one turn.
func (t *DebateTrace) LogPrompt(role string, round int, prompt string) {
	if t == nil {
		return
	}

	t.LogSection(fmt.Sprintf("PROMPT - %s (round %d)", role, round))
	t.Log("Prompt length: %d characters", len(prompt))
	t.writeBlock(prompt)
}

// LogResponse records the raw model output for one turn.
func (t *DebateTrace) LogResponse(role string, round int, response string) {
	if t == nil {
		return
	}

	t.LogSection(fmt.Sprintf("RESPONSE - %s (round %d)", role, round))
	t.Log("Response length: %d characters", len(response))
	t.writeBlock(response)
}

// LogError records a turn failure.
func (t *DebateTrace) LogError(context string, err error) {
	if t == nil {
		return
	}

	t.Log("ERROR in %s: %v", context, err)
}

// Close finalizes the trace file.
func (t *DebateTrace) Close() {
	if t == nil {
		return
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.logFile == nil {
		return
	}
	t.writeLine(fmt.Sprintf("Trace complete. Total duration: %v", time.Since(t.startTime).Round(time.Millisecond)))
	t.logFile.Close()
	t.logFile = nil
}

// writeLine assumes the mutex is held.
func (t *DebateTrace) writeLine(msg string) {
	if t.logFile == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(t.startTime).Round(time.Millisecond)
	fmt.Fprintf(t.logFile, "[%s] [+%v] %s\n", timestamp, elapsed, msg)
	t.logFile.Sync()
}

func (t *DebateTrace) writeBlock(content string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.logFile == nil {
		return
	}
	t.logFile.WriteString(content + "\n")
	t.logFile.Sync()
}

func (t *DebateTrace) writeHeader() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	header := fmt.Sprintf(`MAILCOUNCIL DEBATE TRACE
Task ID: %s
Start Time: %s
Log Format: [HH:MM:SS.mmm] [+duration] message

`, t.taskID, t.startTime.Format("2006-01-02 15:04:05"))
	t.logFile.WriteString(header)
	t.logFile.Sync()
}
