package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeQuery     EventType = "query"
	EventTypePlan      EventType = "plan"
	EventTypeStep      EventType = "step"
	EventTypeApproval  EventType = "approval"
	EventTypeHeartbeat EventType = "heartbeat"
	EventTypeLLM       EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	PlanID    string    `json:"plan_id,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	llmLogPath string
	maxSize    int64
}

// NewLogger writes events to out. LLM events are additionally appended to
// <logDir>/llm.jsonl unless logDir is empty.
func NewLogger(out io.Writer, logDir string) *Logger {
	if out == nil {
		out = io.Discard
	}
	l := &Logger{
		out:     out,
		maxSize: 10 * 1024 * 1024, // 10MB
	}
	if logDir != "" {
		l.llmLogPath = filepath.Join(logDir, "llm.jsonl")
	}
	return l
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error": %q}`, "failed to marshal event: "+err.Error()))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, string(data))

	if evt.Type == EventTypeLLM && l.llmLogPath != "" {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

func (l *Logger) LogQuery(query string, requireApproval bool) {
	l.Log(Event{
		Type: EventTypeQuery,
		Data: map[string]any{
			"query":            query,
			"require_approval": requireApproval,
		},
	})
}

func (l *Logger) LogPlan(planID, planName string, steps int, fallback bool) {
	l.Log(Event{
		Type:   EventTypePlan,
		PlanID: planID,
		Data: map[string]any{
			"plan_name": planName,
			"steps":     steps,
			"fallback":  fallback,
		},
	})
}

func (l *Logger) LogStep(planID string, step int, agent, action, status string) {
	l.Log(Event{
		Type:   EventTypeStep,
		PlanID: planID,
		Agent:  agent,
		Data: map[string]any{
			"step":   step,
			"action": action,
			"status": status,
		},
	})
}

func (l *Logger) LogApproval(planID string, approved bool) {
	l.Log(Event{
		Type:   EventTypeApproval,
		PlanID: planID,
		Data:   map[string]bool{"approved": approved},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(agent, systemPrompt, prompt, response string, temperature float64, failed bool) {
	l.Log(Event{
		Type:  EventTypeLLM,
		Agent: agent,
		Data: map[string]any{
			"system":      systemPrompt,
			"prompt":      prompt,
			"response":    response,
			"temperature": temperature,
			"failed":      failed,
		},
	})
}
