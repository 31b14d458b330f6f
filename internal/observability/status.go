package observability

import (
	"sync"
	"time"
)

type Role string

const (
	RoleIdle      Role = "IDLE"
	RolePlanning  Role = "PLANNING"
	RoleAwaiting  Role = "AWAITING_APPROVAL"
	RoleExecuting Role = "EXECUTING"
)

// Status tracks what the agent system is doing right now.
type Status struct {
	mu            sync.RWMutex
	startedAt     time.Time
	currentRole   Role
	activeTask    string
	lastHeartbeat time.Time
}

// StatusSnapshot is a copy of Status safe to serialise.
type StatusSnapshot struct {
	Role          Role      `json:"role"`
	ActiveTask    string    `json:"active_task"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Uptime        string    `json:"uptime"`
}

func NewStatus() *Status {
	now := time.Now()
	return &Status{
		startedAt:     now,
		currentRole:   RoleIdle,
		lastHeartbeat: now,
	}
}

// Set updates the current role and task.
func (s *Status) Set(role Role, task string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRole = role
	s.activeTask = task
}

// Get retrieves the current role, task and last heartbeat.
func (s *Status) Get() (Role, string, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRole, s.activeTask, s.lastHeartbeat
}

func (s *Status) Snapshot() StatusSnapshot {
	role, task, hb := s.Get()
	return StatusSnapshot{
		Role:          role,
		ActiveTask:    task,
		LastHeartbeat: hb,
		Uptime:        time.Since(s.startedAt).Round(time.Second).String(),
	}
}

// Heartbeat updates the last heartbeat time.
func (s *Status) Heartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeat = time.Now()
}
