package swarm

import (
	"encoding/json"
	"time"

	"hivemind.ai/internal/protocol"
)

// Priority is an open integer scale (higher = more urgent); the constants
// are the conventional points on it.
const (
	PriorityLow      = 25
	PriorityNormal   = 50
	PriorityHigh     = 75
	PriorityCritical = 100
)

const maxTaskAttempts = 3

type Task struct {
	ID                 string
	Description        string
	Payload            json.RawMessage
	Priority           int
	RequiredRole       Role   // "" = any role
	RequiredCapability string // "" = any capability
	Location           *protocol.Vec3
	SubmittedAt        time.Time
	AssignedTo         string
	Attempts           int
}

func (t *Task) wireInfo() protocol.TaskInfo {
	return protocol.TaskInfo{
		ID:                 t.ID,
		Description:        t.Description,
		Priority:           t.Priority,
		RequiredRole:       string(t.RequiredRole),
		RequiredCapability: t.RequiredCapability,
		Location:           t.Location,
		Attempts:           t.Attempts,
		Payload:            t.Payload,
	}
}

// handleSubmit accepts new work. Returns the task id, or "" when the
// message is malformed.
func (s *Swarm) handleSubmit(m protocol.TaskSubmitMsg) string {
	var role Role
	if m.RequiredRole != "" {
		r, err := ParseRole(m.RequiredRole)
		if err != nil {
			s.logf("task.submit: %v", err)
			return ""
		}
		role = r
	}
	t := &Task{
		ID:                 m.ID,
		Description:        m.Description,
		Payload:            m.Payload,
		Priority:           m.Priority,
		RequiredRole:       role,
		RequiredCapability: m.RequiredCapability,
		Location:           m.Location,
		SubmittedAt:        s.now(),
	}
	if t.ID == "" {
		t.ID = s.newTaskID()
	}
	s.requeue(t)
	return t.ID
}

// requeue inserts a task after all entries with priority >= its own, which
// keeps the queue priority-descending and FIFO among equal priorities, then
// tries to hand out work. Overflow drops the lowest-priority tail entry.
func (s *Swarm) requeue(t *Task) {
	i := len(s.queue)
	for j, q := range s.queue {
		if q.Priority < t.Priority {
			i = j
			break
		}
	}
	s.queue = append(s.queue, nil)
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = t

	if len(s.queue) > s.cfg.TaskQueueCap {
		dropped := s.queue[len(s.queue)-1]
		s.queue = s.queue[:len(s.queue)-1]
		s.logf("queue full, dropping %s (priority %d)", dropped.ID, dropped.Priority)
		s.emit(protocol.TopicTaskFailed, protocol.TaskDroppedMsg{
			TaskID:   dropped.ID,
			Reason:   "queue overflow",
			Attempts: dropped.Attempts,
		})
	}

	s.processQueue()
}

// processQueue walks the backlog in priority order, assigning every task
// that has a matching idle bot. Unmatched tasks stay queued indefinitely.
func (s *Swarm) processQueue() {
	i := 0
	for i < len(s.queue) {
		if s.tryAssign(s.queue[i]) {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			continue
		}
		i++
	}
}

// tryAssign binds the task to the highest-scoring idle candidate, if any.
func (s *Swarm) tryAssign(t *Task) bool {
	var best *Bot
	var bestScore float64
	for _, id := range s.order {
		b := s.bots[id]
		if b == nil || b.Status != StatusIdle {
			continue
		}
		if t.RequiredRole != "" && b.Role != t.RequiredRole {
			continue
		}
		if t.RequiredCapability != "" && !b.Capabilities[t.RequiredCapability] {
			continue
		}
		sc := b.Perf.Efficiency*100 + float64(b.Perf.TasksCompleted)*0.5
		if t.Location != nil {
			sc -= distance(b.Pos, *t.Location) * 0.1
		}
		if t.RequiredRole != "" && b.Role == t.RequiredRole {
			sc += 30
		}
		if best == nil || sc > bestScore {
			best = b
			bestScore = sc
		}
	}
	if best == nil {
		return false
	}

	best.Status = StatusBusy
	best.CurrentTask = t
	t.AssignedTo = best.ID
	s.emit(protocol.TopicTaskAssigned, protocol.TaskAssignedMsg{
		BotID:  best.ID,
		TaskID: t.ID,
		Task:   t.wireInfo(),
	})
	return true
}

// handleComplete returns the bot to the pool and adjusts its rolling
// efficiency: x1.05 on success, x0.95 on failure, clamped to [0.5, 2.0].
func (s *Swarm) handleComplete(botID, taskID string, success bool) bool {
	b := s.bots[botID]
	if b == nil {
		s.logf("task.complete %s: %s", botID, protocol.ErrUnknownBot)
		return false
	}
	t := b.CurrentTask
	if t == nil || (taskID != "" && t.ID != taskID) {
		s.logf("task.complete %s: no matching task %q", botID, taskID)
		return false
	}

	b.CurrentTask = nil
	b.Status = StatusIdle
	b.Perf.TasksCompleted++
	b.Perf.LastActive = s.now()
	if success {
		b.Perf.Efficiency = min(b.Perf.Efficiency*1.05, 2.0)
	} else {
		b.Perf.Efficiency = max(b.Perf.Efficiency*0.95, 0.5)
	}
	s.handleRelease(botID)

	s.emit(protocol.TopicTaskCompleted, protocol.TaskCompletedMsg{
		BotID:      botID,
		TaskID:     t.ID,
		Success:    success,
		Efficiency: b.Perf.Efficiency,
	})

	s.processQueue()
	return true
}

// handleTaskFailed frees the bot and requeues the task at its original
// priority, up to maxTaskAttempts retries; past that the task is dropped
// for good and reported on task.failed.
func (s *Swarm) handleTaskFailed(botID, taskID, reason string) bool {
	b := s.bots[botID]
	if b == nil {
		s.logf("task.failed %s: %s", botID, protocol.ErrUnknownBot)
		return false
	}
	t := b.CurrentTask
	if t == nil || (taskID != "" && t.ID != taskID) {
		s.logf("task.failed %s: no matching task %q", botID, taskID)
		return false
	}

	b.CurrentTask = nil
	b.Status = StatusIdle
	b.Perf.LastActive = s.now()
	s.handleRelease(botID)

	requeued := t.Attempts < maxTaskAttempts
	if requeued {
		t.Attempts++
		t.AssignedTo = ""
	}
	s.emit(protocol.TopicTaskFailed, protocol.TaskDroppedMsg{
		BotID:    botID,
		TaskID:   t.ID,
		Reason:   reason,
		Attempts: t.Attempts,
		Requeued: requeued,
	})
	if requeued {
		s.requeue(t)
	} else {
		s.processQueue()
	}
	return true
}
