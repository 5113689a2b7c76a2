// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/muster-robotics/muster/lib/clock"
	"github.com/muster-robotics/muster/lib/geo"
)

// TaskStatus is the lifecycle state of an announced task.
type TaskStatus string

const (
	TaskAvailable TaskStatus = "available"
	TaskAssigned  TaskStatus = "assigned"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is a unit of work announced to the swarm for bidding.
type Task struct {
	ID       string
	Kind     string
	Position geo.Vec
	Priority string

	// RequiredAgents is how many agents must be assigned before the
	// task leaves the available state.
	RequiredAgents int

	// RequiredCapabilities earn bidders the capability bonus. A task
	// that names none falls back to the capability matching its kind,
	// so a "search" task still rewards searchers.
	RequiredCapabilities []Capability

	Status   TaskStatus
	Assigned []AgentID

	// CompletedAt is set when the task reaches completed or failed.
	CompletedAt time.Time
}

// Bid is one agent's offer on a task.
type Bid struct {
	Agent AgentID
	Score float64
}

// Bid score weights.
const (
	bidDistanceBase    = 100.0
	bidBatteryWeight   = 0.5
	bidCapabilityBonus = 20.0
	bidLoadPenalty     = 10.0
)

// TaskBoard implements market-based task allocation: tasks are
// announced, agents bid, and the highest bidders win assignment once
// enough bids arrive. All state is owned by the scheduler's
// coordination phase; the board does no locking.
type TaskBoard struct {
	clock  clock.Clock
	logger *slog.Logger

	nextTask int
	// order preserves announcement order for the assignment pass.
	order []string
	tasks map[string]*Task
	// bids keeps insertion order per task so equal scores resolve to
	// the earlier bidder.
	bids map[string][]Bid
	// assignedCount is live assignments per agent, feeding the load
	// penalty.
	assignedCount map[AgentID]int
}

// NewTaskBoard creates an empty board. A nil clock uses real time; a
// nil logger discards output.
func NewTaskBoard(clk clock.Clock, logger *slog.Logger) *TaskBoard {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TaskBoard{
		clock:         clk,
		logger:        logger,
		tasks:         make(map[string]*Task),
		bids:          make(map[string][]Bid),
		assignedCount: make(map[AgentID]int),
	}
}

// Announce publishes a new task and returns its ID. IDs are
// monotonically increasing within a board ("task-1", "task-2", ...).
// An empty priority means medium.
func (b *TaskBoard) Announce(kind string, position geo.Vec, priority string, requiredAgents int, capabilities ...Capability) string {
	if priority == "" {
		priority = PriorityMedium
	}
	b.nextTask++
	id := fmt.Sprintf("task-%d", b.nextTask)
	b.tasks[id] = &Task{
		ID:                   id,
		Kind:                 kind,
		Position:             position,
		Priority:             priority,
		RequiredAgents:       requiredAgents,
		RequiredCapabilities: capabilities,
		Status:               TaskAvailable,
	}
	b.order = append(b.order, id)

	b.logger.Info("task announced", "task", id, "kind", kind,
		"priority", priority, "required", requiredAgents)
	return id
}

// Task returns the task with the given ID, or nil.
func (b *TaskBoard) Task(id string) *Task { return b.tasks[id] }

// BidScore computes the agent's bid on a task: proximity (capped at
// the distance base), battery, a bonus when the agent covers every
// required capability, and a penalty per task already assigned.
func (b *TaskBoard) BidScore(agent *Agent, task *Task) float64 {
	score := bidDistanceBase - agent.Pos.Dist(task.Position)
	if score < 0 {
		score = 0
	}
	score += agent.Battery * bidBatteryWeight

	if len(task.RequiredCapabilities) > 0 {
		covered := true
		for _, c := range task.RequiredCapabilities {
			if !agent.HasCapability(c) {
				covered = false
				break
			}
		}
		if covered {
			score += bidCapabilityBonus
		}
	} else if agent.HasCapability(Capability(task.Kind)) {
		// No explicit requirement: the task kind names the capability,
		// so a "search" task rewards agents that can search.
		score += bidCapabilityBonus
	}

	score -= float64(b.assignedCount[agent.ID]) * bidLoadPenalty
	return score
}

// PlaceBid records the agent's bid on an available task. A repeat bid
// by the same agent overwrites in place, keeping the agent's original
// position in the bid order. Bidding on an unknown task returns
// ErrUnknownTask; bidding on a task that already left the available
// state is ignored.
func (b *TaskBoard) PlaceBid(agent *Agent, taskID string) error {
	task, ok := b.tasks[taskID]
	if !ok {
		return fmt.Errorf("bid on %q: %w", taskID, ErrUnknownTask)
	}
	if task.Status != TaskAvailable {
		return nil
	}

	bid := Bid{Agent: agent.ID, Score: b.BidScore(agent, task)}
	for i, existing := range b.bids[taskID] {
		if existing.Agent == agent.ID {
			b.bids[taskID][i] = bid
			return nil
		}
	}
	b.bids[taskID] = append(b.bids[taskID], bid)
	return nil
}

// Bids returns the bids on a task in insertion order.
func (b *TaskBoard) Bids(taskID string) []Bid { return b.bids[taskID] }

// AssignAll runs one assignment pass over every available task, in
// announcement order. A task is assigned only when it has at least as
// many bids as it requires: the top bidders by descending score win
// (equal scores go to the earlier bidder), are pointed at the task
// position, and move to awaiting instructions. Under-bid tasks stay
// available with their bids intact. Returns the tasks assigned in this
// pass.
func (b *TaskBoard) AssignAll(agents []*Agent) []*Task {
	byID := make(map[AgentID]*Agent, len(agents))
	for _, agent := range agents {
		byID[agent.ID] = agent
	}

	var assigned []*Task
	for _, id := range b.order {
		task := b.tasks[id]
		if task.Status != TaskAvailable {
			continue
		}
		bids := b.bids[id]
		if len(bids) < task.RequiredAgents {
			continue
		}

		// Stable: equal scores keep bid order.
		sorted := make([]Bid, len(bids))
		copy(sorted, bids)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Score > sorted[j].Score
		})

		for _, bid := range sorted[:task.RequiredAgents] {
			task.Assigned = append(task.Assigned, bid.Agent)
			b.assignedCount[bid.Agent]++
			if agent, ok := byID[bid.Agent]; ok {
				agent.CurrentTask = task.ID
				agent.Target = task.Position
				// Bidders are in task_bidding or idle; both reach
				// awaiting_instructions in at most one hop.
				if err := agent.TransitionTo(StateAwaitingInstructions); err != nil {
					if agent.TransitionTo(StateTaskBidding) == nil {
						agent.TransitionTo(StateAwaitingInstructions)
					}
				}
			}
		}
		task.Status = TaskAssigned
		delete(b.bids, id)
		assigned = append(assigned, task)

		b.logger.Info("task assigned", "task", task.ID, "agents", len(task.Assigned))
	}
	return assigned
}

// Complete closes an assigned task as completed or failed, stamps the
// completion time, and releases its agents either way. Completing an
// unknown task returns ErrUnknownTask; completing a task that is not
// assigned returns ErrTaskNotAssigned and leaves the task unchanged.
func (b *TaskBoard) Complete(taskID string, success bool, agents []*Agent) error {
	task, ok := b.tasks[taskID]
	if !ok {
		return fmt.Errorf("complete %q: %w", taskID, ErrUnknownTask)
	}
	if task.Status != TaskAssigned {
		return fmt.Errorf("complete %q: %w", taskID, ErrTaskNotAssigned)
	}

	task.Status = TaskCompleted
	if !success {
		task.Status = TaskFailed
	}
	task.CompletedAt = b.clock.Now()
	for _, id := range task.Assigned {
		if b.assignedCount[id] > 0 {
			b.assignedCount[id]--
		}
	}
	for _, agent := range agents {
		if agent.CurrentTask == taskID {
			agent.CurrentTask = ""
		}
	}

	b.logger.Info("task closed", "task", taskID, "status", task.Status)
	return nil
}

// Completed returns how many tasks on the board are completed, and the
// total announced. Feeds the mission success metric.
func (b *TaskBoard) Completed() (done, total int) {
	for _, task := range b.tasks {
		if task.Status == TaskCompleted {
			done++
		}
	}
	return done, len(b.tasks)
}
