package core

import "github.com/google/uuid"

// TaskID is a unique task identifier.
type TaskID = uuid.UUID

// TaskState tracks a pickup-and-delivery task through its lifecycle.
type TaskState int

const (
	TaskPending   TaskState = iota // waiting for an agent
	TaskAssigned                   // agent travelling to the pickup
	TaskCarrying                   // agent travelling to the delivery
	TaskDelivered
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskAssigned:
		return "assigned"
	case TaskCarrying:
		return "carrying"
	case TaskDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// Task represents one pickup-and-delivery request.
type Task struct {
	ID       TaskID
	Pickup   Coord
	Delivery Coord
	State    TaskState
	Agent    AgentID // valid unless State is TaskPending

	CreatedAt   int // tick of arrival
	AssignedAt  int
	CompletedAt int
}

// NewTask creates a pending task.
func NewTask(id TaskID, pickup, delivery Coord, createdAt int) *Task {
	return &Task{
		ID:        id,
		Pickup:    pickup,
		Delivery:  delivery,
		State:     TaskPending,
		CreatedAt: createdAt,
	}
}

// Target returns the cell the carrying agent heads for next.
func (t *Task) Target() Coord {
	if t.State == TaskCarrying {
		return t.Delivery
	}
	return t.Pickup
}

// ServiceTime returns ticks from arrival to delivery, or -1 if the task is
// still open.
func (t *Task) ServiceTime() int {
	if t.State != TaskDelivered {
		return -1
	}
	return t.CompletedAt - t.CreatedAt
}
