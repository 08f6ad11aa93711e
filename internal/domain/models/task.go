// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task statuses. Completed and expired are terminal; expired is normally
// written only by the expiration sweep.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
	TaskExpired    = "expired"
)

// TaskStatuses lists every valid status.
var TaskStatuses = []string{TaskTodo, TaskInProgress, TaskCompleted, TaskExpired}

// OpenTaskStatuses are the statuses the sweep (and the overdue count) consider.
var OpenTaskStatuses = []string{TaskTodo, TaskInProgress}

// Task categories.
const (
	CategoryBug           = "bug"
	CategoryFeature       = "feature"
	CategoryImprovement   = "improvement"
	CategoryDocumentation = "documentation"
	CategoryOther         = "other"
)

// TaskCategories lists every valid category.
var TaskCategories = []string{CategoryBug, CategoryFeature, CategoryImprovement, CategoryDocumentation, CategoryOther}

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// TaskPriorities lists every valid priority.
var TaskPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

// IsValidTaskStatus reports whether s is a known task status.
func IsValidTaskStatus(s string) bool { return contains(TaskStatuses, s) }

// IsValidTaskCategory reports whether c is a known task category.
func IsValidTaskCategory(c string) bool { return contains(TaskCategories, c) }

// IsValidTaskPriority reports whether p is a known task priority.
func IsValidTaskPriority(p string) bool { return contains(TaskPriorities, p) }

// IsOpenTaskStatus reports whether s is todo or in_progress.
func IsOpenTaskStatus(s string) bool { return contains(OpenTaskStatuses, s) }

// Task is a unit of work owned by one organization.
type Task struct {
	ID             primitive.ObjectID  `bson:"_id" json:"id"`
	Title          string              `bson:"title" json:"title"`
	Description    *string             `bson:"description,omitempty" json:"description,omitempty"`
	Category       string              `bson:"category" json:"category"`
	Priority       string              `bson:"priority" json:"priority"`
	Status         string              `bson:"status" json:"status"`
	DueDate        time.Time           `bson:"due_date" json:"due_date"`
	AssigneeID     *primitive.ObjectID `bson:"assignee_id,omitempty" json:"assignee_id,omitempty"`
	CreatorID      primitive.ObjectID  `bson:"creator_id" json:"creator_id"`
	OrganizationID primitive.ObjectID  `bson:"organization_id" json:"organization_id"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updated_at"`
}

// IsOverdue reports whether the task is still open past its due date.
func (t Task) IsOverdue(now time.Time) bool {
	return IsOpenTaskStatus(t.Status) && t.DueDate.Before(now)
}

// TaskView is a Task with display names joined in from users.
type TaskView struct {
	Task         `bson:",inline"`
	AssigneeName string `bson:"assignee_name,omitempty" json:"assignee_name,omitempty"`
	CreatorName  string `bson:"creator_name,omitempty" json:"creator_name,omitempty"`
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
