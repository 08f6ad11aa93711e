package taskservice

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stats summarizes an organization's tasks at one instant.
type Stats struct {
	Total      int            `json:"total"`
	Overdue    int            `json:"overdue"`
	ByStatus   map[string]int `json:"by_status"`
	ByCategory map[string]int `json:"by_category"`
	ByPriority map[string]int `json:"by_priority"`
	ByUser     []UserStats    `json:"by_user"`
}

// UserStats counts tasks assigned to one member.
type UserStats struct {
	UserID    primitive.ObjectID `json:"user_id"`
	Name      string             `json:"name"`
	Total     int                `json:"total"`
	Completed int                `json:"completed"`
}

func zeroCounts(keys []string) map[string]int {
	m := make(map[string]int, len(keys))
	for _, k := range keys {
		m[k] = 0
	}
	return m
}

// ComputeStats derives Stats from tasks and the organization's members.
// Overdue counts open tasks due before now, which can include tasks the
// sweep has not reached yet. Every member appears in ByUser, sorted by name.
func ComputeStats(tasks []models.Task, members []models.User, now time.Time) Stats {
	st := Stats{
		Total:      len(tasks),
		ByStatus:   zeroCounts(models.TaskStatuses),
		ByCategory: zeroCounts(models.TaskCategories),
		ByPriority: zeroCounts(models.TaskPriorities),
	}

	perUser := make(map[primitive.ObjectID]*UserStats, len(members))
	for _, m := range members {
		perUser[m.ID] = &UserStats{UserID: m.ID, Name: m.FullName}
	}

	for _, t := range tasks {
		st.ByStatus[t.Status]++
		st.ByCategory[t.Category]++
		st.ByPriority[t.Priority]++
		if t.IsOverdue(now) {
			st.Overdue++
		}
		if t.AssigneeID == nil {
			continue
		}
		us, ok := perUser[*t.AssigneeID]
		if !ok {
			continue
		}
		us.Total++
		if t.Status == models.TaskCompleted {
			us.Completed++
		}
	}

	st.ByUser = make([]UserStats, 0, len(perUser))
	for _, us := range perUser {
		st.ByUser = append(st.ByUser, *us)
	}
	sort.Slice(st.ByUser, func(i, j int) bool {
		if st.ByUser[i].Name != st.ByUser[j].Name {
			return st.ByUser[i].Name < st.ByUser[j].Name
		}
		return st.ByUser[i].UserID.Hex() < st.ByUser[j].UserID.Hex()
	})
	return st
}

// Stats recomputes statistics from the caller's organization's live task set.
func (s *Service) Stats(ctx context.Context, caller *auth.SessionUser) (Stats, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return Stats{}, err
	}
	if err := authz.Authorize(caller, authz.OpViewStats, authz.InOrg(orgID)); err != nil {
		return Stats{}, err
	}
	tasks, err := s.Tasks.ListByOrg(ctx, orgID)
	if err != nil {
		return Stats{}, apperr.Wrap(err)
	}
	members, err := s.Users.ListByOrg(ctx, orgID)
	if err != nil {
		return Stats{}, apperr.Wrap(err)
	}
	return ComputeStats(tasks, members, s.Now()), nil
}
