package engine

import (
	"math"
	"strings"
	"time"

	"inflow/internal/domain"
)

func (e *Engine) Users() []domain.User {
	e.lock()
	defer e.unlock()
	return domain.CloneUsers(e.state.Users)
}

func (e *Engine) User(id string) (domain.User, error) {
	e.lock()
	defer e.unlock()
	u, ok := findUser(e.state.Users, id)
	if !ok {
		return domain.User{}, &NotFoundError{Entity: "user", ID: id}
	}
	return u, nil
}

func (e *Engine) Tasks() []domain.Task {
	e.lock()
	defer e.unlock()
	return domain.CloneTasks(e.state.Tasks)
}

func (e *Engine) Task(id string) (domain.Task, error) {
	e.lock()
	defer e.unlock()
	i := e.taskIndex(id)
	if i < 0 {
		return domain.Task{}, &NotFoundError{Entity: "task", ID: id}
	}
	return e.state.Tasks[i].Clone(), nil
}

func (e *Engine) Documents() []domain.Document {
	e.lock()
	defer e.unlock()
	return domain.CloneDocuments(e.state.Documents)
}

func (e *Engine) Document(id string) (domain.Document, error) {
	e.lock()
	defer e.unlock()
	i := e.documentIndex(id)
	if i < 0 {
		return domain.Document{}, &NotFoundError{Entity: "document", ID: id}
	}
	return e.state.Documents[i].Clone(), nil
}

// DocumentsForTask returns the task's embedded documents.
func (e *Engine) DocumentsForTask(taskID string) ([]domain.Document, error) {
	e.lock()
	defer e.unlock()
	i := e.taskIndex(taskID)
	if i < 0 {
		return nil, &NotFoundError{Entity: "task", ID: taskID}
	}
	return domain.CloneDocuments(e.state.Tasks[i].Documents), nil
}

func (e *Engine) Comments() []domain.Comment {
	e.lock()
	defer e.unlock()
	return domain.CloneComments(e.state.Comments)
}

func (e *Engine) CommentsForTask(taskID string) ([]domain.Comment, error) {
	e.lock()
	defer e.unlock()
	if e.taskIndex(taskID) < 0 {
		return nil, &NotFoundError{Entity: "task", ID: taskID}
	}
	out := []domain.Comment{}
	for _, c := range e.state.Comments {
		if c.TaskID == taskID {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// InTray lists tasks assigned to userID in insertion order.
func (e *Engine) InTray(userID string) []domain.Task {
	return e.selectTasks(func(t domain.Task) bool { return t.AssigneeID == userID })
}

// OutTray lists tasks created by userID in insertion order.
func (e *Engine) OutTray(userID string) []domain.Task {
	return e.selectTasks(func(t domain.Task) bool { return t.CreatedBy == userID })
}

// TasksForUser lists tasks userID is assignee or creator of.
func (e *Engine) TasksForUser(userID string) []domain.Task {
	return e.selectTasks(involves(userID))
}

// OverdueTasks lists open tasks whose due date has passed.
func (e *Engine) OverdueTasks() []domain.Task {
	now := e.now()
	return e.selectTasks(func(t domain.Task) bool { return !t.Status.Closed() && overdue(t, now) })
}

func (e *Engine) TasksByStatus() map[domain.TaskStatus][]domain.Task {
	out := map[domain.TaskStatus][]domain.Task{}
	for _, s := range domain.TaskStatuses {
		out[s] = []domain.Task{}
	}
	for _, t := range e.Tasks() {
		out[t.Status] = append(out[t.Status], t)
	}
	return out
}

func (e *Engine) TasksByPriority() map[domain.TaskPriority][]domain.Task {
	out := map[domain.TaskPriority][]domain.Task{}
	for _, p := range domain.TaskPriorities {
		out[p] = []domain.Task{}
	}
	for _, t := range e.Tasks() {
		out[t.Priority] = append(out[t.Priority], t)
	}
	return out
}

// TaskFilter criteria are combined with AND; zero values are ignored.
type TaskFilter struct {
	Statuses   []domain.TaskStatus
	Priorities []domain.TaskPriority
	AssigneeID string
	CreatedBy  string
	// Query matches title or description, case-insensitively.
	Query string
}

func (e *Engine) FilterTasks(f TaskFilter) []domain.Task {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	return e.selectTasks(func(t domain.Task) bool {
		if len(f.Statuses) > 0 && !containsValue(f.Statuses, t.Status) {
			return false
		}
		if len(f.Priorities) > 0 && !containsValue(f.Priorities, t.Priority) {
			return false
		}
		if f.AssigneeID != "" && t.AssigneeID != f.AssigneeID {
			return false
		}
		if f.CreatedBy != "" && t.CreatedBy != f.CreatedBy {
			return false
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
		return true
	})
}

// Scope restricts Analytics. An empty UserID covers every task.
type Scope struct {
	UserID string
}

func (e *Engine) Analytics(scope Scope) domain.Analytics {
	pred := func(domain.Task) bool { return true }
	if scope.UserID != "" {
		pred = involves(scope.UserID)
	}
	return Summarize(e.selectTasks(pred), e.now())
}

// Summarize computes analytics over tasks as of now.
func Summarize(tasks []domain.Task, now time.Time) domain.Analytics {
	var a domain.Analytics
	a.TotalTasks = len(tasks)
	for _, t := range tasks {
		if t.Status == domain.StatusCompleted {
			a.CompletedTasks++
		}
		if t.Status.Pending() {
			a.PendingTasks++
		}
		if t.Status != domain.StatusCompleted && overdue(t, now) {
			a.OverdueTasksCount++
		}
	}
	if a.TotalTasks > 0 {
		a.CompletionRate = int(math.Round(float64(a.CompletedTasks) / float64(a.TotalTasks) * 100))
	}
	return a
}

// TaskStats breaks down the tasks userID is involved in.
func (e *Engine) TaskStats(userID string) domain.TaskStats {
	e.lock()
	defer e.unlock()
	var s domain.TaskStats
	for _, t := range e.state.Tasks {
		if t.AssigneeID == userID {
			s.InTray++
		}
		if t.CreatedBy == userID {
			s.OutTray++
		}
		if !involves(userID)(t) {
			continue
		}
		s.Total++
		switch t.Status {
		case domain.StatusCompleted:
			s.Completed++
		case domain.StatusInProgress:
			s.InProgress++
		case domain.StatusPendingReview:
			s.PendingReview++
		case domain.StatusApproved:
			s.Approved++
		}
	}
	return s
}

func (e *Engine) selectTasks(pred func(domain.Task) bool) []domain.Task {
	e.lock()
	defer e.unlock()
	out := []domain.Task{}
	for _, t := range e.state.Tasks {
		if pred(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func involves(userID string) func(domain.Task) bool {
	return func(t domain.Task) bool { return t.AssigneeID == userID || t.CreatedBy == userID }
}

func overdue(t domain.Task, now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	due, err := domain.ParseTime(*t.DueDate)
	if err != nil {
		return false
	}
	return due.Before(now)
}

func containsValue[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func (e *Engine) taskIndex(id string) int {
	for i, t := range e.state.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) documentIndex(id string) int {
	for i, d := range e.state.Documents {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) commentIndex(id string) int {
	for i, c := range e.state.Comments {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) userExists(id string) bool {
	_, ok := findUser(e.state.Users, id)
	return ok
}
