package engine

import (
	"strings"

	"inflow/internal/domain"
	"inflow/internal/events"
)

// TaskInput describes a new task. Empty Type, Status and Priority default
// to action, draft and medium. An empty CreatedBy defaults to the active
// persona and an empty AssigneeID to the creator.
type TaskInput struct {
	Title       string
	Description string
	Type        domain.TaskType
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	AssigneeID  string
	CreatedBy   string
	DueDate     *string
}

// TaskPatch lists the fields UpdateTask may change. Nil fields are left as
// they are; an empty DueDate clears it.
type TaskPatch struct {
	Title       *string
	Description *string
	Type        *domain.TaskType
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	AssigneeID  *string
	DueDate     *string
}

func (e *Engine) CreateTask(in TaskInput) (domain.Task, error) {
	var created domain.Task
	err := e.mutate("create task", func() ([]events.Event, error) {
		if in.CreatedBy == "" {
			in.CreatedBy = e.active
		}
		if in.AssigneeID == "" {
			in.AssigneeID = in.CreatedBy
		}
		if in.Type == "" {
			in.Type = domain.TaskTypeAction
		}
		if in.Status == "" {
			in.Status = domain.StatusDraft
		}
		if in.Priority == "" {
			in.Priority = domain.PriorityMedium
		}
		if strings.TrimSpace(in.Title) == "" {
			return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
		}
		if err := checkEnums(in.Type, in.Status, in.Priority); err != nil {
			return nil, err
		}
		if err := checkDueDate(in.DueDate); err != nil {
			return nil, err
		}
		if !e.userExists(in.CreatedBy) {
			return nil, &ReferentialError{Entity: "task", Field: "createdBy", ID: in.CreatedBy}
		}
		if !e.userExists(in.AssigneeID) {
			return nil, &ReferentialError{Entity: "task", Field: "assigneeId", ID: in.AssigneeID}
		}
		now := e.stamp()
		t := domain.Task{
			ID:          e.newID("task"),
			Title:       in.Title,
			Description: in.Description,
			Type:        in.Type,
			Status:      in.Status,
			Priority:    in.Priority,
			AssigneeID:  in.AssigneeID,
			CreatedBy:   in.CreatedBy,
			CreatedAt:   now,
			UpdatedAt:   now,
			Documents:   []domain.Document{},
			Comments:    []domain.Comment{},
		}
		if in.DueDate != nil && *in.DueDate != "" {
			due := *in.DueDate
			t.DueDate = &due
		}
		e.state.Tasks = append(e.state.Tasks, t)
		created = t.Clone()
		return []events.Event{e.event(events.TaskCreated, "task", t.ID, t.CreatedBy,
			events.EventPayload{"title": t.Title, "assigneeId": t.AssigneeID, "status": string(t.Status)})}, nil
	})
	return created, err
}

func (e *Engine) UpdateTask(taskID string, p TaskPatch) (domain.Task, error) {
	var updated domain.Task
	err := e.mutate("update task", func() ([]events.Event, error) {
		i := e.taskIndex(taskID)
		if i < 0 {
			return nil, &NotFoundError{Entity: "task", ID: taskID}
		}
		t := e.state.Tasks[i].Clone()
		changed := []string{}
		if p.Title != nil {
			if strings.TrimSpace(*p.Title) == "" {
				return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
			}
			t.Title = *p.Title
			changed = append(changed, "title")
		}
		if p.Description != nil {
			t.Description = *p.Description
			changed = append(changed, "description")
		}
		if p.Type != nil {
			t.Type = *p.Type
			changed = append(changed, "type")
		}
		if p.Status != nil {
			t.Status = *p.Status
			changed = append(changed, "status")
		}
		if p.Priority != nil {
			t.Priority = *p.Priority
			changed = append(changed, "priority")
		}
		if err := checkEnums(t.Type, t.Status, t.Priority); err != nil {
			return nil, err
		}
		if p.AssigneeID != nil {
			if !e.userExists(*p.AssigneeID) {
				return nil, &ReferentialError{Entity: "task", Field: "assigneeId", ID: *p.AssigneeID}
			}
			t.AssigneeID = *p.AssigneeID
			changed = append(changed, "assigneeId")
		}
		if p.DueDate != nil {
			if err := checkDueDate(p.DueDate); err != nil {
				return nil, err
			}
			if *p.DueDate == "" {
				t.DueDate = nil
			} else {
				due := *p.DueDate
				t.DueDate = &due
			}
			changed = append(changed, "dueDate")
		}
		e.touch(&t)
		e.state.Tasks[i] = t
		updated = t.Clone()
		return []events.Event{e.event(events.TaskUpdated, "task", t.ID, e.active,
			events.EventPayload{"fields": changed})}, nil
	})
	return updated, err
}

func (e *Engine) UpdateTaskStatus(taskID string, status domain.TaskStatus) (domain.Task, error) {
	return e.UpdateTask(taskID, TaskPatch{Status: &status})
}

// DeleteTask removes the task together with its comments and documents.
func (e *Engine) DeleteTask(taskID string) error {
	return e.mutate("delete task", func() ([]events.Event, error) {
		i := e.taskIndex(taskID)
		if i < 0 {
			return nil, &NotFoundError{Entity: "task", ID: taskID}
		}
		task := e.state.Tasks[i]
		tasks := make([]domain.Task, 0, len(e.state.Tasks)-1)
		tasks = append(tasks, e.state.Tasks[:i]...)
		tasks = append(tasks, e.state.Tasks[i+1:]...)

		comments := []domain.Comment{}
		removedComments := 0
		for _, c := range e.state.Comments {
			if c.TaskID == taskID {
				removedComments++
				continue
			}
			comments = append(comments, c)
		}

		embedded := map[string]bool{}
		for _, d := range task.Documents {
			embedded[d.ID] = true
		}
		documents := []domain.Document{}
		removed := map[string]bool{}
		for _, d := range e.state.Documents {
			if e.ownedBy(d, taskID, embedded) {
				removed[d.ID] = true
				continue
			}
			if d.TaskID == taskID {
				d.TaskID = ""
			}
			documents = append(documents, d)
		}

		for j := range tasks {
			tasks[j].Documents = dropDocuments(tasks[j].Documents, removed)
		}

		e.state.Tasks = tasks
		e.state.Comments = comments
		e.state.Documents = documents
		return []events.Event{e.event(events.TaskDeleted, "task", taskID, e.active,
			events.EventPayload{"comments": removedComments, "documents": len(removed)})}, nil
	})
}

func (e *Engine) ownedBy(d domain.Document, taskID string, embedded map[string]bool) bool {
	if e.links == LinkByDescription {
		return strings.Contains(d.Description, taskID)
	}
	return d.TaskID == taskID || embedded[d.ID]
}

func dropDocuments(docs []domain.Document, removed map[string]bool) []domain.Document {
	if len(removed) == 0 {
		return docs
	}
	out := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if !removed[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

func checkEnums(tt domain.TaskType, s domain.TaskStatus, p domain.TaskPriority) error {
	if !tt.Valid() {
		return &ValidationError{Field: "type", Reason: "unknown value " + string(tt)}
	}
	if !s.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown value " + string(s)}
	}
	if !p.Valid() {
		return &ValidationError{Field: "priority", Reason: "unknown value " + string(p)}
	}
	return nil
}

func checkDueDate(due *string) error {
	if due == nil || *due == "" {
		return nil
	}
	if _, err := domain.ParseTime(*due); err != nil {
		return &ValidationError{Field: "dueDate", Reason: "must be an RFC 3339 timestamp"}
	}
	return nil
}
