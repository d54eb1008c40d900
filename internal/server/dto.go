package server

import (
	"inflow/internal/domain"
	"inflow/internal/engine"
	"inflow/internal/events"
)

// Request payloads

type CreateTaskRequest struct {
	Title       string  `json:"title" minLength:"1"`
	Description *string `json:"description,omitempty"`
	Type        *string `json:"type,omitempty" enum:"review,approval,information,action"`
	Status      *string `json:"status,omitempty" enum:"draft,assigned,in_progress,pending_review,approved,rejected,completed,cancelled"`
	Priority    *string `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	AssigneeID  *string `json:"assigneeId,omitempty"`
	CreatedBy   *string `json:"createdBy,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Type        *string `json:"type,omitempty" enum:"review,approval,information,action"`
	Status      *string `json:"status,omitempty" enum:"draft,assigned,in_progress,pending_review,approved,rejected,completed,cancelled"`
	Priority    *string `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	AssigneeID  *string `json:"assigneeId,omitempty"`
	DueDate     *string `json:"dueDate,omitempty" doc:"Empty string clears the due date"`
}

type SetTaskStatusRequest struct {
	Status string `json:"status" enum:"draft,assigned,in_progress,pending_review,approved,rejected,completed,cancelled"`
}

type AddCommentRequest struct {
	Content  string   `json:"content" minLength:"1"`
	AuthorID *string  `json:"authorId,omitempty" doc:"Defaults to the active persona"`
	Mentions []string `json:"mentions,omitempty"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" minLength:"1"`
}

type AddDocumentRequest struct {
	Name        string  `json:"name" minLength:"1"`
	Type        string  `json:"type,omitempty" doc:"MIME type"`
	Size        int64   `json:"size,omitempty"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
	UploadedBy  *string `json:"uploadedBy,omitempty" doc:"Defaults to the active persona"`
	URL         string  `json:"url"`
	Changes     *string `json:"changes,omitempty"`
}

type AddVersionRequest struct {
	UploadedBy *string `json:"uploadedBy,omitempty" doc:"Defaults to the active persona"`
	URL        string  `json:"url"`
	Size       *int64  `json:"size,omitempty"`
	Changes    *string `json:"changes,omitempty"`
}

type SetPersonaRequest struct {
	UserID string `json:"userId"`
}

// Response payloads

type TaskList struct {
	Items []domain.Task `json:"items"`
}

type UserList struct {
	Items []domain.User `json:"items"`
}

type CommentList struct {
	Items []domain.Comment `json:"items"`
}

type DocumentList struct {
	Items []domain.Document `json:"items"`
}

type EventList struct {
	Items []events.Event `json:"items"`
}

type PersonaResponse struct {
	User *domain.User `json:"user"`
}

func (r CreateTaskRequest) input() engine.TaskInput {
	in := engine.TaskInput{
		Title:       r.Title,
		Description: stringOrEmpty(r.Description),
		Type:        domain.TaskType(stringOrEmpty(r.Type)),
		Status:      domain.TaskStatus(stringOrEmpty(r.Status)),
		Priority:    domain.TaskPriority(stringOrEmpty(r.Priority)),
		AssigneeID:  stringOrEmpty(r.AssigneeID),
		CreatedBy:   stringOrEmpty(r.CreatedBy),
		DueDate:     r.DueDate,
	}
	return in
}

func (r UpdateTaskRequest) patch() engine.TaskPatch {
	p := engine.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		AssigneeID:  r.AssigneeID,
		DueDate:     r.DueDate,
	}
	if r.Type != nil {
		v := domain.TaskType(*r.Type)
		p.Type = &v
	}
	if r.Status != nil {
		v := domain.TaskStatus(*r.Status)
		p.Status = &v
	}
	if r.Priority != nil {
		v := domain.TaskPriority(*r.Priority)
		p.Priority = &v
	}
	return p
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
