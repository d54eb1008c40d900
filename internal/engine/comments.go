package engine

import (
	"strings"

	"inflow/internal/domain"
	"inflow/internal/events"
)

type CommentInput struct {
	Content  string
	AuthorID string
	Mentions []string
}

// AddComment appends a comment to the global list and to the task's
// embedded list in one step.
func (e *Engine) AddComment(taskID string, in CommentInput) (domain.Comment, error) {
	var added domain.Comment
	err := e.mutate("add comment", func() ([]events.Event, error) {
		i := e.taskIndex(taskID)
		if i < 0 {
			return nil, &NotFoundError{Entity: "task", ID: taskID}
		}
		if strings.TrimSpace(in.Content) == "" {
			return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
		}
		if !e.userExists(in.AuthorID) {
			return nil, &ReferentialError{Entity: "comment", Field: "authorId", ID: in.AuthorID}
		}
		for _, m := range in.Mentions {
			if !e.userExists(m) {
				return nil, &ReferentialError{Entity: "comment", Field: "mentions", ID: m}
			}
		}
		c := domain.Comment{
			ID:        e.newID("comment"),
			Content:   in.Content,
			AuthorID:  in.AuthorID,
			CreatedAt: e.stamp(),
			Mentions:  in.Mentions,
			TaskID:    taskID,
		}.Clone()
		t := e.state.Tasks[i].Clone()
		t.Comments = append(t.Comments, c.Clone())
		e.touch(&t)
		e.state.Comments = append(e.state.Comments, c)
		e.state.Tasks[i] = t
		added = c.Clone()
		return []events.Event{e.event(events.CommentAdded, "comment", c.ID, c.AuthorID,
			events.EventPayload{"taskId": taskID, "mentions": c.Mentions})}, nil
	})
	return added, err
}

// UpdateComment replaces the content of a comment everywhere it is held.
func (e *Engine) UpdateComment(commentID, content string) (domain.Comment, error) {
	var updated domain.Comment
	err := e.mutate("update comment", func() ([]events.Event, error) {
		ci := e.commentIndex(commentID)
		if ci < 0 {
			return nil, &NotFoundError{Entity: "comment", ID: commentID}
		}
		if strings.TrimSpace(content) == "" {
			return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
		}
		c := e.state.Comments[ci].Clone()
		c.Content = content
		c.UpdatedAt = e.stamp()
		if later(c.CreatedAt, c.UpdatedAt) {
			c.UpdatedAt = c.CreatedAt
		}
		if ti := e.taskIndex(c.TaskID); ti >= 0 {
			t := e.state.Tasks[ti].Clone()
			for j := range t.Comments {
				if t.Comments[j].ID == commentID {
					t.Comments[j] = c.Clone()
				}
			}
			e.touch(&t)
			e.state.Tasks[ti] = t
		}
		e.state.Comments[ci] = c
		updated = c.Clone()
		return []events.Event{e.event(events.CommentUpdated, "comment", c.ID, c.AuthorID,
			events.EventPayload{"taskId": c.TaskID})}, nil
	})
	return updated, err
}
