package engine

import (
	"strings"

	"inflow/internal/domain"
	"inflow/internal/events"
	"inflow/internal/seed"
)

// DocumentInput describes the first version of a new document. Changes
// defaults to "Initial version".
type DocumentInput struct {
	Name        string
	Type        string
	Size        int64
	Category    domain.DocumentCategory
	Description string
	UploadedBy  string
	URL         string
	Changes     string
}

type VersionInput struct {
	UploadedBy string
	URL        string
	Size       int64
	Changes    string
}

const initialVersionNote = "Initial version"

// AddDocument attaches a new version-1 document to a task.
func (e *Engine) AddDocument(taskID string, in DocumentInput) (domain.Document, error) {
	var added domain.Document
	err := e.mutate("add document", func() ([]events.Event, error) {
		i := e.taskIndex(taskID)
		if i < 0 {
			return nil, &NotFoundError{Entity: "task", ID: taskID}
		}
		if strings.TrimSpace(in.Name) == "" {
			return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
		}
		if err := e.profile.CheckCategory(in.Category); err != nil {
			return nil, &ValidationError{Field: "category", Reason: err.Error()}
		}
		if !e.userExists(in.UploadedBy) {
			return nil, &ReferentialError{Entity: "document", Field: "uploadedBy", ID: in.UploadedBy}
		}
		changes := in.Changes
		if changes == "" {
			changes = initialVersionNote
		}
		now := e.stamp()
		id := e.newID("doc")
		d := e.profile.ShapeDocument(domain.Document{
			ID:          id,
			Name:        in.Name,
			Type:        in.Type,
			Size:        in.Size,
			Category:    in.Category,
			Description: in.Description,
			UploadedBy:  in.UploadedBy,
			UploadedAt:  now,
			Version:     1,
			URL:         in.URL,
			Versions: []domain.DocumentVersion{{
				ID:         seed.VersionID(id, 1),
				Version:    1,
				UploadedBy: in.UploadedBy,
				UploadedAt: now,
				URL:        in.URL,
				Changes:    changes,
			}},
			TaskID: taskID,
		})
		t := e.state.Tasks[i].Clone()
		t.Documents = append(t.Documents, d.Clone())
		e.touch(&t)
		e.state.Documents = append(e.state.Documents, d)
		e.state.Tasks[i] = t
		added = d.Clone()
		return []events.Event{e.event(events.DocumentAdded, "document", d.ID, d.UploadedBy,
			events.EventPayload{"taskId": taskID, "name": d.Name})}, nil
	})
	return added, err
}

// AddDocumentVersion appends the next version and mirrors it to the
// document's top-level fields and to the owning task's embedded copy.
func (e *Engine) AddDocumentVersion(documentID string, in VersionInput) (domain.Document, error) {
	var updated domain.Document
	err := e.mutate("add document version", func() ([]events.Event, error) {
		di := e.documentIndex(documentID)
		if di < 0 {
			return nil, &NotFoundError{Entity: "document", ID: documentID}
		}
		if !e.userExists(in.UploadedBy) {
			return nil, &ReferentialError{Entity: "document", Field: "uploadedBy", ID: in.UploadedBy}
		}
		d := e.state.Documents[di].Clone()
		n := d.Version + 1
		now := e.stamp()
		d.Versions = append(d.Versions, domain.DocumentVersion{
			ID:         seed.VersionID(d.ID, n),
			Version:    n,
			UploadedBy: in.UploadedBy,
			UploadedAt: now,
			URL:        in.URL,
			Changes:    in.Changes,
		})
		d.Version = n
		d.URL = in.URL
		d.UploadedAt = now
		if in.Size > 0 {
			d.Size = in.Size
		}
		for ti := range e.state.Tasks {
			if !embedsDocument(e.state.Tasks[ti], d.ID) {
				continue
			}
			t := e.state.Tasks[ti].Clone()
			for j := range t.Documents {
				if t.Documents[j].ID == d.ID {
					t.Documents[j] = d.Clone()
				}
			}
			e.touch(&t)
			e.state.Tasks[ti] = t
		}
		e.state.Documents[di] = d
		updated = d.Clone()
		return []events.Event{e.event(events.DocumentVersionAdded, "document", d.ID, in.UploadedBy,
			events.EventPayload{"version": n, "taskId": d.TaskID})}, nil
	})
	return updated, err
}

func embedsDocument(t domain.Task, id string) bool {
	for _, d := range t.Documents {
		if d.ID == id {
			return true
		}
	}
	return false
}
