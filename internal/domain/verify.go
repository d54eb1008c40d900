package domain

import (
	"errors"
	"fmt"
	"reflect"
)

// Verify checks a snapshot for referential closure, embedded copy consistency,
// document version log integrity, enum membership and timestamp ordering.
// All violations are returned joined; nil means the snapshot is consistent.
func Verify(s Snapshot, profile Profile) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	users := map[string]bool{}
	for _, u := range s.Users {
		if users[u.ID] {
			fail("duplicate user %s", u.ID)
		}
		users[u.ID] = true
		if err := profile.CheckUser(u); err != nil {
			errs = append(errs, err)
		}
	}

	comments := map[string]Comment{}
	for _, c := range s.Comments {
		if _, dup := comments[c.ID]; dup {
			fail("duplicate comment %s", c.ID)
		}
		comments[c.ID] = c
		if !users[c.AuthorID] {
			fail("comment %s: unknown author %s", c.ID, c.AuthorID)
		}
		for _, m := range c.Mentions {
			if !users[m] {
				fail("comment %s: unknown mention %s", c.ID, m)
			}
		}
		if c.UpdatedAt != "" && before(c.UpdatedAt, c.CreatedAt) {
			fail("comment %s: updatedAt precedes createdAt", c.ID)
		}
	}

	documents := map[string]Document{}
	for _, d := range s.Documents {
		if _, dup := documents[d.ID]; dup {
			fail("duplicate document %s", d.ID)
		}
		documents[d.ID] = d
		if !users[d.UploadedBy] {
			fail("document %s: unknown uploader %s", d.ID, d.UploadedBy)
		}
		if err := profile.CheckCategory(d.Category); err != nil {
			fail("document %s: %v", d.ID, err)
		}
		if profile.Normalize() == ProfileLegacy && d.Category != "" {
			fail("document %s: category not allowed in legacy profile", d.ID)
		}
		if err := verifyVersions(d, users); err != nil {
			errs = append(errs, err)
		}
	}

	tasks := map[string]bool{}
	embeddedDocs := map[string]string{}
	for _, t := range s.Tasks {
		if tasks[t.ID] {
			fail("duplicate task %s", t.ID)
		}
		tasks[t.ID] = true
		if !users[t.AssigneeID] {
			fail("task %s: unknown assignee %s", t.ID, t.AssigneeID)
		}
		if !users[t.CreatedBy] {
			fail("task %s: unknown creator %s", t.ID, t.CreatedBy)
		}
		if !t.Type.Valid() {
			fail("task %s: invalid type %q", t.ID, t.Type)
		}
		if !t.Status.Valid() {
			fail("task %s: invalid status %q", t.ID, t.Status)
		}
		if !t.Priority.Valid() {
			fail("task %s: invalid priority %q", t.ID, t.Priority)
		}
		if before(t.UpdatedAt, t.CreatedAt) {
			fail("task %s: updatedAt precedes createdAt", t.ID)
		}
		for _, ec := range t.Comments {
			gc, ok := comments[ec.ID]
			switch {
			case !ok:
				fail("task %s: embedded comment %s missing from comments", t.ID, ec.ID)
			case gc.TaskID != t.ID:
				fail("task %s: embedded comment %s belongs to task %s", t.ID, ec.ID, gc.TaskID)
			case !reflect.DeepEqual(gc.Clone(), ec.Clone()):
				fail("task %s: embedded comment %s differs from stored copy", t.ID, ec.ID)
			}
		}
		for _, ed := range t.Documents {
			gd, ok := documents[ed.ID]
			switch {
			case !ok:
				fail("task %s: embedded document %s missing from documents", t.ID, ed.ID)
			case gd.TaskID != "" && gd.TaskID != t.ID:
				fail("task %s: embedded document %s belongs to task %s", t.ID, ed.ID, gd.TaskID)
			case !reflect.DeepEqual(gd.Clone(), ed.Clone()):
				fail("task %s: embedded document %s differs from stored copy", t.ID, ed.ID)
			}
			if prev, seen := embeddedDocs[ed.ID]; seen && prev != t.ID {
				fail("document %s embedded in tasks %s and %s", ed.ID, prev, t.ID)
			}
			embeddedDocs[ed.ID] = t.ID
		}
	}

	for _, c := range s.Comments {
		if !tasks[c.TaskID] {
			fail("comment %s: unknown task %s", c.ID, c.TaskID)
			continue
		}
		if !embeds(s.Tasks, c.TaskID, func(t Task) bool { return hasComment(t, c.ID) }) {
			fail("comment %s: not embedded in task %s", c.ID, c.TaskID)
		}
	}
	for _, d := range s.Documents {
		if d.TaskID == "" {
			continue
		}
		if !tasks[d.TaskID] {
			fail("document %s: unknown task %s", d.ID, d.TaskID)
			continue
		}
		if embeddedDocs[d.ID] != d.TaskID {
			fail("document %s: not embedded in task %s", d.ID, d.TaskID)
		}
	}
	return errors.Join(errs...)
}

func verifyVersions(d Document, users map[string]bool) error {
	if d.Version < 1 {
		return fmt.Errorf("document %s: version %d below 1", d.ID, d.Version)
	}
	if len(d.Versions) != d.Version {
		return fmt.Errorf("document %s: %d version entries for version %d", d.ID, len(d.Versions), d.Version)
	}
	for i, v := range d.Versions {
		if v.Version != i+1 {
			return fmt.Errorf("document %s: version entry %d numbered %d", d.ID, i, v.Version)
		}
		if !users[v.UploadedBy] {
			return fmt.Errorf("document %s: version %d unknown uploader %s", d.ID, v.Version, v.UploadedBy)
		}
	}
	return nil
}

func embeds(tasks []Task, taskID string, pred func(Task) bool) bool {
	for _, t := range tasks {
		if t.ID == taskID {
			return pred(t)
		}
	}
	return false
}

func hasComment(t Task, id string) bool {
	for _, c := range t.Comments {
		if c.ID == id {
			return true
		}
	}
	return false
}

// before reports whether a is strictly earlier than b. Unparseable values never compare.
func before(a, b string) bool {
	ta, err := ParseTime(a)
	if err != nil {
		return false
	}
	tb, err := ParseTime(b)
	if err != nil {
		return false
	}
	return ta.Before(tb)
}
