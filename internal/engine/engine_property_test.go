package engine_test

import (
	"fmt"
	"io"
	"log"
	"reflect"
	"testing"
	"time"

	"pgregory.net/rapid"

	"inflow/internal/domain"
	"inflow/internal/engine"
	"inflow/internal/kv"
)

var propertyUsers = []string{"user-001", "user-002", "user-404"}

func newPropertyEngine(store kv.Store, links engine.DocumentLinks) *engine.Engine {
	clock := testNow
	n := 0
	return engine.New(store,
		engine.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
		engine.WithIDs(func(kind string) string {
			n++
			return fmt.Sprintf("%s-p%d", kind, n)
		}),
		engine.WithDocumentLinks(links),
		engine.WithLogger(log.New(io.Discard, "", 0)),
	)
}

func pickTask(rt *rapid.T, e *engine.Engine) string {
	ids := []string{"task-404"}
	for _, t := range e.Tasks() {
		ids = append(ids, t.ID)
	}
	return rapid.SampledFrom(ids).Draw(rt, "taskID")
}

// Property: any sequence of operations, valid or not, leaves the state
// consistent, and what is persisted reloads to exactly what is in memory.
func TestOperationSequencesKeepIntegrity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store := kv.NewMemory()
		links := rapid.SampledFrom([]engine.DocumentLinks{engine.LinkByTaskID, engine.LinkByDescription}).Draw(rt, "links")
		e := newPropertyEngine(store, links)
		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			op := rapid.IntRange(0, 8).Draw(rt, "op")
			user := rapid.SampledFrom(propertyUsers).Draw(rt, "user")
			switch op {
			case 0:
				_, _ = e.CreateTask(engine.TaskInput{
					Title:      rapid.StringMatching(`[A-Za-z ]{0,12}`).Draw(rt, "title"),
					Status:     rapid.SampledFrom(append([]domain.TaskStatus{"", "bogus"}, domain.TaskStatuses...)).Draw(rt, "status"),
					Priority:   rapid.SampledFrom(append([]domain.TaskPriority{""}, domain.TaskPriorities...)).Draw(rt, "priority"),
					AssigneeID: user,
				})
			case 1:
				status := rapid.SampledFrom(domain.TaskStatuses).Draw(rt, "newStatus")
				_, _ = e.UpdateTaskStatus(pickTask(rt, e), status)
			case 2:
				_, _ = e.AddComment(pickTask(rt, e), engine.CommentInput{
					Content:  rapid.StringMatching(`[a-z]{0,8}`).Draw(rt, "content"),
					AuthorID: user,
					Mentions: []string{rapid.SampledFrom(propertyUsers).Draw(rt, "mention")},
				})
			case 3:
				comments := e.Comments()
				if len(comments) == 0 {
					continue
				}
				c := rapid.SampledFrom(comments).Draw(rt, "comment")
				_, _ = e.UpdateComment(c.ID, rapid.StringMatching(`[a-z]{0,8}`).Draw(rt, "edit"))
			case 4:
				taskID := pickTask(rt, e)
				_, _ = e.AddDocument(taskID, engine.DocumentInput{
					Name:        rapid.StringMatching(`[a-z]{0,6}`).Draw(rt, "name"),
					UploadedBy:  user,
					URL:         "/f",
					Category:    rapid.SampledFrom(append([]domain.DocumentCategory{"", "napkin"}, domain.DocumentCategories...)).Draw(rt, "category"),
					Description: rapid.SampledFrom([]string{"", "see " + taskID}).Draw(rt, "description"),
				})
			case 5:
				docs := e.Documents()
				if len(docs) == 0 {
					continue
				}
				d := rapid.SampledFrom(docs).Draw(rt, "document")
				_, _ = e.AddDocumentVersion(d.ID, engine.VersionInput{UploadedBy: user, URL: "/v"})
			case 6:
				_ = e.DeleteTask(pickTask(rt, e))
			case 7:
				e.SetActivePersona(user)
			case 8:
				if rapid.IntRange(0, 9).Draw(rt, "resetRoll") == 0 {
					e.ResetToSeed()
				}
			}
			if err := e.Verify(); err != nil {
				rt.Fatalf("step %d (op %d): %v", i, op, err)
			}
		}

		reloaded := newPropertyEngine(store, links)
		if !reflect.DeepEqual(reloaded.Snapshot(), e.Snapshot()) {
			rt.Fatalf("persisted state does not reload to the in-memory state")
		}
		want, _ := e.ActivePersona()
		got, _ := reloaded.ActivePersona()
		if want.ID != got.ID {
			rt.Fatalf("active persona reloaded as %q, want %q", got.ID, want.ID)
		}
	})
}

// Property: updatedAt never precedes createdAt and never moves backwards.
func TestUpdatedAtIsMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := newPropertyEngine(kv.NewMemory(), engine.LinkByTaskID)
		last := map[string]string{}
		for _, task := range e.Tasks() {
			last[task.ID] = task.UpdatedAt
		}
		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			taskID := pickTask(rt, e)
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				_, _ = e.UpdateTaskStatus(taskID, rapid.SampledFrom(domain.TaskStatuses).Draw(rt, "status"))
			case 1:
				_, _ = e.AddComment(taskID, engine.CommentInput{Content: "x", AuthorID: "user-002"})
			case 2:
				_, _ = e.AddDocument(taskID, engine.DocumentInput{Name: "d", UploadedBy: "user-001", URL: "/d"})
			}
			for _, task := range e.Tasks() {
				prev, seen := last[task.ID]
				cur, _ := domain.ParseTime(task.UpdatedAt)
				created, _ := domain.ParseTime(task.CreatedAt)
				if cur.Before(created) {
					rt.Fatalf("task %s updatedAt %s precedes createdAt %s", task.ID, task.UpdatedAt, task.CreatedAt)
				}
				if seen {
					p, _ := domain.ParseTime(prev)
					if cur.Before(p) {
						rt.Fatalf("task %s updatedAt moved back from %s to %s", task.ID, prev, task.UpdatedAt)
					}
				}
				last[task.ID] = task.UpdatedAt
			}
		}
	})
}
