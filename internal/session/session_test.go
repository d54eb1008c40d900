package session_test

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"inflow/internal/domain"
	"inflow/internal/engine"
	"inflow/internal/kv"
	"inflow/internal/seed"
	"inflow/internal/session"
)

func newGlobal(t *testing.T, store *kv.Memory) *engine.Engine {
	t.Helper()
	e := engine.New(store,
		engine.WithClock(func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }),
		engine.WithLogger(log.New(io.Discard, "", 0)),
	)
	e.Initialize()
	return e
}

func TestSharedSession(t *testing.T) {
	global := newGlobal(t, kv.NewMemory())
	s, err := session.New(global, "user-002", session.Shared, session.Options{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.Activate()
	if u, _ := global.ActivePersona(); u.ID != "user-002" {
		t.Fatalf("shared activation must switch the active persona, got %s", u.ID)
	}
	if got := len(s.Tasks()); got != 4 {
		t.Fatalf("expected 4 visible tasks, got %d", got)
	}
	if got := len(s.ActiveTasks()); got != 2 {
		t.Fatalf("expected 2 open assigned tasks, got %d", got)
	}
	if _, err := s.Task("task-004"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("task-004 belongs to user-001 only, got %v", err)
	}
	task, err := s.CreateTask(engine.TaskInput{Title: "Order crane"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.CreatedBy != "user-002" || task.AssigneeID != "user-002" {
		t.Fatalf("session task not owned by persona: %+v", task)
	}
	c, err := s.AddComment(task.ID, "Booked for Monday", nil)
	if err != nil || c.AuthorID != "user-002" {
		t.Fatalf("add comment: %+v %v", c, err)
	}
	if _, err := global.Task(task.ID); err != nil {
		t.Fatalf("shared writes must land in the global pool: %v", err)
	}
	s.Reset()
	if _, err := global.Task(task.ID); err != nil {
		t.Fatalf("shared reset must not discard data: %v", err)
	}
}

func TestIsolatedSessionsDoNotInterfere(t *testing.T) {
	store := kv.NewMemory()
	global := newGlobal(t, store)
	a, err := session.New(global, "user-001", session.Isolated, session.Options{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	b, err := session.New(global, "user-002", session.Isolated, session.Options{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	a.Activate()
	b.Activate()
	if got := len(a.Tasks()); got != 2 {
		t.Fatalf("expected 2 template tasks for user-001, got %d", got)
	}
	if got := len(b.Tasks()); got != 3 {
		t.Fatalf("expected 3 template tasks for user-002, got %d", got)
	}
	if _, err := a.CreateTask(engine.TaskInput{Title: "Private work"}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if got := len(b.Tasks()); got != 3 {
		t.Fatalf("user-002 saw user-001's task")
	}
	if got := len(global.Tasks()); got != 5 {
		t.Fatalf("isolated writes leaked into the shared pool")
	}
	if got := store.Keys("inflow-persona-user-001-"); len(got) != 5 {
		t.Fatalf("expected 5 partition keys, got %v", got)
	}

	a.Reset()
	if got := store.Keys("inflow-persona-user-001-"); len(got) != 0 {
		t.Fatalf("reset left partition keys %v", got)
	}
	if got := store.Keys("inflow-persona-user-002-"); len(got) != 5 {
		t.Fatalf("reset touched another partition: %v", got)
	}
	if v, _, _ := store.Read("inflow-demo-initialized"); v != "true" {
		t.Fatalf("reset touched the shared pool")
	}
	a.Activate()
	if got := len(a.Tasks()); got != 2 {
		t.Fatalf("expected reseeded partition, got %d tasks", got)
	}
}

func TestSessionErrors(t *testing.T) {
	global := newGlobal(t, kv.NewMemory())
	if _, err := session.New(global, "user-999", session.Shared, session.Options{}); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found for unknown persona, got %v", err)
	}
	if _, err := session.New(global, "user-001", "pooled", session.Options{}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	s, err := session.New(global, "user-001", "", session.Options{})
	if err != nil || s.Mode() != session.Shared {
		t.Fatalf("empty mode should default to shared: %v", err)
	}
}

func TestIsolatedPartitionNeverAliasesSharedPool(t *testing.T) {
	store := kv.NewMemory()
	users := []domain.User{
		{ID: "user-001", Name: "Sarah Chen", Email: "sarah@example.com", Department: domain.DeptFieldOperations, Role: domain.RoleFieldEngineer},
		{ID: "demo", Name: "Demo Visitor", Email: "demo@example.com", Department: domain.DeptCompliance, Role: domain.RoleComplianceOfficer},
	}
	global := engine.New(store,
		engine.WithSeed(seed.Static(domain.Snapshot{Users: users})),
		engine.WithClock(func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }),
		engine.WithLogger(log.New(io.Discard, "", 0)),
	)
	shared, err := global.CreateTask(engine.TaskInput{Title: "Shared pool only", CreatedBy: "user-001", AssigneeID: "user-001"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	s, err := session.New(global, "demo", session.Isolated, session.Options{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.Activate()
	for _, task := range s.Tasks() {
		if task.ID == shared.ID {
			t.Fatalf("isolated partition of %q sees the shared pool", "demo")
		}
	}
	s.Reset()

	global.Dispose()
	if _, err := global.Task(shared.ID); err != nil {
		t.Fatalf("isolated reset removed shared state: %v", err)
	}
	if v, _, _ := store.Read("inflow-demo-initialized"); v != "true" {
		t.Fatalf("isolated reset removed the shared initialized flag")
	}
}

func TestIsolatedPartitionInheritsDocumentLinks(t *testing.T) {
	global := engine.New(kv.NewMemory(),
		engine.WithDocumentLinks(engine.LinkByDescription),
		engine.WithLogger(log.New(io.Discard, "", 0)),
	)
	s, err := session.New(global, "user-001", session.Isolated, session.Options{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if got := s.Engine().DocumentLinks(); got != engine.LinkByDescription {
		t.Fatalf("partition document links = %q, want %q", got, engine.LinkByDescription)
	}
	if got := s.Engine().Profile(); got != global.Profile() {
		t.Fatalf("partition profile = %q, want %q", got, global.Profile())
	}
}
