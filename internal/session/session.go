// Package session binds a persona to a workflow repository, either as a
// filtered view over the shared pool or as a private partition.
package session

import (
	"fmt"
	"strings"

	"inflow/internal/domain"
	"inflow/internal/engine"
	"inflow/internal/repo"
	"inflow/internal/seed"
)

type Mode string

const (
	// Shared sessions see the global pool filtered to the persona.
	Shared Mode = "shared"
	// Isolated sessions own a persona-namespaced partition of the store.
	Isolated Mode = "isolated"
)

func (m Mode) Valid() bool { return m == Shared || m == Isolated }

// scope is the storage strategy behind a session.
type scope interface {
	engine() *engine.Engine
	visible(t domain.Task) bool
	activate()
	reset()
}

// Session is a persona-scoped handle. Writes made through it are attributed
// to the persona.
type Session struct {
	persona domain.User
	mode    Mode
	scope   scope
}

// Options tune isolated partitions.
type Options struct {
	Namespace string
	Engine    []engine.Option
}

// New binds personaID, which must be a user of global, in the given mode.
func New(global *engine.Engine, personaID string, mode Mode, opts Options) (*Session, error) {
	if mode == "" {
		mode = Shared
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown session mode %q", mode)
	}
	persona, err := global.User(personaID)
	if err != nil {
		return nil, err
	}
	s := &Session{persona: persona, mode: mode}
	switch mode {
	case Shared:
		s.scope = &sharedScope{global: global, personaID: personaID}
	case Isolated:
		s.scope = newIsolatedScope(global, persona, opts)
	}
	return s, nil
}

func (s *Session) Persona() domain.User { return s.persona }
func (s *Session) Mode() Mode            { return s.mode }

// Engine exposes the repository the session writes to.
func (s *Session) Engine() *engine.Engine { return s.scope.engine() }

// Activate prepares the session. Shared sessions make the persona the
// active one; isolated sessions seed their partition on first use.
func (s *Session) Activate() { s.scope.activate() }

// Reset discards the session's private data. Shared sessions have none,
// so Reset leaves the pool untouched.
func (s *Session) Reset() { s.scope.reset() }

// Tasks lists the tasks visible to the session.
func (s *Session) Tasks() []domain.Task {
	out := []domain.Task{}
	for _, t := range s.Engine().Tasks() {
		if s.scope.visible(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Session) InTray() []domain.Task  { return s.Engine().InTray(s.persona.ID) }
func (s *Session) OutTray() []domain.Task { return s.Engine().OutTray(s.persona.ID) }

// ActiveTasks lists tasks assigned to the persona that are still open.
func (s *Session) ActiveTasks() []domain.Task {
	out := []domain.Task{}
	for _, t := range s.InTray() {
		if !t.Status.Closed() {
			out = append(out, t)
		}
	}
	return out
}

func (s *Session) Analytics() domain.Analytics {
	return s.Engine().Analytics(engine.Scope{UserID: s.persona.ID})
}

func (s *Session) Task(id string) (domain.Task, error) {
	t, err := s.Engine().Task(id)
	if err != nil {
		return domain.Task{}, err
	}
	if !s.scope.visible(t) {
		return domain.Task{}, &engine.NotFoundError{Entity: "task", ID: id}
	}
	return t, nil
}

// CreateTask creates a task owned by the persona, assigned to the persona
// unless AssigneeID says otherwise.
func (s *Session) CreateTask(in engine.TaskInput) (domain.Task, error) {
	in.CreatedBy = s.persona.ID
	if in.AssigneeID == "" {
		in.AssigneeID = s.persona.ID
	}
	return s.Engine().CreateTask(in)
}

func (s *Session) UpdateTask(id string, p engine.TaskPatch) (domain.Task, error) {
	if _, err := s.Task(id); err != nil {
		return domain.Task{}, err
	}
	return s.Engine().UpdateTask(id, p)
}

func (s *Session) AddComment(taskID, content string, mentions []string) (domain.Comment, error) {
	if _, err := s.Task(taskID); err != nil {
		return domain.Comment{}, err
	}
	return s.Engine().AddComment(taskID, engine.CommentInput{Content: content, AuthorID: s.persona.ID, Mentions: mentions})
}

func (s *Session) AddDocument(taskID string, in engine.DocumentInput) (domain.Document, error) {
	if _, err := s.Task(taskID); err != nil {
		return domain.Document{}, err
	}
	in.UploadedBy = s.persona.ID
	return s.Engine().AddDocument(taskID, in)
}

type sharedScope struct {
	global    *engine.Engine
	personaID string
}

func (s *sharedScope) engine() *engine.Engine { return s.global }

func (s *sharedScope) visible(t domain.Task) bool {
	return t.AssigneeID == s.personaID || t.CreatedBy == s.personaID
}

func (s *sharedScope) activate() { s.global.SetActivePersona(s.personaID) }
func (s *sharedScope) reset()    {}

type isolatedScope struct {
	part *engine.Engine
}

func newIsolatedScope(global *engine.Engine, persona domain.User, opts Options) *isolatedScope {
	keys := repo.PersonaKeys(opts.Namespace, persona.ID)
	store := global.Store()
	engineOpts := append([]engine.Option{
		engine.WithKeys(keys),
		engine.WithNamespace(strings.TrimSuffix(keys.Tasks, "-tasks")),
		engine.WithProfile(global.Profile()),
		engine.WithDocumentLinks(global.DocumentLinks()),
		engine.WithSeed(seed.Persona(persona.ID, global.Users())),
	}, opts.Engine...)
	return &isolatedScope{part: engine.New(store, engineOpts...)}
}

func (s *isolatedScope) engine() *engine.Engine   { return s.part }
func (s *isolatedScope) visible(domain.Task) bool { return true }

// activate loads the partition, seeding it when the namespace holds nothing.
func (s *isolatedScope) activate() { s.part.Initialize() }

// reset removes only this partition's keys. The next activation reseeds.
func (s *isolatedScope) reset() {
	s.part.ClearAll()
	s.part.Dispose()
}
