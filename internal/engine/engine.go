// Package engine is the workflow repository: it owns users, tasks,
// documents and comments, keeps them mutually consistent and mirrors every
// committed change to a durable key-value store.
package engine

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"inflow/internal/domain"
	"inflow/internal/events"
	"inflow/internal/kv"
	"inflow/internal/repo"
	"inflow/internal/seed"
)

// DocumentLinks selects how DeleteTask finds a task's documents.
type DocumentLinks string

const (
	// LinkByTaskID matches documents through their taskId and the task's embedded list.
	LinkByTaskID DocumentLinks = "task_id"
	// LinkByDescription matches documents whose description contains the task id.
	// Unmatched documents of the task are kept but detached from it.
	LinkByDescription DocumentLinks = "description"
)

func (l DocumentLinks) Valid() bool { return l == LinkByTaskID || l == LinkByDescription }

// Engine is safe for concurrent use. All mutations are serialized; a
// mutation either commits completely or leaves state untouched.
type Engine struct {
	repo      repo.Repo
	seed      seed.Provider
	profile   domain.Profile
	links     DocumentLinks
	namespace string
	now       func() time.Time
	newID     func(kind string) string
	logger    *log.Logger
	onWarning func(PersistenceWarning)

	mu          sync.Mutex
	state       domain.Snapshot
	active      string
	initialized bool
	lastStamp   time.Time
	pending     []PersistenceWarning

	lmu       sync.Mutex
	listeners map[int]func(events.Event)
	nextID    int
}

type Option func(*Engine)

// WithKeys sets the durable layout. Default is repo.DemoKeys("inflow").
func WithKeys(k repo.Keys) Option { return func(e *Engine) { e.repo.Keys = k } }

// WithNamespace labels emitted events.
func WithNamespace(ns string) Option { return func(e *Engine) { e.namespace = ns } }

// WithSeed sets the provider used on first run, on unusable stored state and on reset.
func WithSeed(p seed.Provider) Option { return func(e *Engine) { e.seed = p } }

func WithProfile(p domain.Profile) Option { return func(e *Engine) { e.profile = p.Normalize() } }

func WithDocumentLinks(l DocumentLinks) Option { return func(e *Engine) { e.links = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithIDs replaces the id generator. kind is "task", "comment" or "doc".
func WithIDs(fn func(kind string) string) Option { return func(e *Engine) { e.newID = fn } }

func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithWarningHandler receives every persistence warning after it is logged.
func WithWarningHandler(fn func(PersistenceWarning)) Option {
	return func(e *Engine) { e.onWarning = fn }
}

// New builds an uninitialized repository over store. A nil store means no
// durable medium.
func New(store kv.Store, opts ...Option) *Engine {
	if store == nil {
		store = kv.Nop{}
	}
	e := &Engine{
		repo:      repo.Repo{Store: store, Keys: repo.DemoKeys(repo.DefaultNamespace)},
		seed:      seed.Demo(),
		profile:   domain.ProfileCategorized,
		links:     LinkByTaskID,
		namespace: repo.DefaultNamespace,
		now:       time.Now,
		newID: func(kind string) string {
			return kind + "-" + uuid.Must(uuid.NewV7()).String()
		},
		logger:    log.Default(),
		listeners: map[int]func(events.Event){},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the durable medium the repository writes through to.
func (e *Engine) Store() kv.Store { return e.repo.Store }

// Keys returns the durable layout.
func (e *Engine) Keys() repo.Keys { return e.repo.Keys }

// Profile reports the storage shape the repository was built with.
func (e *Engine) Profile() domain.Profile { return e.profile }

func (e *Engine) DocumentLinks() DocumentLinks { return e.links }

// Initialize loads stored state, falling back to the seed when nothing is
// stored or the stored records are unusable. Calling it again before Dispose
// or ClearAll has no effect.
func (e *Engine) Initialize() {
	e.lock()
	e.unlock()
}

// lock acquires the state lock and initializes on first use.
func (e *Engine) lock() {
	e.mu.Lock()
	if !e.initialized {
		e.initLocked()
	}
}

// unlock releases the state lock and then reports queued warnings.
func (e *Engine) unlock() {
	warns := e.pending
	e.pending = nil
	e.mu.Unlock()
	for _, w := range warns {
		e.report(w)
	}
}

func (e *Engine) initLocked() {
	e.initialized = true
	st, err := e.repo.Load()
	if err == nil {
		err = domain.Verify(st.Snapshot, e.profile)
	}
	switch {
	case err == nil:
		e.state = st.Snapshot
		e.active = ""
		if _, ok := findUser(e.state.Users, st.ActivePersona); ok {
			e.active = st.ActivePersona
		} else if len(e.state.Users) > 0 {
			e.active = e.state.Users[0].ID
		}
		return
	case errors.Is(err, repo.ErrNotFound):
	default:
		e.logger.Printf("engine: stored state unusable, reseeding: %v", err)
	}
	e.reseedLocked()
	e.persistLocked("seed")
}

func (e *Engine) reseedLocked() {
	e.state = e.seed.Snapshot().Clone()
	for i := range e.state.Documents {
		e.state.Documents[i] = e.profile.ShapeDocument(e.state.Documents[i])
	}
	for i := range e.state.Tasks {
		for j := range e.state.Tasks[i].Documents {
			e.state.Tasks[i].Documents[j] = e.profile.ShapeDocument(e.state.Tasks[i].Documents[j])
		}
	}
	e.active = ""
	if len(e.state.Users) > 0 {
		e.active = e.state.Users[0].ID
	}
}

// ResetToSeed discards all state and reloads the seed. The active persona
// becomes the first seed user.
func (e *Engine) ResetToSeed() {
	e.mu.Lock()
	e.initialized = true
	e.reseedLocked()
	e.persistLocked("reset")
	evt := e.event(events.StateReset, "state", "", "", nil)
	e.unlock()
	e.emit(evt)
}

// ClearAll removes every durable record and empties memory. The next
// process to open the store starts from the seed again.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	e.initialized = true
	e.state = domain.Snapshot{}.Clone()
	e.active = ""
	if err := e.repo.Clear(); err != nil {
		e.pending = append(e.pending, PersistenceWarning{Op: "clear", Err: err})
	}
	evt := e.event(events.StateCleared, "state", "", "", nil)
	e.unlock()
	e.emit(evt)
}

// Dispose drops in-memory state and listeners. A later call reinitializes
// from the store.
func (e *Engine) Dispose() {
	e.mu.Lock()
	e.state = domain.Snapshot{}
	e.active = ""
	e.initialized = false
	e.mu.Unlock()
	e.lmu.Lock()
	e.listeners = map[int]func(events.Event){}
	e.lmu.Unlock()
}

// Snapshot returns a deep copy of the full state.
func (e *Engine) Snapshot() domain.Snapshot {
	e.lock()
	defer e.unlock()
	return e.state.Clone()
}

// Verify checks the current state against every integrity rule.
func (e *Engine) Verify() error {
	e.lock()
	defer e.unlock()
	return domain.Verify(e.state, e.profile)
}

// Subscribe registers fn for change notifications. Notifications are
// delivered synchronously after the change committed and the lock was
// released. fn must not call mutating methods of the same Engine.
func (e *Engine) Subscribe(fn func(events.Event)) (unsubscribe func()) {
	e.lmu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.lmu.Unlock()
	return func() {
		e.lmu.Lock()
		delete(e.listeners, id)
		e.lmu.Unlock()
	}
}

func (e *Engine) emit(evts ...events.Event) {
	e.lmu.Lock()
	fns := make([]func(events.Event), 0, len(e.listeners))
	for i := 0; i < e.nextID; i++ {
		if fn, ok := e.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	e.lmu.Unlock()
	for _, evt := range evts {
		for _, fn := range fns {
			fn(evt)
		}
	}
}

func (e *Engine) event(typ, kind, id, actor string, payload events.EventPayload) events.Event {
	return events.Event{
		TS:         domain.FormatTime(e.now()),
		Type:       typ,
		Namespace:  e.namespace,
		EntityKind: kind,
		EntityID:   id,
		ActorID:    actor,
		Payload:    payload,
	}
}

// mutate runs fn under the lock. On success the whole state is written
// through and the returned events are emitted; on error nothing changes.
func (e *Engine) mutate(op string, fn func() ([]events.Event, error)) error {
	e.lock()
	evts, err := fn()
	if err == nil {
		e.persistLocked(op)
	}
	e.unlock()
	if err != nil {
		return err
	}
	e.emit(evts...)
	return nil
}

func (e *Engine) persistLocked(op string) {
	err := e.repo.Save(repo.State{Snapshot: e.state, ActivePersona: e.active})
	if err != nil {
		e.pending = append(e.pending, PersistenceWarning{Op: op, Err: err})
	}
}

func (e *Engine) report(w PersistenceWarning) {
	e.logger.Printf("engine: %v", w)
	if e.onWarning != nil {
		e.onWarning(w)
	}
}

// stamp returns the current instant, never earlier than one issued before.
func (e *Engine) stamp() string {
	t := e.now().UTC().Truncate(time.Millisecond)
	if t.Before(e.lastStamp) {
		t = e.lastStamp
	}
	e.lastStamp = t
	return domain.FormatTime(t)
}

// touch refreshes a task's updatedAt without moving it backwards.
func (e *Engine) touch(t *domain.Task) {
	ts := e.stamp()
	if later(t.UpdatedAt, ts) {
		return
	}
	t.UpdatedAt = ts
}

// later reports whether a is strictly after b.
func later(a, b string) bool {
	ta, errA := domain.ParseTime(a)
	tb, errB := domain.ParseTime(b)
	if errA != nil || errB != nil {
		return false
	}
	return ta.After(tb)
}
