package engine

import (
	"inflow/internal/domain"
	"inflow/internal/events"
)

// SetActivePersona makes userID the active persona. Unknown ids are ignored.
func (e *Engine) SetActivePersona(userID string) {
	e.lock()
	if _, ok := findUser(e.state.Users, userID); !ok || e.active == userID {
		e.unlock()
		return
	}
	prev := e.active
	e.active = userID
	if err := e.repo.SaveActivePersona(userID); err != nil {
		e.pending = append(e.pending, PersistenceWarning{Op: "persona", Err: err})
	}
	evt := e.event(events.PersonaChanged, "user", userID, userID, events.EventPayload{"previous": prev})
	e.unlock()
	e.emit(evt)
}

// ActivePersona returns the active user, if any.
func (e *Engine) ActivePersona() (domain.User, bool) {
	e.lock()
	defer e.unlock()
	return findUser(e.state.Users, e.active)
}

func findUser(users []domain.User, id string) (domain.User, bool) {
	if id == "" {
		return domain.User{}, false
	}
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return domain.User{}, false
}
