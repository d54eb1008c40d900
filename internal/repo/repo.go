package repo

import (
	"encoding/json"
	"errors"
	"fmt"

	"inflow/internal/domain"
	"inflow/internal/kv"
)

var (
	// ErrNotFound reports that no initialized state exists under the keys.
	ErrNotFound = errors.New("not found")
	// ErrCorrupt reports a stored record that is missing or fails to decode.
	ErrCorrupt = errors.New("corrupt state")
)

const initializedValue = "true"

// State is what one partition persists.
type State struct {
	Snapshot      domain.Snapshot
	ActivePersona string
}

// Repo reads and writes a state partition as JSON records in a kv.Store.
type Repo struct {
	Store kv.Store
	Keys  Keys
}

// Initialized reports whether the partition's initialized flag is set.
func (r Repo) Initialized() (bool, error) {
	v, ok, err := r.Store.Read(r.Keys.Initialized)
	if err != nil {
		return false, err
	}
	return ok && v == initializedValue, nil
}

// Load decodes the partition. It returns ErrNotFound when the initialized
// flag is absent and an error wrapping ErrCorrupt when a record is unusable.
func (r Repo) Load() (State, error) {
	ok, err := r.Initialized()
	if err != nil {
		return State{}, err
	}
	if !ok {
		return State{}, ErrNotFound
	}
	var st State
	if err := r.decode(r.Keys.Users, &st.Snapshot.Users); err != nil {
		return State{}, err
	}
	if err := r.decode(r.Keys.Tasks, &st.Snapshot.Tasks); err != nil {
		return State{}, err
	}
	if err := r.decode(r.Keys.Documents, &st.Snapshot.Documents); err != nil {
		return State{}, err
	}
	if err := r.decode(r.Keys.Comments, &st.Snapshot.Comments); err != nil {
		return State{}, err
	}
	if r.Keys.ActivePersona != "" {
		raw, ok, err := r.Store.Read(r.Keys.ActivePersona)
		if err != nil {
			return State{}, err
		}
		if ok {
			st.ActivePersona = raw
		}
	}
	st.Snapshot = st.Snapshot.Clone()
	return st, nil
}

func (r Repo) decode(key string, dst any) error {
	raw, ok, err := r.Store.Read(key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s missing", ErrCorrupt, key)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return nil
}

// Save writes every record and then the initialized flag. Stores that
// implement kv.Batcher receive all of them in one atomic batch. Other stores
// are written key by key; the initialized flag is then only written when
// every record landed, and failures are returned joined.
func (r Repo) Save(st State) error {
	entries, err := r.entries(st)
	if err != nil {
		return err
	}
	if b, ok := r.Store.(kv.Batcher); ok {
		if err := b.WriteBatch(entries); err != nil {
			return fmt.Errorf("write state: %w", err)
		}
		return nil
	}
	var errs []error
	for _, e := range entries {
		if e.Key == r.Keys.Initialized && len(errs) > 0 {
			break
		}
		if e.Delete {
			if err := r.Store.Remove(e.Key); err != nil {
				errs = append(errs, fmt.Errorf("remove %s: %w", e.Key, err))
			}
			continue
		}
		if err := r.Store.Write(e.Key, e.Value); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", e.Key, err))
		}
	}
	return errors.Join(errs...)
}

// entries encodes st into store changes, ending with the initialized flag.
func (r Repo) entries(st State) ([]kv.Entry, error) {
	snap := st.Snapshot.Clone()
	var out []kv.Entry
	for _, rec := range []struct {
		key string
		v   any
	}{
		{r.Keys.Users, snap.Users},
		{r.Keys.Tasks, snap.Tasks},
		{r.Keys.Documents, snap.Documents},
		{r.Keys.Comments, snap.Comments},
	} {
		if rec.key == "" {
			continue
		}
		data, err := json.Marshal(rec.v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", rec.key, err)
		}
		out = append(out, kv.Entry{Key: rec.key, Value: string(data)})
	}
	if r.Keys.ActivePersona != "" {
		out = append(out, kv.Entry{Key: r.Keys.ActivePersona, Value: st.ActivePersona, Delete: st.ActivePersona == ""})
	}
	return append(out, kv.Entry{Key: r.Keys.Initialized, Value: initializedValue}), nil
}

// SaveActivePersona writes only the active persona record. An empty id
// removes it.
func (r Repo) SaveActivePersona(userID string) error {
	if r.Keys.ActivePersona == "" {
		return nil
	}
	if userID == "" {
		if err := r.Store.Remove(r.Keys.ActivePersona); err != nil {
			return fmt.Errorf("remove %s: %w", r.Keys.ActivePersona, err)
		}
		return nil
	}
	if err := r.Store.Write(r.Keys.ActivePersona, userID); err != nil {
		return fmt.Errorf("write %s: %w", r.Keys.ActivePersona, err)
	}
	return nil
}

// Clear removes every record of the partition.
func (r Repo) Clear() error {
	var errs []error
	for _, key := range r.Keys.All() {
		if err := r.Store.Remove(key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
