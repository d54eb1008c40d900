package repo_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"inflow/internal/kv"
	"inflow/internal/repo"
	"inflow/internal/seed"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	r := repo.Repo{Store: kv.NewMemory(), Keys: repo.DemoKeys("")}
	if _, err := r.Load(); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}
	st := repo.State{Snapshot: seed.Demo().Snapshot(), ActivePersona: "user-002"}
	if err := r.Save(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ok, _ := r.Initialized(); !ok {
		t.Fatalf("initialized flag not written")
	}
	got, err := r.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, st) {
		t.Fatalf("round trip changed state")
	}
}

func TestLoadCorruptRecord(t *testing.T) {
	store := kv.NewMemory()
	r := repo.Repo{Store: store, Keys: repo.DemoKeys("demo")}
	if err := r.Save(repo.State{Snapshot: seed.Demo().Snapshot()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = store.Write("demo-demo-comments", "[{")
	if _, err := r.Load(); !errors.Is(err, repo.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	_ = store.Remove("demo-demo-comments")
	if _, err := r.Load(); !errors.Is(err, repo.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for missing record, got %v", err)
	}
}

func TestSaveIsAllOrNothing(t *testing.T) {
	store := kv.NewMemory()
	r := repo.Repo{Store: store, Keys: repo.DemoKeys("")}
	before := repo.State{Snapshot: seed.Demo().Snapshot(), ActivePersona: "user-001"}
	if err := r.Save(before); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.Quota = store.Size()

	after := repo.State{Snapshot: seed.Demo().Snapshot(), ActivePersona: "user-002"}
	after.Snapshot.Tasks[0].Description += " Grown past the quota."
	if err := r.Save(after); !errors.Is(err, kv.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	got, err := r.Load()
	if err != nil {
		t.Fatalf("load after failed save: %v", err)
	}
	if !reflect.DeepEqual(got, before) {
		t.Fatalf("failed save left a partial state behind")
	}
}

// keyFailStore is a store without batch support whose writes to one key fail.
type keyFailStore struct {
	kv.Store
	failKey string
}

func (s keyFailStore) Write(key, value string) error {
	if key == s.failKey {
		return errors.New("disk full")
	}
	return s.Store.Write(key, value)
}

func TestSaveWithoutBatchSkipsInitializedFlagOnFailure(t *testing.T) {
	mem := kv.NewMemory()
	keys := repo.DemoKeys("")
	r := repo.Repo{Store: keyFailStore{Store: mem, failKey: keys.Documents}, Keys: keys}
	err := r.Save(repo.State{Snapshot: seed.Demo().Snapshot(), ActivePersona: "user-001"})
	if err == nil || !strings.Contains(err.Error(), keys.Documents) {
		t.Fatalf("expected documents write error, got %v", err)
	}
	if _, ok, _ := mem.Read(keys.Initialized); ok {
		t.Fatalf("initialized flag written after a failed record write")
	}
	if _, err := r.Load(); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an incomplete first save, got %v", err)
	}
}

func TestPartitionKeys(t *testing.T) {
	demo := repo.DemoKeys("")
	if demo.Tasks != "inflow-demo-tasks" || demo.ActivePersona != "inflow-active-persona" || demo.Initialized != "inflow-demo-initialized" {
		t.Fatalf("unexpected demo keys %+v", demo)
	}
	p := repo.PersonaKeys("inflow", "user-1")
	if p.Tasks != "inflow-persona-user-1-tasks" || p.ActivePersona != "" {
		t.Fatalf("unexpected persona keys %+v", p)
	}
	if got := len(p.All()); got != 5 {
		t.Fatalf("expected 5 persona keys, got %d", got)
	}

	store := kv.NewMemory()
	shared := repo.Repo{Store: store, Keys: demo}
	isolated := repo.Repo{Store: store, Keys: p}
	_ = shared.Save(repo.State{Snapshot: seed.Demo().Snapshot(), ActivePersona: "user-001"})
	_ = isolated.Save(repo.State{Snapshot: seed.Persona("user-1", nil).Snapshot()})
	if err := isolated.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if ok, _ := shared.Initialized(); !ok {
		t.Fatalf("clearing a persona partition touched the shared one")
	}
	if got := store.Keys("inflow-persona-user-1-"); len(got) != 0 {
		t.Fatalf("partition keys left: %v", got)
	}
}
