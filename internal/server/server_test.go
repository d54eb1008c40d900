package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"inflow/internal/db"
	"inflow/internal/domain"
	"inflow/internal/engine"
	"inflow/internal/events"
	"inflow/internal/kv"
	"inflow/internal/migrate"
)

type testServer struct {
	URL    string
	Engine *engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func fixedClock() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(kv.NewMemory(), engine.WithClock(fixedClock))
	w := events.Writer{DB: conn, Now: fixedClock}
	e.Subscribe(func(evt events.Event) {
		if err := w.Append(context.Background(), evt); err != nil {
			t.Errorf("append event: %v", err)
		}
	})
	e.Initialize()
	handler, err := New(Config{Engine: e, BasePath: "/v0", DB: conn})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func decodeError(t *testing.T, data []byte) apiErrorBody {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return env.Error
}

func TestTaskLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"title":      "Replace feeder cable",
		"priority":   "high",
		"assigneeId": "user-002",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Task
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if created.CreatedBy != "user-001" || created.Type != domain.TaskTypeAction || created.Status != domain.StatusDraft {
		t.Fatalf("unexpected defaults: %+v", created)
	}

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/tasks/"+created.ID+"/status", map[string]any{"status": "in_progress"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks/"+created.ID+"/comments", map[string]any{
		"content":  "On site tomorrow",
		"mentions": []string{"user-002"},
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add comment %d: %s", res.StatusCode, string(data))
	}
	var comment domain.Comment
	_ = json.Unmarshal(data, &comment)
	if comment.AuthorID != "user-001" {
		t.Fatalf("expected comment by active persona, got %q", comment.AuthorID)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks/"+created.ID+"/documents", map[string]any{
		"name":     "Cable spec",
		"type":     "application/pdf",
		"size":     2048,
		"category": "technical_specification",
		"url":      "/files/cable-v1.pdf",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add document %d: %s", res.StatusCode, string(data))
	}
	var doc domain.Document
	_ = json.Unmarshal(data, &doc)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/documents/"+doc.ID+"/versions", map[string]any{
		"url":     "/files/cable-v2.pdf",
		"changes": "Updated gauge",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add version %d: %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &doc)
	if doc.Version != 2 || len(doc.Versions) != 2 {
		t.Fatalf("expected version 2, got %d with %d entries", doc.Version, len(doc.Versions))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks/"+created.ID, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get task %d: %s", res.StatusCode, string(data))
	}
	var fetched domain.Task
	_ = json.Unmarshal(data, &fetched)
	if fetched.Status != domain.StatusInProgress || len(fetched.Comments) != 1 || len(fetched.Documents) != 1 {
		t.Fatalf("unexpected task after updates: %+v", fetched)
	}
	if fetched.Documents[0].Version != 2 {
		t.Fatalf("embedded document not updated: %+v", fetched.Documents[0])
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/tasks/"+created.ID, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete task %d: %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/documents/"+doc.ID, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected document removed with task, got %d", res.StatusCode)
	}
	if err := srv.Engine.Verify(); err != nil {
		t.Fatalf("state violates integrity rules: %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks/task-missing", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, string(data))
	}
	if body := decodeError(t, data); body.Code != "not_found" || body.Details["entity"] != "task" {
		t.Fatalf("unexpected not found body: %+v", body)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"title":      "Orphan",
		"assigneeId": "user-999",
	})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", res.StatusCode, string(data))
	}
	if body := decodeError(t, data); body.Code != "referential_error" || body.Details["field"] != "assigneeId" {
		t.Fatalf("unexpected referential body: %+v", body)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{"title": "   "})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank title, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{"title": "x", "priority": "critical"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for schema violation, got %d %s", res.StatusCode, string(data))
	}
	if got := len(srv.Engine.Tasks()); got != 5 {
		t.Fatalf("failed requests must not change state, got %d tasks", got)
	}
}

func TestTraysAndFilters(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	var list TaskList
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/users/user-001/in-tray", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("in tray %d: %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &list)
	if len(list.Items) != 3 {
		t.Fatalf("expected 3 tasks in user-001 in tray, got %d", len(list.Items))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks?status=in_progress,assigned&createdBy=user-002", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("filter %d: %s", res.StatusCode, string(data))
	}
	list = TaskList{}
	_ = json.Unmarshal(data, &list)
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 filtered tasks, got %d", len(list.Items))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks?q=BUDGET", nil)
	list = TaskList{}
	_ = json.Unmarshal(data, &list)
	if res.StatusCode != http.StatusOK || len(list.Items) != 1 || list.Items[0].ID != "task-005" {
		t.Fatalf("search mismatch: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/users/user-404/out-tray", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d %s", res.StatusCode, string(data))
	}
}

func TestPersonaAndReset(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPut, srv.URL+"/v0/persona", map[string]any{"userId": "user-002"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set persona %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{"title": "Order antennas"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create %d: %s", res.StatusCode, string(data))
	}
	var created domain.Task
	_ = json.Unmarshal(data, &created)
	if created.CreatedBy != "user-002" || created.AssigneeID != "user-002" {
		t.Fatalf("expected task owned by user-002, got %+v", created)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/reset", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reset %d: %s", res.StatusCode, string(data))
	}
	var persona PersonaResponse
	_ = json.Unmarshal(data, &persona)
	if persona.User == nil || persona.User.ID != "user-001" {
		t.Fatalf("expected persona back to user-001, got %s", string(data))
	}
	if got := len(srv.Engine.Tasks()); got != 5 {
		t.Fatalf("expected seed tasks after reset, got %d", got)
	}

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/persona", map[string]any{"userId": "nobody"})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown persona, got %d %s", res.StatusCode, string(data))
	}
}

func TestAnalyticsAndEvents(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/analytics", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("analytics %d: %s", res.StatusCode, string(data))
	}
	var a domain.Analytics
	_ = json.Unmarshal(data, &a)
	if a.TotalTasks != 5 || a.CompletedTasks != 1 || a.CompletionRate != 20 {
		t.Fatalf("unexpected analytics: %+v", a)
	}

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/tasks/task-005/status", map[string]any{"status": "completed"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete task %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/events?entityKind=task&limit=5", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events %d: %s", res.StatusCode, string(data))
	}
	var evts EventList
	if err := json.Unmarshal(data, &evts); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(evts.Items) != 1 || evts.Items[0].Type != events.TaskUpdated || evts.Items[0].EntityID != "task-005" {
		t.Fatalf("unexpected events: %s", string(data))
	}
}

func TestOpenAPIServedConcurrently(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	const n = 8
	bodies := make([][]byte, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := srv.Client().Get(srv.URL + "/v0/openapi.json")
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			bodies[i], errs[i] = io.ReadAll(resp.Body)
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d: %v", i, errs[i])
		}
		if !bytes.Equal(bodies[i], bodies[0]) {
			t.Fatalf("request %d returned a different document", i)
		}
	}
	var doc map[string]any
	if err := json.Unmarshal(bodies[0], &doc); err != nil {
		t.Fatalf("decode openapi: %v", err)
	}
	if _, ok := doc["paths"]; !ok {
		t.Fatalf("openapi document has no paths")
	}
}
