package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"inflow/internal/domain"
	"inflow/internal/engine"
	"inflow/internal/events"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	// DB backs the events endpoint. Without it the endpoint lists nothing.
	DB     *sql.DB
	Logger *log.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"task task-001 not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"entity\":\"task\"}"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the inflow API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(requestLogger(logger))
	hcfg := huma.DefaultConfig("inflow API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	h := handlers{e: cfg.Engine, db: cfg.DB, log: logger}
	registerDocs(router, basePath)
	registerHealth(group)
	h.registerUsers(group)
	h.registerPersona(group)
	h.registerTasks(group)
	h.registerComments(group)
	h.registerDocuments(group)
	h.registerAnalytics(group)
	h.registerEvents(group)
	registerOpenAPI(router, api, basePath)
	return router, nil
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			if sw.status >= http.StatusInternalServerError {
				logger.Printf("http: %s %s -> %d", r.Method, r.URL.Path, sw.status)
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var nf *engine.NotFoundError
	if errors.As(err, &nf) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), map[string]any{"entity": nf.Entity, "id": nf.ID})
	}
	var re *engine.ReferentialError
	if errors.As(err, &re) {
		return newAPIError(http.StatusUnprocessableEntity, "referential_error", err.Error(),
			map[string]any{"entity": re.Entity, "field": re.Field, "id": re.ID})
	}
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"field": ve.Field})
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	spec := sync.OnceValue(func() []byte {
		oas := api.OpenAPI()
		ensureDefaultErrorResponses(oas)
		data, _ := json.Marshal(oas)
		return data
	})
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec())
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>inflow API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type handlers struct {
	e   *engine.Engine
	db  *sql.DB
	log *log.Logger
}

// actorOr returns id, or the active persona when id is empty.
func (h handlers) actorOr(id *string) string {
	if id != nil && *id != "" {
		return *id
	}
	if u, ok := h.e.ActivePersona(); ok {
		return u.ID
	}
	return ""
}

func (h handlers) registerUsers(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body UserList `json:"body"`
	}, error) {
		return &struct {
			Body UserList `json:"body"`
		}{Body: UserList{Items: nonNilSlice(h.e.Users())}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}",
		Summary:     "Get user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, err := h.e.User(input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	for _, tray := range []struct {
		id, path, summary string
		list              func(string) []domain.Task
	}{
		{"in-tray", "/users/{user_id}/in-tray", "Tasks assigned to the user", h.e.InTray},
		{"out-tray", "/users/{user_id}/out-tray", "Tasks created by the user", h.e.OutTray},
	} {
		list := tray.list
		huma.Register(api, huma.Operation{
			OperationID: tray.id,
			Method:      http.MethodGet,
			Path:        tray.path,
			Summary:     tray.summary,
			Errors:      []int{http.StatusNotFound},
		}, func(ctx context.Context, input *struct {
			UserID string `path:"user_id"`
		}) (*struct {
			Body TaskList `json:"body"`
		}, error) {
			if _, err := h.e.User(input.UserID); err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body TaskList `json:"body"`
			}{Body: TaskList{Items: list(input.UserID)}}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "user-stats",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/stats",
		Summary:     "Task breakdown for a user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body domain.TaskStats `json:"body"`
	}, error) {
		if _, err := h.e.User(input.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TaskStats `json:"body"`
		}{Body: h.e.TaskStats(input.UserID)}, nil
	})
}

func (h handlers) registerPersona(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-persona",
		Method:      http.MethodGet,
		Path:        "/persona",
		Summary:     "Active persona",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body PersonaResponse `json:"body"`
	}, error) {
		resp := PersonaResponse{}
		if u, ok := h.e.ActivePersona(); ok {
			resp.User = &u
		}
		return &struct {
			Body PersonaResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-persona",
		Method:      http.MethodPut,
		Path:        "/persona",
		Summary:     "Switch the active persona",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body SetPersonaRequest `json:"body"`
	}) (*struct {
		Body PersonaResponse `json:"body"`
	}, error) {
		u, err := h.e.User(input.Body.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		h.e.SetActivePersona(u.ID)
		return &struct {
			Body PersonaResponse `json:"body"`
		}{Body: PersonaResponse{User: &u}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset",
		Method:      http.MethodPost,
		Path:        "/reset",
		Summary:     "Reset all data to the seed",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body PersonaResponse `json:"body"`
	}, error) {
		h.e.ResetToSeed()
		resp := PersonaResponse{}
		if u, ok := h.e.ActivePersona(); ok {
			resp.User = &u
		}
		return &struct {
			Body PersonaResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func (h handlers) registerTasks(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks matching every given filter",
	}, func(ctx context.Context, input *struct {
		Status     string `query:"status" doc:"Comma-separated statuses"`
		Priority   string `query:"priority" doc:"Comma-separated priorities"`
		AssigneeID string `query:"assigneeId"`
		CreatedBy  string `query:"createdBy"`
		Q          string `query:"q" doc:"Case-insensitive title or description match"`
	}) (*struct {
		Body TaskList `json:"body"`
	}, error) {
		f := engine.TaskFilter{AssigneeID: input.AssigneeID, CreatedBy: input.CreatedBy, Query: input.Q}
		for _, s := range splitList(input.Status) {
			f.Statuses = append(f.Statuses, domain.TaskStatus(s))
		}
		for _, p := range splitList(input.Priority) {
			f.Priorities = append(f.Priorities, domain.TaskPriority(p))
		}
		return &struct {
			Body TaskList `json:"body"`
		}{Body: TaskList{Items: h.e.FilterTasks(f)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := h.e.CreateTask(input.Body.input())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := h.e.Task(input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task fields",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := h.e.UpdateTask(input.TaskID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-status",
		Method:      http.MethodPut,
		Path:        "/tasks/{task_id}/status",
		Summary:     "Set task status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string               `path:"task_id"`
		Body   SetTaskStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := h.e.UpdateTaskStatus(input.TaskID, domain.TaskStatus(input.Body.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{task_id}",
		Summary:       "Delete task with its comments and documents",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct{}, error) {
		if err := h.e.DeleteTask(input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func (h handlers) registerComments(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-task-comments",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}/comments",
		Summary:     "List comments of a task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body CommentList `json:"body"`
	}, error) {
		items, err := h.e.CommentsForTask(input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CommentList `json:"body"`
		}{Body: CommentList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-comment",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/comments",
		Summary:       "Add comment",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   AddCommentRequest `json:"body"`
	}) (*struct {
		Body domain.Comment `json:"body"`
	}, error) {
		c, err := h.e.AddComment(input.TaskID, engine.CommentInput{
			Content:  input.Body.Content,
			AuthorID: h.actorOr(input.Body.AuthorID),
			Mentions: input.Body.Mentions,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Comment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-comment",
		Method:      http.MethodPatch,
		Path:        "/comments/{comment_id}",
		Summary:     "Edit comment",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CommentID string               `path:"comment_id"`
		Body      UpdateCommentRequest `json:"body"`
	}) (*struct {
		Body domain.Comment `json:"body"`
	}, error) {
		c, err := h.e.UpdateComment(input.CommentID, input.Body.Content)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Comment `json:"body"`
		}{Body: c}, nil
	})
}

func (h handlers) registerDocuments(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-task-documents",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}/documents",
		Summary:     "List documents of a task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body DocumentList `json:"body"`
	}, error) {
		items, err := h.e.DocumentsForTask(input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DocumentList `json:"body"`
		}{Body: DocumentList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-document",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/documents",
		Summary:       "Attach document",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		TaskID string             `path:"task_id"`
		Body   AddDocumentRequest `json:"body"`
	}) (*struct {
		Body domain.Document `json:"body"`
	}, error) {
		b := input.Body
		d, err := h.e.AddDocument(input.TaskID, engine.DocumentInput{
			Name:        b.Name,
			Type:        b.Type,
			Size:        b.Size,
			Category:    domain.DocumentCategory(stringOrEmpty(b.Category)),
			Description: stringOrEmpty(b.Description),
			UploadedBy:  h.actorOr(b.UploadedBy),
			URL:         b.URL,
			Changes:     stringOrEmpty(b.Changes),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Document `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-document",
		Method:      http.MethodGet,
		Path:        "/documents/{document_id}",
		Summary:     "Get document",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DocumentID string `path:"document_id"`
	}) (*struct {
		Body domain.Document `json:"body"`
	}, error) {
		d, err := h.e.Document(input.DocumentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Document `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-document-version",
		Method:        http.MethodPost,
		Path:          "/documents/{document_id}/versions",
		Summary:       "Upload a new document version",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		DocumentID string            `path:"document_id"`
		Body       AddVersionRequest `json:"body"`
	}) (*struct {
		Body domain.Document `json:"body"`
	}, error) {
		in := engine.VersionInput{
			UploadedBy: h.actorOr(input.Body.UploadedBy),
			URL:        input.Body.URL,
			Changes:    stringOrEmpty(input.Body.Changes),
		}
		if input.Body.Size != nil {
			in.Size = *input.Body.Size
		}
		d, err := h.e.AddDocumentVersion(input.DocumentID, in)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Document `json:"body"`
		}{Body: d}, nil
	})
}

func (h handlers) registerAnalytics(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "analytics",
		Method:      http.MethodGet,
		Path:        "/analytics",
		Summary:     "Task analytics, optionally scoped to a user",
	}, func(ctx context.Context, input *struct {
		UserID string `query:"userId"`
	}) (*struct {
		Body domain.Analytics `json:"body"`
	}, error) {
		return &struct {
			Body domain.Analytics `json:"body"`
		}{Body: h.e.Analytics(engine.Scope{UserID: input.UserID})}, nil
	})
}

func (h handlers) registerEvents(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent changes, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entityKind" doc:"task, comment, document, user or state"`
		EntityID   string `query:"entityId"`
		Limit      int    `query:"limit" default:"50" minimum:"1" maximum:"500"`
	}) (*struct {
		Body EventList `json:"body"`
	}, error) {
		resp := EventList{Items: []events.Event{}}
		if h.db != nil {
			items, err := events.Latest(ctx, h.db, input.Limit, events.Filter{
				Type: input.Type, EntityKind: input.EntityKind, EntityID: input.EntityID,
			})
			if err != nil {
				return nil, handleError(err)
			}
			resp.Items = nonNilSlice(items)
		}
		return &struct {
			Body EventList `json:"body"`
		}{Body: resp}, nil
	})
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
