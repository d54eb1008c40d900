package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"inflow/internal/app"
	"inflow/internal/config"
	"inflow/internal/db"
	"inflow/internal/domain"
	"inflow/internal/engine"
	"inflow/internal/events"
	"inflow/internal/server"
	"inflow/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "inflow",
	Short: "inflow workflow CLI",
	Long: `inflow keeps the workflow demo data (users, tasks, documents and comments)
in a durable key/value store and lets you act on it as one of the demo personas.
- Workspace: the directory holding inflow.yml and the .inflow database.
- Persona: the user you act as; new tasks, comments and uploads default to it.
- In tray / out tray: tasks assigned to you / tasks you created.
- Sessions: shared mode works on the common data; isolated mode gives each
  persona its own namespaced copy seeded from persona templates.
- Event log: every change is recorded, view it with 'inflow log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("INFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("persona", "", "act as this user id (defaults to the active persona)")
	rootCmd.PersistentFlags().String("backend", "", "storage backend (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("persona", rootCmd.PersistentFlags().Lookup("persona"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(personaCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(trayCmd())
	rootCmd.AddCommand(commentCmd())
	rootCmd.AddCommand(docCmd())
	rootCmd.AddCommand(analyticsCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var writeConfig, force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the workspace and seed the demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if writeConfig {
				path := config.Path(workspace)
				if _, err := os.Stat(path); err == nil && !force {
					return fmt.Errorf("%s already exists; use --force to overwrite", path)
				}
				if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", path)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				snap := a.Engine.Snapshot()
				if viper.GetBool("json") {
					return printJSON(map[string]int{
						"users":     len(snap.Users),
						"tasks":     len(snap.Tasks),
						"documents": len(snap.Documents),
						"comments":  len(snap.Comments),
					})
				}
				fmt.Printf("Workspace ready (%s backend): %d users, %d tasks, %d documents, %d comments\n",
					a.Config.Storage.Backend, len(snap.Users), len(snap.Tasks), len(snap.Documents), len(snap.Comments))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "write a default inflow.yml")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing inflow.yml")
	return cmd
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard all changes and restore the demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				a.Engine.ResetToSeed()
				fmt.Println("Demo data restored")
				return nil
			})
		},
	}
}

func personaCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "persona", Short: "Manage the active persona"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				users := a.Engine.Users()
				if viper.GetBool("json") {
					return printJSON(users)
				}
				active, _ := a.Engine.ActivePersona()
				tw := newTable()
				tw.AppendHeader(table.Row{"", "ID", "Name", "Role", "Department"})
				for _, u := range users {
					marker := ""
					if u.ID == active.ID {
						marker = "*"
					}
					tw.AppendRow(table.Row{marker, u.ID, u.Name, u.Role, u.Department})
				}
				tw.Render()
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "use <user-id>",
		Short: "Switch the active persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				u, err := a.Engine.User(args[0])
				if err != nil {
					return err
				}
				a.Engine.SetActivePersona(u.ID)
				fmt.Printf("Now acting as %s (%s)\n", u.Name, u.ID)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the active persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				u, ok := a.Engine.ActivePersona()
				if !ok {
					return errors.New("no active persona")
				}
				return printJSONOrTable(u)
			})
		},
	})
	return cmd
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage tasks"}
	cmd.AddCommand(taskCreateCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskGetCmd())
	cmd.AddCommand(taskUpdateCmd())
	cmd.AddCommand(taskStatusCmd())
	cmd.AddCommand(taskDeleteCmd())
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var in engine.TaskInput
	var taskType, status, priority, due string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				in.Type = domain.TaskType(taskType)
				in.Status = domain.TaskStatus(status)
				in.Priority = domain.TaskPriority(priority)
				in.DueDate = optionalString(due)
				if in.CreatedBy == "" {
					in.CreatedBy = viper.GetString("persona")
				}
				t, err := a.Engine.CreateTask(in)
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "task title")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&taskType, "type", "", "review|approval|information|action")
	cmd.Flags().StringVar(&status, "status", "", "initial status")
	cmd.Flags().StringVar(&priority, "priority", "", "low|medium|high|urgent")
	cmd.Flags().StringVar(&in.AssigneeID, "assignee", "", "assignee user id (defaults to the creator)")
	cmd.Flags().StringVar(&in.CreatedBy, "created-by", "", "creator user id (defaults to the persona)")
	cmd.Flags().StringVar(&due, "due", "", "due date (RFC 3339)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f engine.TaskFilter
	var statuses, priorities []string
	var overdue bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				for _, s := range statuses {
					f.Statuses = append(f.Statuses, domain.TaskStatus(s))
				}
				for _, p := range priorities {
					f.Priorities = append(f.Priorities, domain.TaskPriority(p))
				}
				tasks := a.Engine.FilterTasks(f)
				if overdue {
					tasks = a.Engine.OverdueTasks()
				}
				return printTasks(tasks)
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "status filter (repeatable)")
	cmd.Flags().StringSliceVar(&priorities, "priority", nil, "priority filter (repeatable)")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee", "", "assignee filter")
	cmd.Flags().StringVar(&f.CreatedBy, "created-by", "", "creator filter")
	cmd.Flags().StringVarP(&f.Query, "query", "q", "", "search title and description")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only open tasks past their due date")
	return cmd
}

func taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show a task with its comments and documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.Task(args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var title, description, taskType, priority, assignee, due string
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p engine.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("description") {
				p.Description = &description
			}
			if flags.Changed("type") {
				v := domain.TaskType(taskType)
				p.Type = &v
			}
			if flags.Changed("priority") {
				v := domain.TaskPriority(priority)
				p.Priority = &v
			}
			if flags.Changed("assignee") {
				p.AssigneeID = &assignee
			}
			if flags.Changed("due") {
				p.DueDate = &due
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.UpdateTask(args[0], p)
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&taskType, "type", "", "task type")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee user id")
	cmd.Flags().StringVar(&due, "due", "", "due date (RFC 3339, empty clears)")
	return cmd
}

func taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id> <status>",
		Short: "Move a task to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.UpdateTaskStatus(args[0], domain.TaskStatus(args[1]))
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task with its comments and documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Engine.DeleteTask(args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func trayCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tray", Short: "Show in and out trays"}
	for _, t := range []struct {
		use, short string
		list       func(*engine.Engine, string) []domain.Task
	}{
		{"in", "Tasks assigned to the persona", (*engine.Engine).InTray},
		{"out", "Tasks created by the persona", (*engine.Engine).OutTray},
	} {
		list := t.list
		cmd.AddCommand(&cobra.Command{
			Use:   t.use,
			Short: t.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
					userID, err := actor(a.Engine)
					if err != nil {
						return err
					}
					return printTasks(list(a.Engine, userID))
				})
			},
		})
	}
	return cmd
}

func commentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "comment", Short: "Manage task comments"}
	var mentions []string
	add := &cobra.Command{
		Use:   "add <task-id> <content>",
		Short: "Comment on a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				author, err := actor(a.Engine)
				if err != nil {
					return err
				}
				c, err := a.Engine.AddComment(args[0], engine.CommentInput{Content: args[1], AuthorID: author, Mentions: mentions})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	add.Flags().StringSliceVar(&mentions, "mention", nil, "mentioned user id (repeatable)")
	cmd.AddCommand(add)
	cmd.AddCommand(&cobra.Command{
		Use:   "edit <comment-id> <content>",
		Short: "Edit a comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.Engine.UpdateComment(args[0], args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list <task-id>",
		Short: "List comments of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.CommentsForTask(args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Author", "Created", "Content"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.AuthorID, c.CreatedAt, truncate(c.Content, 60)})
				}
				tw.Render()
				return nil
			})
		},
	})
	return cmd
}

func docCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "doc", Short: "Manage task documents"}

	var in engine.DocumentInput
	var category string
	add := &cobra.Command{
		Use:   "add <task-id>",
		Short: "Attach a document to a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				uploader, err := actor(a.Engine)
				if err != nil {
					return err
				}
				in.UploadedBy = uploader
				in.Category = domain.DocumentCategory(category)
				d, err := a.Engine.AddDocument(args[0], in)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	add.Flags().StringVar(&in.Name, "name", "", "document name")
	add.Flags().StringVar(&in.Type, "type", "application/pdf", "MIME type")
	add.Flags().Int64Var(&in.Size, "size", 0, "size in bytes")
	add.Flags().StringVar(&category, "category", "", "document category")
	add.Flags().StringVar(&in.Description, "description", "", "description")
	add.Flags().StringVar(&in.URL, "url", "", "file URL")
	add.Flags().StringVar(&in.Changes, "changes", "", "change note for the first version")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("url")
	cmd.AddCommand(add)

	var vin engine.VersionInput
	version := &cobra.Command{
		Use:   "version <document-id>",
		Short: "Upload a new document version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				uploader, err := actor(a.Engine)
				if err != nil {
					return err
				}
				vin.UploadedBy = uploader
				d, err := a.Engine.AddDocumentVersion(args[0], vin)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	version.Flags().StringVar(&vin.URL, "url", "", "file URL")
	version.Flags().Int64Var(&vin.Size, "size", 0, "size in bytes (0 keeps the current size)")
	version.Flags().StringVar(&vin.Changes, "changes", "", "change note")
	_ = version.MarkFlagRequired("url")
	cmd.AddCommand(version)

	cmd.AddCommand(&cobra.Command{
		Use:   "list [task-id]",
		Short: "List documents, optionally for one task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				docs := a.Engine.Documents()
				if len(args) == 1 {
					var err error
					if docs, err = a.Engine.DocumentsForTask(args[0]); err != nil {
						return err
					}
				}
				if viper.GetBool("json") {
					return printJSON(docs)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Category", "Task", "Version", "Size"})
				for _, d := range docs {
					tw.AppendRow(table.Row{d.ID, d.Name, d.Category, d.TaskID, d.Version, d.Size})
				}
				tw.Render()
				return nil
			})
		},
	})
	return cmd
}

func analyticsCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show task analytics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res := a.Engine.Analytics(engine.Scope{UserID: userID})
				if viper.GetBool("json") {
					return printJSON(res)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"Total", "Completed", "Pending", "Overdue", "Completion"})
				tw.AppendRow(table.Row{res.TotalTasks, res.CompletedTasks, res.PendingTasks, res.OverdueTasksCount, fmt.Sprintf("%d%%", res.CompletionRate)})
				tw.Render()
				if userID != "" {
					s := a.Engine.TaskStats(userID)
					st := newTable()
					st.AppendHeader(table.Row{"In tray", "Out tray", "In progress", "Pending review", "Approved", "Completed"})
					st.AppendRow(table.Row{s.InTray, s.OutTray, s.InProgress, s.PendingReview, s.Approved, s.Completed})
					st.Render()
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "scope to tasks a user created or is assigned")
	return cmd
}

func sessionCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{Use: "session", Short: "Work inside a persona session"}
	cmd.PersistentFlags().StringVar(&mode, "mode", "", "shared|isolated (defaults to config)")
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the persona's view of its session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), session.Mode(mode), func(s *session.Session) error {
				s.Activate()
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"persona":     s.Persona(),
						"mode":        s.Mode(),
						"analytics":   s.Analytics(),
						"activeTasks": s.ActiveTasks(),
					})
				}
				fmt.Printf("%s (%s) in %s mode\n", s.Persona().Name, s.Persona().ID, s.Mode())
				a := s.Analytics()
				fmt.Printf("%d tasks, %d completed, %d pending, %d overdue\n", a.TotalTasks, a.CompletedTasks, a.PendingTasks, a.OverdueTasksCount)
				return printTasks(s.ActiveTasks())
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset the persona's session data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), session.Mode(mode), func(s *session.Session) error {
				s.Reset()
				fmt.Printf("Session for %s reset (%s mode)\n", s.Persona().ID, s.Mode())
				return nil
			})
		},
	})
	return cmd
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	cmd.AddCommand(logTailCmd())
	return cmd
}

func logTailCmd() *cobra.Command {
	var n int
	var f events.Filter
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if a.DB == nil {
					return fmt.Errorf("the %s backend keeps no event log", a.Config.Storage.Backend)
				}
				items, err := events.Latest(ctx, a.DB, n, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Namespace", "Entity", "Actor"})
				for _, evt := range items {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.Namespace, strings.Trim(evt.EntityKind+" "+evt.EntityID, " "), evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	cmd.Flags().StringVar(&f.Namespace, "namespace", "", "namespace")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if !cmd.Flags().Changed("addr") {
					addr = a.Config.Server.Addr
				}
				if !cmd.Flags().Changed("base-path") && a.Config.Server.BasePath != "" {
					basePath = a.Config.Server.BasePath
				}
				handler, err := server.New(server.Config{Engine: a.Engine, BasePath: basePath, DB: a.DB, Logger: a.Logger})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving inflow API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	if backend := viper.GetString("backend"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dsn := viper.GetString("postgres-dsn"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	logger := log.New(os.Stderr, "inflow: ", log.LstdFlags)
	a, err := app.Open(ctx, workspace, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func withSession(ctx context.Context, mode session.Mode, fn func(*session.Session) error) error {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		personaID, err := actor(a.Engine)
		if err != nil {
			return err
		}
		s, err := a.Session(personaID, mode)
		if err != nil {
			return err
		}
		return fn(s)
	})
}

// actor resolves the --persona flag, falling back to the active persona.
func actor(e *engine.Engine) (string, error) {
	if id := viper.GetString("persona"); id != "" {
		if _, err := e.User(id); err != nil {
			return "", err
		}
		return id, nil
	}
	u, ok := e.ActivePersona()
	if !ok {
		return "", errors.New("no active persona; pick one with inflow persona use <user-id>")
	}
	return u.ID, nil
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	return tw
}

func printTask(t domain.Task) error {
	if viper.GetBool("json") {
		return printJSON(t)
	}
	return printTasks([]domain.Task{t})
}

func printTasks(tasks []domain.Task) error {
	if viper.GetBool("json") {
		return printJSON(tasks)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Assignee", "Due"})
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = *t.DueDate
		}
		tw.AppendRow(table.Row{t.ID, truncate(t.Title, 48), t.Status, t.Priority, t.AssigneeID, due})
	}
	tw.Render()
	return nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
