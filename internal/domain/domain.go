package domain

type User struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Department Department `json:"department"`
	Role       UserRole   `json:"role"`
	Avatar     string     `json:"avatar,omitempty"`
}

type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Type        TaskType     `json:"type" enum:"review,approval,information,action"`
	Status      TaskStatus   `json:"status" enum:"draft,assigned,in_progress,pending_review,approved,rejected,completed,cancelled"`
	Priority    TaskPriority `json:"priority" enum:"low,medium,high,urgent"`
	AssigneeID  string       `json:"assigneeId"`
	CreatedBy   string       `json:"createdBy"`
	CreatedAt   string       `json:"createdAt" format:"date-time"`
	UpdatedAt   string       `json:"updatedAt" format:"date-time"`
	DueDate     *string      `json:"dueDate,omitempty" format:"date-time"`
	Documents   []Document   `json:"documents"`
	Comments    []Comment    `json:"comments"`
}

type Document struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Size        int64             `json:"size"`
	Category    DocumentCategory  `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	UploadedBy  string            `json:"uploadedBy"`
	UploadedAt  string            `json:"uploadedAt" format:"date-time"`
	Version     int               `json:"version"`
	URL         string            `json:"url"`
	Versions    []DocumentVersion `json:"versions"`
	TaskID      string            `json:"taskId,omitempty"`
}

type DocumentVersion struct {
	ID         string `json:"id"`
	Version    int    `json:"version"`
	UploadedBy string `json:"uploadedBy"`
	UploadedAt string `json:"uploadedAt" format:"date-time"`
	URL        string `json:"url"`
	Changes    string `json:"changes,omitempty"`
}

type Comment struct {
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	AuthorID  string   `json:"authorId"`
	CreatedAt string   `json:"createdAt" format:"date-time"`
	UpdatedAt string   `json:"updatedAt,omitempty" format:"date-time"`
	Mentions  []string `json:"mentions"`
	TaskID    string   `json:"taskId"`
}

// Snapshot is the full relational state held by a repository.
type Snapshot struct {
	Users     []User     `json:"users"`
	Tasks     []Task     `json:"tasks"`
	Documents []Document `json:"documents"`
	Comments  []Comment  `json:"comments"`
}

// Analytics summarizes a set of tasks.
type Analytics struct {
	TotalTasks        int `json:"totalTasks"`
	CompletedTasks    int `json:"completedTasks"`
	PendingTasks      int `json:"pendingTasks"`
	OverdueTasksCount int `json:"overdueTasksCount"`
	CompletionRate    int `json:"completionRate"`
}

// TaskStats is the per-user tray breakdown.
type TaskStats struct {
	Total         int `json:"total"`
	InTray        int `json:"inTray"`
	OutTray       int `json:"outTray"`
	Completed     int `json:"completed"`
	InProgress    int `json:"inProgress"`
	PendingReview int `json:"pendingReview"`
	Approved      int `json:"approved"`
}
