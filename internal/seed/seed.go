// Package seed supplies the initial relational state a repository starts
// from when nothing usable is stored.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"inflow/internal/domain"
)

// Provider returns a fresh, internally consistent snapshot on every call.
type Provider interface {
	Snapshot() domain.Snapshot
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() domain.Snapshot

func (f ProviderFunc) Snapshot() domain.Snapshot { return f() }

// Static returns a provider that hands out copies of s.
func Static(s domain.Snapshot) Provider {
	frozen := s.Clone()
	return ProviderFunc(frozen.Clone)
}

// Empty provides a snapshot with no records.
var Empty Provider = ProviderFunc(func() domain.Snapshot { return domain.Snapshot{}.Clone() })

//go:embed data/demo.yml
var demoYAML []byte

var demo = sync.OnceValues(func() (domain.Snapshot, error) { return FromYAML(demoYAML) })

// Demo returns the built-in two-persona demo data set.
func Demo() Provider {
	return ProviderFunc(func() domain.Snapshot {
		s, err := demo()
		if err != nil {
			panic(fmt.Sprintf("seed: embedded demo data: %v", err))
		}
		return s.Clone()
	})
}

// FromFile reads a seed document in the demo.yml layout.
func FromFile(path string) (Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := FromYAML(data)
	if err != nil {
		return nil, err
	}
	return Static(s), nil
}

type seedFile struct {
	Users     []seedUser     `yaml:"users"`
	Tasks     []seedTask     `yaml:"tasks"`
	Documents []seedDocument `yaml:"documents"`
	Comments  []seedComment  `yaml:"comments"`
}

type seedUser struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Department string `yaml:"department"`
	Role       string `yaml:"role"`
	Avatar     string `yaml:"avatar"`
}

type seedTask struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Status      string `yaml:"status"`
	Priority    string `yaml:"priority"`
	Assignee    string `yaml:"assignee"`
	CreatedBy   string `yaml:"createdBy"`
	CreatedAt   string `yaml:"createdAt"`
	UpdatedAt   string `yaml:"updatedAt"`
	DueDate     string `yaml:"dueDate"`
}

type seedDocument struct {
	ID          string        `yaml:"id"`
	Task        string        `yaml:"task"`
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"`
	Size        int64         `yaml:"size"`
	Category    string        `yaml:"category"`
	Description string        `yaml:"description"`
	UploadedBy  string        `yaml:"uploadedBy"`
	Versions    []seedVersion `yaml:"versions"`
}

type seedVersion struct {
	By      string `yaml:"by"`
	At      string `yaml:"at"`
	URL     string `yaml:"url"`
	Changes string `yaml:"changes"`
}

type seedComment struct {
	ID       string   `yaml:"id"`
	Task     string   `yaml:"task"`
	Author   string   `yaml:"author"`
	At       string   `yaml:"at"`
	Mentions []string `yaml:"mentions"`
	Content  string   `yaml:"content"`
}

// FromYAML builds a snapshot from a seed document. Task embeddings are
// derived from each document's and comment's task reference.
func FromYAML(data []byte) (domain.Snapshot, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Snapshot{}, fmt.Errorf("invalid seed yaml: %w", err)
	}
	var s domain.Snapshot
	for _, u := range f.Users {
		s.Users = append(s.Users, domain.User{
			ID:         u.ID,
			Name:       u.Name,
			Email:      u.Email,
			Department: domain.Department(u.Department),
			Role:       domain.UserRole(u.Role),
			Avatar:     u.Avatar,
		})
	}
	for _, d := range f.Documents {
		if len(d.Versions) == 0 {
			return domain.Snapshot{}, fmt.Errorf("seed document %s has no versions", d.ID)
		}
		doc := domain.Document{
			ID:          d.ID,
			Name:        d.Name,
			Type:        d.Type,
			Size:        d.Size,
			Category:    domain.DocumentCategory(d.Category),
			Description: d.Description,
			UploadedBy:  d.UploadedBy,
			TaskID:      d.Task,
		}
		if doc.UploadedBy == "" {
			doc.UploadedBy = d.Versions[0].By
		}
		for i, v := range d.Versions {
			doc.Versions = append(doc.Versions, domain.DocumentVersion{
				ID:         VersionID(d.ID, i+1),
				Version:    i + 1,
				UploadedBy: v.By,
				UploadedAt: v.At,
				URL:        v.URL,
				Changes:    v.Changes,
			})
		}
		last := doc.Versions[len(doc.Versions)-1]
		doc.Version = last.Version
		doc.UploadedAt = last.UploadedAt
		doc.URL = last.URL
		s.Documents = append(s.Documents, doc)
	}
	for _, c := range f.Comments {
		s.Comments = append(s.Comments, domain.Comment{
			ID:        c.ID,
			Content:   c.Content,
			AuthorID:  c.Author,
			CreatedAt: c.At,
			Mentions:  c.Mentions,
			TaskID:    c.Task,
		})
	}
	for _, t := range f.Tasks {
		task := domain.Task{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Type:        domain.TaskType(t.Type),
			Status:      domain.TaskStatus(t.Status),
			Priority:    domain.TaskPriority(t.Priority),
			AssigneeID:  t.Assignee,
			CreatedBy:   t.CreatedBy,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
		if task.UpdatedAt == "" {
			task.UpdatedAt = task.CreatedAt
		}
		if t.DueDate != "" {
			due := t.DueDate
			task.DueDate = &due
		}
		for _, d := range s.Documents {
			if d.TaskID == t.ID {
				task.Documents = append(task.Documents, d.Clone())
			}
		}
		for _, c := range s.Comments {
			if c.TaskID == t.ID {
				task.Comments = append(task.Comments, c.Clone())
			}
		}
		s.Tasks = append(s.Tasks, task)
	}
	return s.Clone(), nil
}

// VersionID names the n-th version entry of a document.
func VersionID(documentID string, n int) string {
	return fmt.Sprintf("version-%s-v%d", documentID, n)
}
