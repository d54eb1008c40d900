package seed

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"inflow/internal/domain"
)

//go:embed data/personas.yml
var personasYAML []byte

type personaFile struct {
	CreatedAt string            `yaml:"createdAt"`
	Templates []personaTemplate `yaml:"templates"`
}

type personaTemplate struct {
	Name     string         `yaml:"name"`
	Personas []string       `yaml:"personas"`
	Tasks    []templateTask `yaml:"tasks"`
}

type templateTask struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Status      string `yaml:"status"`
	Priority    string `yaml:"priority"`
}

var personaTemplates = sync.OnceValues(func() (personaFile, error) {
	var f personaFile
	if err := yaml.Unmarshal(personasYAML, &f); err != nil {
		return personaFile{}, fmt.Errorf("invalid persona templates: %w", err)
	}
	return f, nil
})

// Persona returns the starting state of an isolated partition for
// personaID: the given users plus the persona's template tasks, each
// created by and assigned to the persona. Personas without a template of
// their own get the default one.
func Persona(personaID string, users []domain.User) Provider {
	roster := domain.CloneUsers(users)
	return ProviderFunc(func() domain.Snapshot {
		f, err := personaTemplates()
		if err != nil {
			panic(fmt.Sprintf("seed: embedded persona templates: %v", err))
		}
		tmpl := templateFor(f.Templates, personaID)
		s := domain.Snapshot{Users: domain.CloneUsers(roster)}
		for i, t := range tmpl.Tasks {
			s.Tasks = append(s.Tasks, domain.Task{
				ID:          fmt.Sprintf("%s-task-%03d", personaID, i+1),
				Title:       t.Title,
				Description: t.Description,
				Type:        domain.TaskType(t.Type),
				Status:      domain.TaskStatus(t.Status),
				Priority:    domain.TaskPriority(t.Priority),
				AssigneeID:  personaID,
				CreatedBy:   personaID,
				CreatedAt:   f.CreatedAt,
				UpdatedAt:   f.CreatedAt,
			})
		}
		return s.Clone()
	})
}

func templateFor(templates []personaTemplate, personaID string) personaTemplate {
	var fallback personaTemplate
	for _, t := range templates {
		if t.Name == "default" {
			fallback = t
		}
		for _, p := range t.Personas {
			if p == personaID {
				return t
			}
		}
	}
	return fallback
}
