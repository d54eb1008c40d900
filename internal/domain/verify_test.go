package domain_test

import (
	"strings"
	"testing"

	"inflow/internal/domain"
	"inflow/internal/seed"
)

func TestVerifyAcceptsDemoData(t *testing.T) {
	s := seed.Demo().Snapshot()
	if err := domain.Verify(s, domain.ProfileCategorized); err != nil {
		t.Fatalf("demo data rejected: %v", err)
	}
}

func TestVerifyReportsViolations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(s *domain.Snapshot)
		want   string
	}{
		{"unknown assignee", func(s *domain.Snapshot) { s.Tasks[0].AssigneeID = "ghost" }, "unknown assignee ghost"},
		{"duplicate task", func(s *domain.Snapshot) { s.Tasks = append(s.Tasks, s.Tasks[0]) }, "duplicate task task-001"},
		{"stale embedded comment", func(s *domain.Snapshot) { s.Tasks[0].Comments[0].Content = "edited" }, "differs from stored copy"},
		{"comment not embedded", func(s *domain.Snapshot) { s.Tasks[0].Comments = s.Tasks[0].Comments[1:] }, "not embedded in task task-001"},
		{"orphan comment", func(s *domain.Snapshot) { s.Comments[0].TaskID = "task-404" }, "unknown task task-404"},
		{"document in two tasks", func(s *domain.Snapshot) {
			s.Tasks[1].Documents = append(s.Tasks[1].Documents, s.Documents[0])
		}, "embedded in tasks task-001 and task-002"},
		{"version gap", func(s *domain.Snapshot) {
			s.Documents[0].Version = 5
			s.Tasks[0].Documents[0].Version = 5
		}, "doc-001"},
		{"bad status", func(s *domain.Snapshot) { s.Tasks[3].Status = "archived" }, `invalid status "archived"`},
		{"time travel", func(s *domain.Snapshot) { s.Tasks[4].UpdatedAt = "2024-01-01T00:00:00Z" }, "updatedAt precedes createdAt"},
		{"bad category", func(s *domain.Snapshot) {
			s.Documents[1].Category = "napkin"
			s.Tasks[1].Documents[0].Category = "napkin"
		}, "invalid document category"},
	}
	for _, tc := range cases {
		s := seed.Demo().Snapshot()
		tc.mutate(&s)
		err := domain.Verify(s, domain.ProfileCategorized)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected violation containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestVerifyLegacyProfile(t *testing.T) {
	s := seed.Demo().Snapshot()
	if err := domain.Verify(s, domain.ProfileLegacy); err == nil {
		t.Fatalf("categorized documents must be rejected by the legacy profile")
	}
	for i := range s.Documents {
		s.Documents[i] = domain.ProfileLegacy.ShapeDocument(s.Documents[i])
	}
	for i := range s.Tasks {
		for j := range s.Tasks[i].Documents {
			s.Tasks[i].Documents[j] = domain.ProfileLegacy.ShapeDocument(s.Tasks[i].Documents[j])
		}
	}
	s.Users[0].Role = "tower_climber"
	if err := domain.Verify(s, domain.ProfileLegacy); err != nil {
		t.Fatalf("legacy snapshot rejected: %v", err)
	}
	if err := domain.Verify(s, domain.ProfileCategorized); err == nil {
		t.Fatalf("free-form role accepted by the categorized profile")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := seed.Demo().Snapshot()
	c := s.Clone()
	c.Tasks[0].Comments[0].Mentions[0] = "changed"
	*c.Tasks[0].DueDate = "2030-01-01T00:00:00Z"
	c.Documents[0].Versions[0].URL = "/elsewhere"
	if s.Tasks[0].Comments[0].Mentions[0] == "changed" || *s.Tasks[0].DueDate == "2030-01-01T00:00:00Z" || s.Documents[0].Versions[0].URL == "/elsewhere" {
		t.Fatalf("clone shares memory with the original")
	}
	empty := domain.Snapshot{}.Clone()
	if empty.Users == nil || empty.Tasks == nil || empty.Documents == nil || empty.Comments == nil {
		t.Fatalf("clone must replace nil slices")
	}
}

func TestTaskStatusHelpers(t *testing.T) {
	for _, s := range domain.TaskStatuses {
		pending := s == domain.StatusAssigned || s == domain.StatusInProgress
		if s.Pending() != pending {
			t.Fatalf("%s: Pending() = %v", s, s.Pending())
		}
	}
	if !domain.StatusCancelled.Closed() || domain.StatusApproved.Closed() {
		t.Fatalf("unexpected Closed() results")
	}
}
