package repo

import "fmt"

// DefaultNamespace prefixes every key the repository writes.
const DefaultNamespace = "inflow"

// Keys names the six logical records of one state partition.
type Keys struct {
	Users         string
	Tasks         string
	Documents     string
	Comments      string
	ActivePersona string
	Initialized   string
}

// DemoKeys returns the shared pool layout, e.g. inflow-demo-tasks and inflow-active-persona.
func DemoKeys(ns string) Keys {
	if ns == "" {
		ns = DefaultNamespace
	}
	return Keys{
		Users:         ns + "-demo-users",
		Tasks:         ns + "-demo-tasks",
		Documents:     ns + "-demo-documents",
		Comments:      ns + "-demo-comments",
		ActivePersona: ns + "-active-persona",
		Initialized:   ns + "-demo-initialized",
	}
}

// PersonaKeys returns an isolated partition layout, e.g.
// inflow-persona-user-001-tasks. The persona segment keeps partitions
// disjoint from the shared pool whatever the persona id is. Partitions carry
// no active persona record.
func PersonaKeys(ns, personaID string) Keys {
	if ns == "" {
		ns = DefaultNamespace
	}
	prefix := fmt.Sprintf("%s-persona-%s-", ns, personaID)
	return Keys{
		Users:       prefix + "users",
		Tasks:       prefix + "tasks",
		Documents:   prefix + "documents",
		Comments:    prefix + "comments",
		Initialized: prefix + "initialized",
	}
}

// All lists every non-empty key.
func (k Keys) All() []string {
	var out []string
	for _, key := range []string{k.Users, k.Tasks, k.Documents, k.Comments, k.ActivePersona, k.Initialized} {
		if key != "" {
			out = append(out, key)
		}
	}
	return out
}
