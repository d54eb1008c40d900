package domain

func (u User) Clone() User { return u }

func (v DocumentVersion) Clone() DocumentVersion { return v }

func (d Document) Clone() Document {
	out := d
	out.Versions = append(make([]DocumentVersion, 0, len(d.Versions)), d.Versions...)
	return out
}

func (c Comment) Clone() Comment {
	out := c
	out.Mentions = append(make([]string, 0, len(c.Mentions)), c.Mentions...)
	return out
}

func (t Task) Clone() Task {
	out := t
	if t.DueDate != nil {
		due := *t.DueDate
		out.DueDate = &due
	}
	out.Documents = CloneDocuments(t.Documents)
	out.Comments = CloneComments(t.Comments)
	return out
}

func CloneUsers(in []User) []User {
	return append(make([]User, 0, len(in)), in...)
}

func CloneTasks(in []Task) []Task {
	out := make([]Task, 0, len(in))
	for _, t := range in {
		out = append(out, t.Clone())
	}
	return out
}

func CloneDocuments(in []Document) []Document {
	out := make([]Document, 0, len(in))
	for _, d := range in {
		out = append(out, d.Clone())
	}
	return out
}

func CloneComments(in []Comment) []Comment {
	out := make([]Comment, 0, len(in))
	for _, c := range in {
		out = append(out, c.Clone())
	}
	return out
}

// Clone returns a deep copy with every nil slice replaced by an empty one.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Users:     CloneUsers(s.Users),
		Tasks:     CloneTasks(s.Tasks),
		Documents: CloneDocuments(s.Documents),
		Comments:  CloneComments(s.Comments),
	}
}
