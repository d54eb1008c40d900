package domain

import (
	"fmt"
	"time"
)

// Profile selects the storage shape of users and documents.
type Profile string

const (
	// ProfileCategorized keeps document categories and closes user roles and departments.
	ProfileCategorized Profile = "categorized"
	// ProfileLegacy drops document categories and accepts free-form roles and departments.
	ProfileLegacy Profile = "legacy"
)

func (p Profile) Valid() bool { return p == ProfileCategorized || p == ProfileLegacy }

// Normalize returns p, or the categorized profile when p is empty.
func (p Profile) Normalize() Profile {
	if p == "" {
		return ProfileCategorized
	}
	return p
}

// ShapeDocument adapts a document to the profile's storage shape.
func (p Profile) ShapeDocument(d Document) Document {
	if p.Normalize() == ProfileLegacy {
		d.Category = ""
	}
	return d
}

func (p Profile) CheckCategory(c DocumentCategory) error {
	if c == "" || p.Normalize() == ProfileLegacy {
		return nil
	}
	if !c.Valid() {
		return fmt.Errorf("invalid document category %q", c)
	}
	return nil
}

func (p Profile) CheckUser(u User) error {
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if p.Normalize() == ProfileLegacy {
		return nil
	}
	if !u.Role.Valid() {
		return fmt.Errorf("user %s has invalid role %q", u.ID, u.Role)
	}
	if !u.Department.Valid() {
		return fmt.Errorf("user %s has invalid department %q", u.ID, u.Department)
	}
	return nil
}

// TimeLayout is the timestamp format used for every stored instant.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

// ParseTime accepts any RFC 3339 instant, with or without fractional seconds.
func ParseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }
