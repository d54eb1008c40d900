// Package kv holds the durable key-value media the workflow repository
// mirrors its state into.
package kv

import "errors"

// Store is a string-keyed durable medium. Read reports ok=false for absent keys.
type Store interface {
	Read(key string) (value string, ok bool, err error)
	Write(key, value string) error
	Remove(key string) error
}

// Entry is one change of a batch. Delete removes Key instead of writing Value.
type Entry struct {
	Key    string
	Value  string
	Delete bool
}

// Batcher is implemented by stores that apply several changes atomically:
// either every entry lands or none does.
type Batcher interface {
	WriteBatch(entries []Entry) error
}

// ErrQuotaExceeded is returned when a write would exceed the store's capacity.
var ErrQuotaExceeded = errors.New("kv: quota exceeded")

// Nop is a store with no durable medium. Reads are always absent and writes are discarded.
type Nop struct{}

func (Nop) Read(string) (string, bool, error) { return "", false, nil }
func (Nop) Write(string, string) error        { return nil }
func (Nop) Remove(string) error               { return nil }
func (Nop) WriteBatch([]Entry) error          { return nil }
