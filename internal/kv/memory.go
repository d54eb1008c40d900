package kv

import (
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process store. A positive Quota caps the total bytes of keys and values.
type Memory struct {
	Quota int

	mu     sync.Mutex
	data   map[string]string
	writes int
}

func NewMemory() *Memory { return &Memory{data: map[string]string{}} }

func (m *Memory) Read(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Write(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	if m.Quota > 0 {
		size := len(key) + len(value)
		for k, v := range m.data {
			if k != key {
				size += len(k) + len(v)
			}
		}
		if size > m.Quota {
			return ErrQuotaExceeded
		}
	}
	m.data[key] = value
	m.writes++
	return nil
}

// WriteBatch applies entries together. When the result would exceed the
// quota nothing is changed.
func (m *Memory) WriteBatch(entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	if m.Quota > 0 {
		next := make(map[string]string, len(m.data)+len(entries))
		for k, v := range m.data {
			next[k] = v
		}
		for _, e := range entries {
			if e.Delete {
				delete(next, e.Key)
			} else {
				next[e.Key] = e.Value
			}
		}
		size := 0
		for k, v := range next {
			size += len(k) + len(v)
		}
		if size > m.Quota {
			return ErrQuotaExceeded
		}
	}
	for _, e := range entries {
		if e.Delete {
			delete(m.data, e.Key)
			continue
		}
		m.data[e.Key] = e.Value
		m.writes++
	}
	return nil
}

// Size is the total bytes of stored keys and values, as counted against Quota.
func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	size := 0
	for k, v := range m.data {
		size += len(k) + len(v)
	}
	return size
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Writes counts successful writes since creation.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Keys lists stored keys with the given prefix, sorted.
func (m *Memory) Keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
