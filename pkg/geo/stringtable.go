package geo

import "sync"

// StringTable interns strings to compact numeric IDs.
//
// One table is shared process-wide between parsers and stores so that tag
// comparison is an integer comparison. All methods are safe for concurrent
// use.
type StringTable struct {
	mu      sync.RWMutex
	ids     map[string]uint32
	strings []string
}

// NewStringTable creates an empty string table.
func NewStringTable() *StringTable {
	return &StringTable{
		ids: make(map[string]uint32),
	}
}

// Intern returns the ID for s, assigning the next free ID on first use.
func (t *StringTable) Intern(s string) uint32 {
	t.mu.RLock()
	id, ok := t.ids[s]
	t.mu.RUnlock()
	if ok {
		return id
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Re-check: another goroutine may have interned s between the locks.
	if id, ok := t.ids[s]; ok {
		return id
	}
	id = uint32(len(t.strings))
	t.ids[s] = id
	t.strings = append(t.strings, s)
	return id
}

// ID returns the ID for s without interning it.
func (t *StringTable) ID(s string) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.ids[s]
	return id, ok
}

// Lookup resolves an ID back to its string.
func (t *StringTable) Lookup(id uint32) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.strings) {
		return "", false
	}
	return t.strings[id], true
}

// Len returns the number of interned strings.
func (t *StringTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.strings)
}
