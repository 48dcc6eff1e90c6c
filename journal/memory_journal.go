package journal

import "sync"

type MemoryJournal struct {
	mu      sync.RWMutex
	entries map[string][]*Entry
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: map[string][]*Entry{}}
}

func (j *MemoryJournal) Append(entry *Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	e := *entry
	j.entries[entry.Table] = append(j.entries[entry.Table], &e)
	return nil
}

func (j *MemoryJournal) List(table string) ([]*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	entries := make([]*Entry, 0, len(j.entries[table]))
	for _, e := range j.entries[table] {
		c := *e
		entries = append(entries, &c)
	}
	return entries, nil
}

func (j *MemoryJournal) Close() error {
	return nil
}
