package catalog

// Store exposes catalog retrieval for HTTP handlers.
type Store interface {
	List(kind Kind) []Entry
}

// MemoryStore implements Store with in-memory slices.
type MemoryStore struct {
	items map[Kind][]Entry
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied entries.
func NewMemoryStore(items map[Kind][]Entry) *MemoryStore {
	copied := make(map[Kind][]Entry, len(items))
	for kind, entries := range items {
		copied[kind] = append([]Entry(nil), entries...)
	}
	return &MemoryStore{items: copied}
}

// List returns the entries of kind. Unknown kinds yield an empty list.
func (s *MemoryStore) List(kind Kind) []Entry {
	return append([]Entry{}, s.items[kind]...)
}
