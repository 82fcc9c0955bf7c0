package crop

import "sync"

// Store maps asset IDs to their last-known crop parameters.
//
// A store has one of two lifetimes, fixed when the owning controller
// is built: session-local (a fresh Store per controller, discarded
// with it) or process-wide (a single shared Store handle injected
// into every controller so crop choices survive controller
// recreation). The mutex covers the shared case; mutating operations
// are still logically single-writer, since the UI serializes
// interactions.
type Store struct {
	mu     sync.RWMutex
	params map[string]Parameter
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{params: make(map[string]Parameter)}
}

// Get returns the stored parameter for an asset, or false if absent.
// The caller decides whether to fall back to DefaultParameter.
func (s *Store) Get(assetID string) (Parameter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.params[assetID]
	return p, ok
}

// SnapshotAndMerge rebuilds the backing map from the current
// selection: the supplied parameter for changedID (when non-nil), the
// prior entry when one exists, a default otherwise. Entries for
// assets outside the selection are dropped, so the keys always track
// the live selection. The swap is atomic from the caller's view.
func (s *Store) SnapshotAndMerge(changedID string, changed *Parameter, selection []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]Parameter, len(selection))
	for _, id := range selection {
		switch {
		case changed != nil && id == changedID:
			p := *changed
			p.AssetID = id
			merged[id] = p
		default:
			if prev, ok := s.params[id]; ok {
				merged[id] = prev
			} else {
				merged[id] = DefaultParameter(id)
			}
		}
	}
	s.params = merged
}

// Clear empties the backing map.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = make(map[string]Parameter)
}

// Snapshot returns a copy of the mapping. Exports read it once so an
// in-flight export is unaffected by later store mutation.
func (s *Store) Snapshot() map[string]Parameter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Parameter, len(s.params))
	for id, p := range s.params {
		out[id] = p
	}
	return out
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.params)
}
