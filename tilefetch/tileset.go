package tilefetch

import "sync"

// TileSet owns the tiles currently covered by a viewport or prefetch job.
// Reconcile drives the remove-and-notify pattern: tiles no longer covered
// are cancelled first, then reported through the eviction callback.
// Cancellation itself never fires a tile's completion callback.
type TileSet struct {
	mu      sync.Mutex
	tiles   map[TileID]*Tile
	onEvict func(TileID, *Tile)
}

// NewTileSet builds an empty set. onEvict may be nil.
func NewTileSet(onEvict func(TileID, *Tile)) *TileSet {
	return &TileSet{
		tiles:   make(map[TileID]*Tile),
		onEvict: onEvict,
	}
}

// Get returns the tile for id, or nil if it is not in the set.
func (s *TileSet) Get(id TileID) *Tile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tiles[id]
}

// Len returns the number of tiles currently held.
func (s *TileSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tiles)
}

// Reconcile makes the set match cover. Tiles missing from the set are
// created through factory and returned so the caller can Initialize them;
// tiles no longer covered are cancelled, removed, and passed to the
// eviction callback.
func (s *TileSet) Reconcile(cover []TileID, factory func(TileID) *Tile) []*Tile {
	s.mu.Lock()

	want := make(map[TileID]struct{}, len(cover))
	for _, id := range cover {
		want[id] = struct{}{}
	}

	var created []*Tile
	for _, id := range cover {
		if _, ok := s.tiles[id]; ok {
			continue
		}
		t := factory(id)
		s.tiles[id] = t
		created = append(created, t)
	}

	var evicted []*Tile
	for id, t := range s.tiles {
		if _, ok := want[id]; !ok {
			delete(s.tiles, id)
			evicted = append(evicted, t)
		}
	}

	s.mu.Unlock()

	for _, t := range evicted {
		t.Cancel()
		if s.onEvict != nil {
			s.onEvict(t.ID(), t)
		}
	}

	return created
}
