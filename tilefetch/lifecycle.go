package tilefetch

import (
	"fmt"
	"log/slog"
	"sync"
)

// DecodeFailedError is recorded on a tile when the payload decoder rejects
// otherwise successfully fetched bytes. The decoder's own error is not
// propagated; callers that need detail should decode out of band.
const DecodeFailedError = "failed to decode tile payload"

// PayloadDecoder parses raw payload bytes into a tile's internal
// representation. A non-nil error reports a decode failure; decoders must
// not panic on malformed input. Decode runs in the transport's completion
// context, inside the tile's critical section, so it may write the
// variant's content fields directly.
type PayloadDecoder interface {
	Decode(data []byte) error
}

// Tile drives the fetch/parse lifecycle of a single tile. A tile owns at
// most one in-flight request at a time; starting a new attempt always
// cancels the previous one first. All methods are safe for concurrent use.
// The mutex is scoped to this tile only; tiles are independent units of
// concurrency.
//
// The zero Tile is not usable. Construct variants with NewRasterTile,
// NewVectorTile, NewTerrainTile or NewBlobTile, or wire custom resolver and
// decoder capabilities with NewTile.
type Tile struct {
	mu sync.Mutex

	id       TileID
	state    TileState
	err      string
	resolver ResourceResolver
	decoder  PayloadDecoder

	handle     RequestHandle
	generation uint64
	done       func()
}

// NewTile builds a tile around caller-supplied resolver and decoder
// capabilities. The capabilities are fixed for the tile's lifetime.
func NewTile(id TileID, resolver ResourceResolver, decoder PayloadDecoder) *Tile {
	t := &Tile{}
	t.bind(id, resolver, decoder)
	return t
}

func (t *Tile) bind(id TileID, resolver ResourceResolver, decoder PayloadDecoder) {
	t.id = id
	t.state = StateNew
	t.resolver = resolver
	t.decoder = decoder
}

// Initialize starts a fetch attempt. Any prior in-flight attempt is
// cancelled first (a no-op when none exists). The tile transitions to
// Loading, the dataset is resolved to a fetch target, and the fetch is
// issued on src.
//
// done fires exactly once when this attempt reaches Loaded, from the
// transport's completion context, and never synchronously from Initialize.
// It never fires for an attempt superseded by Cancel or a later
// Initialize. Success and failure both land on Loaded; inspect Err after
// the callback to tell them apart.
func (t *Tile) Initialize(id TileID, dataset string, src FileSource, done func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handle != nil {
		t.handle.Cancel()
		t.handle = nil
	}

	t.generation++
	gen := t.generation

	t.id = id
	t.state = StateLoading
	t.done = done

	target := t.resolver.Resolve(id, dataset)
	slog.Debug("issuing tile fetch", "tile", id, "target", target)

	t.handle = src.Issue(target, func(resp Response) {
		t.onResponse(gen, resp)
	})
}

// Cancel aborts the in-flight attempt, if any, and marks the tile
// Canceled. The completion callback does not fire; owners that need
// notification do so themselves after calling Cancel. Idempotent, and safe
// with no fetch in flight.
func (t *Tile) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handle != nil {
		t.handle.Cancel()
		t.handle = nil
	}

	// Invalidate the attempt so a response the transport could not
	// suppress is dropped by the generation check.
	t.generation++

	t.state = StateCanceled
	t.done = nil
}

// onResponse is invoked by the transport when a fetch completes. A
// response correlated with a superseded generation is dropped without
// touching state or firing a callback.
func (t *Tile) onResponse(gen uint64, resp Response) {
	t.mu.Lock()

	if gen != t.generation {
		id := t.id
		t.mu.Unlock()
		slog.Debug("dropping stale tile response", "tile", id)
		return
	}

	t.handle = nil

	// The attempt is consumed: a duplicate delivery from a misbehaving
	// transport fails the generation check above.
	t.generation++

	switch {
	case resp.Err != "":
		t.err = resp.Err
	case t.decoder.Decode(resp.Data) != nil:
		t.err = DecodeFailedError
	default:
		t.err = ""
	}

	// State and error move together under the lock: both failure branches
	// still land on Loaded, distinguished only by the error string.
	t.state = StateLoaded
	done := t.done
	t.done = nil

	t.mu.Unlock()

	if done != nil {
		done()
	}
}

// SetState overrides the tile state directly, without side effects or
// validation. Escape hatch for owners that source tile content elsewhere
// (e.g. a warm cache); callers are responsible for consistency.
func (t *Tile) SetState(s TileState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// ID returns the tile's coordinate key.
func (t *Tile) ID() TileID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// State returns the current lifecycle state.
func (t *Tile) State() TileState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the error recorded by the last terminal transition. Empty
// while loading and after a clean load.
func (t *Tile) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Tile) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("tile %s [%s]", t.id, t.state)
}
