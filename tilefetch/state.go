package tilefetch

// TileState is the lifecycle state of a single fetch attempt. Loaded and
// Canceled are terminal for the attempt, but a tile may be re-initialized
// from any state, which restarts the machine at Loading.
type TileState uint8

const (
	StateNew TileState = iota
	StateLoading
	StateLoaded
	StateCanceled
)

func (s TileState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateCanceled:
		return "canceled"
	}
	return "unknown"
}
