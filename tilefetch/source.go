package tilefetch

// Response is the outcome of one issued fetch. Exactly one side is
// meaningful: a non-empty Err reports a transport failure and Data is
// ignored.
type Response struct {
	Err  string
	Data []byte
}

// RequestHandle is an opaque, cancellable handle to an in-flight fetch.
type RequestHandle interface {
	// Cancel asks the transport to stop the operation. Best effort: a
	// response may still be delivered if cancellation loses the race, and
	// the tile controller discards it by generation.
	Cancel()
}

// FileSource performs asynchronous fetches of resolved tile targets.
//
// Issue must never invoke respond synchronously, and must invoke it at
// most once per issued fetch. A fetch cancelled through its handle before
// completion should suppress the response entirely.
type FileSource interface {
	Issue(target string, respond func(Response)) RequestHandle
}
