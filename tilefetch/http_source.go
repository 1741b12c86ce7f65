package tilefetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const httpUserAgent = "go-tilefetch/1.0"

// HTTPFileSource fetches tile targets over HTTP. Retry policy lives here,
// not in the tile controller: 5xx responses are retried with exponential
// backoff and everything else surfaces as a transport error.
type HTTPFileSource struct {
	client   *http.Client
	nRetries int
}

// NewHTTPFileSource configures a client with a request timeout and
// connection pools sized for many tiles in flight against one host.
func NewHTTPFileSource(timeout time.Duration) *HTTPFileSource {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 500,
			DisableCompression:  true,
		},
	}

	return &HTTPFileSource{client: client, nRetries: 3}
}

// cancelHandle adapts a context.CancelFunc to the RequestHandle contract.
// Shared by every built-in source.
type cancelHandle struct {
	cancel context.CancelFunc
}

func (h *cancelHandle) Cancel() { h.cancel() }

// Issue fetches target on a background goroutine and delivers the outcome
// to respond, unless the handle is cancelled first.
func (s *HTTPFileSource) Issue(target string, respond func(Response)) RequestHandle {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		data, err := s.get(ctx, target)

		// A cancelled fetch must not surface as a transport error.
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			respond(Response{Err: err.Error()})
			return
		}
		respond(Response{Data: data})
	}()

	return &cancelHandle{cancel: cancel}
}

func (s *HTTPFileSource) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("User-Agent", httpUserAgent)

	resp, err := s.doWithRetry(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func (s *HTTPFileSource) doWithRetry(req *http.Request) (*http.Response, error) {
	sleep := 500 * time.Millisecond

	for i := 0; i < s.nRetries; i++ {
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		resp.Body.Close()

		if resp.StatusCode < 500 || resp.StatusCode >= 600 {
			return nil, fmt.Errorf("fetching %s: %s", req.URL, resp.Status)
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(sleep):
		}

		sleep *= 2
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
	}

	return nil, fmt.Errorf("ran out of HTTP GET retries for %s", req.URL)
}
