package commit

import "sync"

// Progress is one per-city progress update. RetryAttempt is zero on the
// first try of a city.
type Progress struct {
	BatchID      string `json:"batch_id"`
	Current      int    `json:"current"`
	Total        int    `json:"total"`
	CityName     string `json:"city_name"`
	RetryAttempt int    `json:"retry_attempt,omitempty"`
	RetryMax     int    `json:"retry_max,omitempty"`
}

type FailedCity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

type Result struct {
	BatchID   string       `json:"batch_id"`
	Committed []string     `json:"committed"`
	Failed    []FailedCity `json:"failed"`
}

// Handle is the observable side of a running commit batch. Progress is
// pushed; Last and Result stay available after completion so a reconnecting
// caller can poll by batch id.
type Handle struct {
	BatchID string

	mu       sync.Mutex
	last     *Progress
	result   *Result
	progress chan Progress
	done     chan struct{}
	cancel   func()
}

func newHandle(batchID string, cancel func()) *Handle {
	return &Handle{
		BatchID:  batchID,
		progress: make(chan Progress, 64),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
}

// Progress streams updates. The channel is closed when the batch finishes.
func (h *Handle) Progress() <-chan Progress {
	return h.progress
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Last returns the most recent progress update, nil before the first one.
func (h *Handle) Last() *Progress {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.last == nil {
		return nil
	}
	clone := *h.last
	return &clone
}

// Result returns the final outcome, nil while the batch is still running.
func (h *Handle) Result() *Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Cancel stops the batch after the city currently being written.
func (h *Handle) Cancel() {
	h.cancel()
}

func (h *Handle) publish(p Progress) {
	h.mu.Lock()
	h.last = &p
	h.mu.Unlock()

	// drop updates nobody is draining; Last keeps the latest state
	select {
	case h.progress <- p:
	default:
	}
}

func (h *Handle) finish(result *Result) {
	h.mu.Lock()
	h.result = result
	h.mu.Unlock()

	close(h.progress)
	close(h.done)
}
