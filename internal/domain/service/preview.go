package service

import (
	"context"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"sync"
	"time"
)

// DefaultPreviewIdle is how long a session may go without requests before
// the hub drops it.
const DefaultPreviewIdle = 10 * time.Minute

type previewRenderer interface {
	Render(ctx context.Context, payload string, c qr.Customization) (*qr.Result, error)
}

// Preview is the outcome of one preview request. A superseded preview
// carries neither result nor error.
type Preview struct {
	Seq        uint64
	Result     *qr.Result
	Err        error
	Superseded bool
}

// Previewer renders previews for one editing session with last write wins
// semantics: a new request cancels the one in flight, and only the newest
// request's result is ever published.
type Previewer struct {
	renderer previewRenderer
	now      func() time.Time

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	latest   *Preview
	used     time.Time
	inFlight int
}

func NewPreviewer(renderer previewRenderer) *Previewer {
	return newPreviewer(renderer, time.Now)
}

func newPreviewer(renderer previewRenderer, now func() time.Time) *Previewer {
	return &Previewer{renderer: renderer, now: now, used: now()}
}

// Request starts rendering payload with a private copy of c. The returned
// channel receives exactly one Preview.
func (p *Previewer) Request(ctx context.Context, payload string, c qr.Customization) <-chan Preview {
	c = c.Clone()
	out := make(chan Preview, 1)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.seq++
	seq := p.seq
	renderCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.used = p.now()
	p.inFlight++
	p.mu.Unlock()

	go func() {
		defer cancel()
		res, err := p.renderer.Render(renderCtx, payload, c)

		p.mu.Lock()
		defer p.mu.Unlock()
		p.inFlight--
		if seq != p.seq {
			out <- Preview{Seq: seq, Superseded: true}
			return
		}
		pv := Preview{Seq: seq, Result: res, Err: err}
		p.latest = &pv
		out <- pv
	}()
	return out
}

// Latest returns the newest published preview.
func (p *Previewer) Latest() (Preview, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return Preview{}, false
	}
	return *p.latest, true
}

// Stop cancels the request in flight, if any.
func (p *Previewer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Previewer) touch() {
	p.mu.Lock()
	p.used = p.now()
	p.mu.Unlock()
}

// idle reports whether nothing is rendering and the last use is older than ttl.
func (p *Previewer) idle(now time.Time, ttl time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight == 0 && now.Sub(p.used) >= ttl
}

// PreviewHub keeps one Previewer per editing session. Sessions idle for
// longer than the hub's idle time are dropped by Sweep.
type PreviewHub struct {
	renderer previewRenderer
	idle     time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Previewer
}

func NewPreviewHub(renderer previewRenderer, idle time.Duration) *PreviewHub {
	if idle <= 0 {
		idle = DefaultPreviewIdle
	}
	return &PreviewHub{
		renderer: renderer,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*Previewer),
	}
}

func (h *PreviewHub) Session(id string) *Previewer {
	h.mu.Lock()
	p, ok := h.sessions[id]
	if !ok {
		p = newPreviewer(h.renderer, h.now)
		h.sessions[id] = p
	}
	h.mu.Unlock()

	p.touch()
	return p
}

// Len returns the number of live sessions.
func (h *PreviewHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Sweep drops idle sessions and returns how many were dropped.
func (h *PreviewHub) Sweep() int {
	now := h.now()

	h.mu.Lock()
	var stale []*Previewer
	for id, p := range h.sessions {
		if p.idle(now, h.idle) {
			stale = append(stale, p)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()

	for _, p := range stale {
		p.Stop()
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (h *PreviewHub) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Forget stops and drops a session.
func (h *PreviewHub) Forget(id string) {
	h.mu.Lock()
	p, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if ok {
		p.Stop()
	}
}
