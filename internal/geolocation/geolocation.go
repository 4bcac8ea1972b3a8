// README: One-shot device geolocation. Positions come from the browser
// client; the service side only waits for, caches and validates them.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bantay/internal/geo"
	"bantay/internal/types"
)

var (
	ErrTimeout     = errors.New("geolocation timed out")
	ErrUnavailable = errors.New("geolocation unavailable")
)

type Options struct {
	HighAccuracy bool          `json:"enableHighAccuracy"`
	Timeout      time.Duration `json:"-"`
	MaximumAge   time.Duration `json:"-"`
}

// DefaultOptions asks for a high-accuracy fix within 10s and accepts a
// cached fix up to 5 minutes old.
func DefaultOptions() Options {
	return Options{HighAccuracy: true, Timeout: 10 * time.Second, MaximumAge: 5 * time.Minute}
}

type Position struct {
	Point     types.Point `json:"point"`
	Accuracy  float64     `json:"accuracy"`
	Timestamp time.Time   `json:"timestamp"`
}

type Locator interface {
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
}

type result struct {
	pos Position
	err error
}

// Reported is a Locator fed by Report and ReportError.
type Reported struct {
	mu      sync.Mutex
	last    *Position
	waiters []chan result
	request *Options
	now     func() time.Time
}

func NewReported() *Reported {
	return &Reported{now: time.Now}
}

// Report records a fix from the client and wakes pending requests.
func (r *Reported) Report(p Position) error {
	if !geo.Valid(p.Point.Lat, p.Point.Lng) {
		return geo.ErrInvalidCoordinates
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = r.now()
	}

	r.mu.Lock()
	r.last = &p
	waiters := r.waiters
	r.waiters = nil
	r.request = nil
	r.mu.Unlock()

	for _, w := range waiters {
		w <- result{pos: p}
	}
	return nil
}

// ReportError fails every pending request, e.g. when the user denies
// location access.
func (r *Reported) ReportError(reason string) {
	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.request = nil
	r.mu.Unlock()

	err := fmt.Errorf("%w: %s", ErrUnavailable, reason)
	for _, w := range waiters {
		w <- result{err: err}
	}
}

// Requested returns the options of an outstanding request, which the client
// polls to know it should ask the device for a fix.
func (r *Reported) Requested() (Options, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.request == nil {
		return Options{}, false
	}
	return *r.request, true
}

func (r *Reported) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	r.mu.Lock()
	if r.last != nil && r.now().Sub(r.last.Timestamp) <= opts.MaximumAge {
		p := *r.last
		r.mu.Unlock()
		return p, nil
	}
	ch := make(chan result, 1)
	r.waiters = append(r.waiters, ch)
	o := opts
	r.request = &o
	r.mu.Unlock()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	select {
	case res := <-ch:
		return res.pos, res.err
	case <-ctx.Done():
		r.drop(ch)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Position{}, ErrTimeout
		}
		return Position{}, ctx.Err()
	}
}

func (r *Reported) drop(ch chan result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, w := range r.waiters {
		if w == ch {
			r.waiters = append(r.waiters[:i], r.waiters[i+1:]...)
			break
		}
	}
	if len(r.waiters) == 0 {
		r.request = nil
	}
}

// Locate asks l for the current position. Any failure is logged and
// reported as no location.
func Locate(ctx context.Context, l Locator, opts Options, log zerolog.Logger) *types.Point {
	pos, err := l.CurrentPosition(ctx, opts)
	if err != nil {
		log.Warn().Err(err).Msg("geolocation failed, continuing without user location")
		return nil
	}
	p := pos.Point
	return &p
}
