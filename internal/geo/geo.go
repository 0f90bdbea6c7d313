// Package geo provides device position sources for the controller.
package geo

import (
	"context"
	"sync"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/model"
)

// ErrPositionUnavailable is returned when the position cannot be determined.
var ErrPositionUnavailable = apperror.Unavailable("could not get your position")

// Fixed always reports the same position. The CLI uses it.
type Fixed struct {
	Coords model.Coords
}

func (f Fixed) CurrentPosition(context.Context) (model.Coords, error) {
	return f.Coords, nil
}

// Denied always fails, like a browser where the user refused geolocation.
type Denied struct{}

func (Denied) CurrentPosition(context.Context) (model.Coords, error) {
	return model.Coords{}, ErrPositionUnavailable
}

type result struct {
	coords model.Coords
	err    error
}

// Reported waits for the position to be reported from outside, e.g. by the
// browser page posting navigator.geolocation's answer.
//
// Every CurrentPosition call is a single request: it is answered by the next
// Report or Fail, or abandoned when its context ends.
type Reported struct {
	mu      sync.Mutex
	waiters []chan result
}

func NewReported() *Reported {
	return &Reported{}
}

func (r *Reported) CurrentPosition(ctx context.Context) (model.Coords, error) {
	ch := make(chan result, 1)
	r.mu.Lock()
	r.waiters = append(r.waiters, ch)
	r.mu.Unlock()

	select {
	case res := <-ch:
		return res.coords, res.err
	case <-ctx.Done():
		r.drop(ch)
		return model.Coords{}, ctx.Err()
	}
}

// Pending reports whether a request is waiting for an answer.
func (r *Reported) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters) > 0
}

// Report answers all pending requests with coords. It returns false when no
// request was waiting.
func (r *Reported) Report(coords model.Coords) bool {
	return r.answer(result{coords: coords})
}

// Fail answers all pending requests with ErrPositionUnavailable.
func (r *Reported) Fail() bool {
	return r.answer(result{err: ErrPositionUnavailable})
}

func (r *Reported) answer(res result) bool {
	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.mu.Unlock()

	for _, ch := range waiters {
		ch <- res
	}
	return len(waiters) > 0
}

func (r *Reported) drop(ch chan result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, w := range r.waiters {
		if w == ch {
			r.waiters = append(r.waiters[:i], r.waiters[i+1:]...)
			return
		}
	}
}
