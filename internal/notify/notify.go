// Package notify delivers user-facing alerts.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Notice is one alert.
type Notice struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Queue collects alerts until the page drains them.
type Queue struct {
	mu      sync.Mutex
	notices []Notice
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Alert(msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.notices = append(q.notices, Notice{Message: msg, At: time.Now()})
}

// Drain returns the queued notices and empties the queue.
func (q *Queue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.notices
	q.notices = nil
	return out
}

// Writer prints alerts as lines, for terminal use.
type Writer struct {
	W io.Writer
}

func (w Writer) Alert(msg string) {
	_, _ = fmt.Fprintln(w.W, msg)
}
