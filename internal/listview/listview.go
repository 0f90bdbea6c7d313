// Package listview holds the rendered entry list shown next to the map.
// Items are kept newest first, the order the page displays them in.
package listview

import (
	"sync"

	"github.com/sakif/moodmap/internal/model"
)

// Item is one rendered list row.
type Item struct {
	ID          string `json:"id"`
	Category    string `json:"type"`
	Class       string `json:"class"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// ItemFor renders e as a list row.
func ItemFor(e model.Entry) Item {
	return Item{
		ID:          e.ID,
		Category:    string(e.Category),
		Class:       e.Category.ListClass(),
		Description: e.Description,
		Icon:        e.Category.Icon(),
	}
}

// List is safe for concurrent use.
type List struct {
	mu    sync.Mutex
	items []Item
}

func New() *List {
	return &List{}
}

// Prepend inserts it at the top of the list.
func (l *List) Prepend(it Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]Item{it}, l.items...)
}

// Items returns a copy of the rows, newest first.
func (l *List) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}
