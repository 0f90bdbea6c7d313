// Package model defines the data structures used throughout the application.
// There is a single Entry type; the mood is a Category value and everything
// that varies per mood (icon, title, popup styling) comes from a lookup table.
package model

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Category is one of the four fixed mood tags.
type Category string

const (
	Happy      Category = "happy"
	Sad        Category = "sad"
	Anxiety    Category = "anxiety"
	Depression Category = "depression"
)

// DefaultIcon is shown for any category missing from the table.
const DefaultIcon = "😔"

// Categories lists the known categories in form order.
var Categories = []Category{Happy, Sad, Anxiety, Depression}

var categoryIcons = map[Category]string{
	Happy:      "😊",
	Sad:        "😢",
	Anxiety:    "😰",
	Depression: "😔",
}

// ParseCategory matches s against the known categories, ignoring case and
// surrounding whitespace. It is meant for user-typed filters; entry creation
// accepts only the exact tags.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	_, ok := categoryIcons[c]
	return c, ok
}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	_, ok := categoryIcons[c]
	return ok
}

// Icon returns the emoji rendered next to list items.
func (c Category) Icon() string {
	if icon, ok := categoryIcons[c]; ok {
		return icon
	}
	return DefaultIcon
}

// Title is the category name with its first letter upper-cased ("Anxiety").
func (c Category) Title() string {
	r, size := utf8.DecodeRuneInString(string(c))
	if size == 0 {
		return ""
	}
	return string(unicode.ToUpper(r)) + string(c)[size:]
}

// PopupClass is the CSS class attached to the marker popup.
func (c Category) PopupClass() string {
	return string(c) + "-popup"
}

// ListClass is the CSS modifier class of the rendered list item.
func (c Category) ListClass() string {
	return "entry--" + string(c)
}

func (c Category) String() string {
	return string(c)
}
