package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState(t *testing.T) {
	s := New()
	assert.Equal(t, Snapshot{Values: Values{Category: "happy"}}, s.Snapshot())

	s.Show()
	s.Focus(FieldDescription)
	s.Fill(Values{Category: "sad", Description: "Rainy commute"})
	assert.Equal(t, Snapshot{
		Visible: true,
		Focused: FieldDescription,
		Values:  Values{Category: "sad", Description: "Rainy commute"},
	}, s.Snapshot())

	s.Hide()
	assert.False(t, s.Visible())
	assert.Equal(t, Values{Category: "sad"}, s.Values(), "hide clears only the description")

	s.Reset()
	assert.Equal(t, Values{Category: "happy"}, s.Values())
}
