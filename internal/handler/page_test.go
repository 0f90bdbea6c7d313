package handler_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/moodmap/internal/handler"
	"github.com/sakif/moodmap/internal/listview"
	"github.com/sakif/moodmap/internal/model"
)

func TestPageHandler_HandleJournal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	list := listview.New()
	list.Prepend(listview.ItemFor(model.Entry{ID: "a1", Category: model.Sad, Description: `<b>Rainy</b> commute`}))

	h, err := handler.NewPageHandler("../../web/templates", list, logger)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	h.HandleJournal(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `data-id="a1"`)
	assert.Contains(t, body, "entry--sad")
	assert.Contains(t, body, "😢")
	assert.Contains(t, body, "&lt;b&gt;Rainy&lt;/b&gt; commute")
	for _, c := range model.Categories {
		assert.Contains(t, body, `<option value="`+string(c)+`">`)
	}
}

func TestNewPageHandler_MissingTemplates(t *testing.T) {
	_, err := handler.NewPageHandler(t.TempDir(), listview.New(), slog.Default())
	assert.Error(t, err)
}
