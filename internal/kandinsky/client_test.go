package kandinsky

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		APIKey: "key",
		APIURL: srv.URL,
		Logger: zerolog.Nop(),
	})
}

func TestGenerateMealImage(t *testing.T) {
	var gotPrompt string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.Prompt
		assert.Equal(t, 512, req.Width)
		assert.Equal(t, 512, req.Height)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"url":"https://cdn.example/meal.png"}`)
	})

	url, err := c.GenerateMealImage(context.Background(), "овсянка с ягодами")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/meal.png", url)
	assert.Equal(t, "овсянка с ягодами", gotPrompt)
}

func TestGenerateMealImageRetriesOn5xx(t *testing.T) {
	var calls int64
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"url":"https://cdn.example/meal.png"}`)
	})

	url, err := c.GenerateMealImage(context.Background(), "блюдо")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/meal.png", url)
	assert.EqualValues(t, 2, atomic.LoadInt64(&calls))
}

func TestGenerateMealImageFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.GenerateMealImage(context.Background(), "блюдо")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestGenerateMealImageEmptyURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	_, err := c.GenerateMealImage(context.Background(), "блюдо")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}
