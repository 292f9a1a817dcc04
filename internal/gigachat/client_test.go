package gigachat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testReply = "Подробный план питания на день: завтрак, обед и ужин."

// fakeAPI — поддельные /oauth и /chat/completions со счётчиками вызовов
type fakeAPI struct {
	oauthCalls int64
	chatCalls  int64

	expiresIn   int64
	oauthStatus int
	chatHandler func(w http.ResponseWriter, calls int64)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{expiresIn: 1800, oauthStatus: http.StatusOK}
}

func (f *fakeAPI) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth", func(w http.ResponseWriter, r *http.Request) {
		calls := atomic.AddInt64(&f.oauthCalls, 1)
		if f.oauthStatus != http.StatusOK {
			w.WriteHeader(f.oauthStatus)
			return
		}
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":%d}`, calls, f.expiresIn)
	})
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		calls := atomic.AddInt64(&f.chatCalls, 1)
		if f.chatHandler != nil {
			f.chatHandler(w, calls)
			return
		}
		writeChatReply(w, testReply)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeChatReply(w http.ResponseWriter, content string) {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		OAuthURL:     srv.URL + "/oauth",
		APIURL:       srv.URL + "/chat",
		RetryWait:    time.Millisecond,
		Logger:       zerolog.Nop(),
	})
}

func TestAskEmptyPrompt(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api.start(t))

	_, err := c.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Zero(t, atomic.LoadInt64(&api.oauthCalls))
}

func TestTokenReuse(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api.start(t))

	for i := 0; i < 2; i++ {
		reply, err := c.Ask(context.Background(), "вопрос")
		require.NoError(t, err)
		assert.Equal(t, testReply, reply)
	}

	// Токен действителен — второй вызов его переиспользует
	assert.EqualValues(t, 1, atomic.LoadInt64(&api.oauthCalls))
	assert.EqualValues(t, 2, atomic.LoadInt64(&api.chatCalls))
}

func TestTokenReacquiredAfterExpiry(t *testing.T) {
	api := newFakeAPI()
	// Срок жизни меньше запаса безопасности: токен истекает сразу
	api.expiresIn = 30
	c := newTestClient(t, api.start(t))

	_, err := c.Ask(context.Background(), "вопрос")
	require.NoError(t, err)
	_, err = c.Ask(context.Background(), "вопрос")
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt64(&api.oauthCalls))
}

func TestAcquisitionFailureReportedNotPanicked(t *testing.T) {
	api := newFakeAPI()
	api.oauthStatus = http.StatusInternalServerError
	c := newTestClient(t, api.start(t))

	_, err := c.Ask(context.Background(), "вопрос")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	// Исходная попытка + один повтор, оба упёрлись в /oauth
	assert.EqualValues(t, 2, atomic.LoadInt64(&api.oauthCalls))
	assert.Zero(t, atomic.LoadInt64(&api.chatCalls))
}

func TestUnauthorizedInvalidatesTokenAndRetries(t *testing.T) {
	api := newFakeAPI()
	api.chatHandler = func(w http.ResponseWriter, calls int64) {
		if calls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeChatReply(w, testReply)
	}
	c := newTestClient(t, api.start(t))

	reply, err := c.Ask(context.Background(), "вопрос")
	require.NoError(t, err)
	assert.Equal(t, testReply, reply)

	// 401 сбросил кэш — повтор получил свежий токен
	assert.EqualValues(t, 2, atomic.LoadInt64(&api.oauthCalls))
	assert.EqualValues(t, 2, atomic.LoadInt64(&api.chatCalls))
}

func TestServerErrorRetriedOnce(t *testing.T) {
	api := newFakeAPI()
	api.chatHandler = func(w http.ResponseWriter, calls int64) {
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeChatReply(w, testReply)
	}
	c := newTestClient(t, api.start(t))

	reply, err := c.Ask(context.Background(), "вопрос")
	require.NoError(t, err)
	assert.Equal(t, testReply, reply)
	assert.EqualValues(t, 2, atomic.LoadInt64(&api.chatCalls))
}

func TestBadRequestNotRetried(t *testing.T) {
	api := newFakeAPI()
	api.chatHandler = func(w http.ResponseWriter, calls int64) {
		w.WriteHeader(http.StatusBadRequest)
	}
	c := newTestClient(t, api.start(t))

	_, err := c.Ask(context.Background(), "вопрос")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 1, atomic.LoadInt64(&api.chatCalls))
}

func TestSemanticFailures(t *testing.T) {
	api := newFakeAPI()
	api.chatHandler = func(w http.ResponseWriter, calls int64) {
		writeChatReply(w, "ок")
	}
	c := newTestClient(t, api.start(t))

	_, err := c.Ask(context.Background(), "вопрос")
	assert.ErrorIs(t, err, ErrReplyTooShort)
	// Смысловой сбой повтором не лечится
	assert.EqualValues(t, 1, atomic.LoadInt64(&api.chatCalls))
}

func TestEmptyChoices(t *testing.T) {
	api := newFakeAPI()
	api.chatHandler = func(w http.ResponseWriter, calls int64) {
		fmt.Fprint(w, `{"choices":[]}`)
	}
	c := newTestClient(t, api.start(t))

	_, err := c.Ask(context.Background(), "вопрос")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestErrorInSuccessBody(t *testing.T) {
	api := newFakeAPI()
	api.chatHandler = func(w http.ResponseWriter, calls int64) {
		fmt.Fprint(w, `{"error":{"message":"quota exceeded","type":"limit"}}`)
	}
	c := newTestClient(t, api.start(t))

	_, err := c.Ask(context.Background(), "вопрос")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
