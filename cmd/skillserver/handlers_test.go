package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizme"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type brokenStore struct{}

func (brokenStore) Load(context.Context, string) (quizme.SessionState, error) {
	return quizme.NewSessionState(), errors.New("redis: connection refused")
}
func (brokenStore) Save(context.Context, string, quizme.SessionState) error { return nil }
func (brokenStore) Delete(context.Context, string) error { return nil }

func testRouter(store quizme.StateStore) *gin.Engine {
	cards := quizme.QuizSet{
		{Prompt: "Paris", ExpectedAnswer: "France"},
		{Prompt: "Tokyo", ExpectedAnswer: "Japan"},
	}
	engine := quizme.NewEngine(quizme.StaticSource{Cards: cards}, quizme.LexicalJudge{})
	service := quizme.NewService(engine, store, nil)
	cookies := sessions.NewCookieStore([]byte("test-cookie-secret-0123456789abcdef"))
	return newRouter(newServer(service, cookies))
}

func postJSON(t *testing.T, router http.Handler, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeReply(t *testing.T, w *httptest.ResponseRecorder) quizme.Reply {
	t.Helper()
	var reply quizme.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	return reply
}

func TestHealthz(t *testing.T) {
	router := testRouter(quizme.NewMemoryStore())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestTurn_PlaysQuiz(t *testing.T) {
	router := testRouter(quizme.NewMemoryStore())

	w := postJSON(t, router, "/v1/turn", turnRequest{SessionID: "s1", Action: "start"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Let's begin! Paris", decodeReply(t, w).Speech)

	w = postJSON(t, router, "/v1/turn", turnRequest{SessionID: "s1", Action: "answer", Answer: "france"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Correct! The next question is: Tokyo", decodeReply(t, w).Speech)

	w = postJSON(t, router, "/v1/turn", turnRequest{SessionID: "s1", Action: "score"})
	assert.Contains(t, decodeReply(t, w).Speech, "1 out of 1")

	w = postJSON(t, router, "/v1/turn", turnRequest{SessionID: "s2", Action: "answer", Answer: "france"})
	assert.Equal(t, "No quiz in progress. Say 'start' to begin.", decodeReply(t, w).Speech)

	w = postJSON(t, router, "/v1/turn", turnRequest{SessionID: "s1", Action: "stop"})
	assert.True(t, decodeReply(t, w).EndSession)
}

func TestTurn_UnknownActionIsUnrecognized(t *testing.T) {
	router := testRouter(quizme.NewMemoryStore())
	w := postJSON(t, router, "/v1/turn", turnRequest{SessionID: "s1", Action: "AMAZON.FallbackIntent"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decodeReply(t, w).Speech, "trouble understanding")
}

func TestTurn_BadRequests(t *testing.T) {
	router := testRouter(quizme.NewMemoryStore())

	w := postJSON(t, router, "/v1/turn", map[string]string{"session_id": "s1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, router, "/v1/turn", turnRequest{Action: "start"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/turn", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTurn_StoreFailure(t *testing.T) {
	router := testRouter(brokenStore{})
	w := postJSON(t, router, "/v1/turn", turnRequest{SessionID: "s1", Action: "start"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decodeReply(t, w).Speech, "Sorry")
}

func TestPlayTurn_CookieKeepsSession(t *testing.T) {
	store := quizme.NewMemoryStore()
	router := testRouter(store)

	w := postJSON(t, router, "/play/turn", turnRequest{Action: "start"})
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, playCookieName, cookies[0].Name)

	w = postJSON(t, router, "/play/turn", turnRequest{Action: "answer", Answer: "France"}, cookies...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Correct! The next question is: Tokyo", decodeReply(t, w).Speech)
	assert.Equal(t, 1, store.Len())

	w = postJSON(t, router, "/play/turn", turnRequest{Action: "answer", Answer: "France"})
	assert.Equal(t, "No quiz in progress. Say 'start' to begin.", decodeReply(t, w).Speech)
	assert.Equal(t, 2, store.Len())

	w = postJSON(t, router, "/play/turn", turnRequest{Action: "stop"}, cookies...)
	assert.True(t, decodeReply(t, w).EndSession)
	expired := w.Result().Cookies()
	require.NotEmpty(t, expired)
	assert.True(t, expired[0].MaxAge < 0)
}
