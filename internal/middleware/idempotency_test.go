package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msbfinance/loan-office/internal/models"
)

func newIdempTest(t *testing.T) (*miniredis.Miniredis, *redis.Client, *logrus.Logger) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	return mr, rdb, log
}

func applyRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/user/apply-loan", strings.NewReader(body))
	req.Header.Set("X-Request-Id", "req-abc-1")
	return req.WithContext(WithIdentity(req.Context(), models.Identity{ID: 7, Role: models.RoleUser}))
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	_, rdb, log := newIdempTest(t)

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"loan":{"id":42}}`))
	})
	mw := Idempotency(rdb, time.Hour, log)(next)

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, applyRequest(`{"amount":1500}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Idempotent-Replay"))

	// The retry carries the same id and body, so it must see the stored
	// response without the handler running again.
	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, applyRequest(`{"amount":1500}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"loan":{"id":42}}`, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get("X-Idempotent-Replay"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)
}

func TestIdempotency_BodyMismatchConflicts(t *testing.T) {
	_, rdb, log := newIdempTest(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"loan":{"id":42}}`))
	})
	mw := Idempotency(rdb, time.Hour, log)(next)

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, applyRequest(`{"amount":1500}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same id, different payload: not a retry, so it must not replay.
	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, applyRequest(`{"amount":4000}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "duplicate request in progress", body["message"])
}

func TestIdempotency_InFlightDuplicateConflicts(t *testing.T) {
	_, rdb, log := newIdempTest(t)

	release := make(chan struct{})
	started := make(chan struct{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusCreated)
	})
	mw := Idempotency(rdb, time.Hour, log)(next)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		mw.ServeHTTP(httptest.NewRecorder(), applyRequest(`{"amount":1500}`))
	}()
	<-started

	// The first request holds the lock, so an identical concurrent one
	// cannot run the handler a second time.
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, applyRequest(`{"amount":1500}`))
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	<-firstDone
}

func TestIdempotency_FailureReleasesLock(t *testing.T) {
	_, rdb, log := newIdempTest(t)

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			writeError(w, http.StatusInternalServerError, "failed to create loan")
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"loan":{"id":42}}`))
	})
	mw := Idempotency(rdb, time.Hour, log)(next)

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, applyRequest(`{"amount":1500}`))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// The failed attempt must not pin the key, otherwise the client can
	// never retry with the same id.
	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, applyRequest(`{"amount":1500}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Idempotent-Replay"))
	assert.Equal(t, 2, calls)
}

func TestIdempotency_PassesThroughWithoutHeaderOrIdentity(t *testing.T) {
	_, rdb, log := newIdempTest(t)

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})
	mw := Idempotency(rdb, time.Hour, log)(next)

	// No X-Request-Id: every request runs.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/user/apply-loan", strings.NewReader(`{}`))
		req = req.WithContext(WithIdentity(req.Context(), models.Identity{ID: 7, Role: models.RoleUser}))
		mw.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)

	// No identity on the context: the middleware stays out of the way.
	req := httptest.NewRequest(http.MethodPost, "/user/apply-loan", strings.NewReader(`{}`))
	req.Header.Set("X-Request-Id", "req-abc-1")
	mw.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 3, calls)
}
