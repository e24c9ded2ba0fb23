package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// How long the in-progress lock survives a handler that never finishes.
const provisionalLockTTL = 60 * time.Second

type idempEntry struct {
	InProgress bool   `json:"in_progress"`
	Code       int    `json:"code"`
	Body       []byte `json:"body"`
	BodySHA256 string `json:"body_sha256"`
}

type respRecorder struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *respRecorder) WriteHeader(statusCode int) {
	r.code = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Idempotency replays the stored response for a repeated X-Request-Id from
// the same caller, and rejects concurrent duplicates. Requests without the
// header pass through untouched. Must run after Auth.
func Idempotency(rdb *redis.Client, ttl time.Duration, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
			if rdb == nil || reqID == "" {
				next.ServeHTTP(w, r)
				return
			}
			identity, ok := Identity(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			var body []byte
			if r.Body != nil {
				body, _ = io.ReadAll(r.Body)
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			bhash := hex.EncodeToString(sum[:])

			key := fmt.Sprintf("idemp:%s:%s:%d:%s", r.Method, r.URL.Path, identity.ID, reqID)
			entry, _ := json.Marshal(idempEntry{InProgress: true, BodySHA256: bhash})

			acquired, err := rdb.SetNX(r.Context(), key, entry, provisionalLockTTL).Result()
			if err != nil {
				log.Warnf("Idempotency store unavailable: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				raw, err := rdb.Get(r.Context(), key).Bytes()
				if err != nil {
					writeError(w, http.StatusConflict, "duplicate request in progress")
					return
				}
				var cur idempEntry
				if err := json.Unmarshal(raw, &cur); err != nil || cur.InProgress || cur.BodySHA256 != bhash {
					writeError(w, http.StatusConflict, "duplicate request in progress")
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotent-Replay", "true")
				w.WriteHeader(cur.Code)
				w.Write(cur.Body)
				return
			}

			rec := &respRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Only successful outcomes are worth replaying; release the
			// lock on failure so the client can retry.
			if rec.code >= 200 && rec.code < 300 {
				done, _ := json.Marshal(idempEntry{
					Code:       rec.code,
					Body:       rec.buf.Bytes(),
					BodySHA256: bhash,
				})
				if err := rdb.Set(r.Context(), key, done, ttl).Err(); err != nil {
					log.Warnf("Failed to store idempotency entry %s: %v", key, err)
				}
			} else {
				if err := rdb.Del(r.Context(), key).Err(); err != nil {
					log.Warnf("Failed to release idempotency lock %s: %v", key, err)
				}
			}
		})
	}
}
