package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/velvetlane/storefront-backend/api/responses"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	"github.com/velvetlane/storefront-backend/pkg/logger"
	pkgredis "github.com/velvetlane/storefront-backend/pkg/redis"
)

const (
	cartReplayTTL  = 24 * time.Hour
	moneyReplayTTL = 7 * 24 * time.Hour
)

// replayWindows maps "METHOD <chi route pattern>" to how long a recorded
// response stays servable. Endpoints that move money keep their window a
// full week; cart mutations only need to survive a retry burst.
var replayWindows = map[string]time.Duration{
	"POST /api/v1/cart/items":              cartReplayTTL,
	"PUT /api/v1/cart/items/{lineKey}":     cartReplayTTL,
	"POST /api/v1/checkout":                moneyReplayTTL,
	"POST /api/v1/orders/{orderId}/cancel": moneyReplayTTL,
}

// storedResponse is the replayable snapshot persisted per idempotency key.
// RequestHash pins the key to one request body; reusing the key with a
// different body is rejected rather than silently served.
type storedResponse struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the recorded response for repeated deliveries of the
// same Idempotency-Key on mutating endpoints. Keys are scoped per buyer,
// method, and path, so two buyers reusing "retry-1" never collide.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := replayWindowFor(r)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := fingerprint(body)
			scope := strings.Join([]string{BuyerIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
			key := store.IdempotencyKey(scope, clientKey)

			stored, getErr := store.Get(r.Context(), key)
			if getErr != nil && !errors.Is(getErr, redis.Nil) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "check idempotency"))
				return
			}
			if stored != "" {
				replayRecorded(w, r, logg, stored, requestHash)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			// a transient server fault must not be replayed for the whole
			// window; the client's retry should reach the handler again
			if capture.statusOr(http.StatusOK) >= http.StatusInternalServerError {
				return
			}

			record := storedResponse{
				Status:      capture.statusOr(http.StatusOK),
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				ContentType: capture.Header().Get("Content-Type"),
				RequestHash: requestHash,
			}
			payload, marshalErr := json.Marshal(record)
			if marshalErr != nil {
				if logg != nil {
					logg.Error(r.Context(), "marshal idempotency record", marshalErr)
				}
				return
			}
			if _, setErr := store.SetNX(r.Context(), key, string(payload), ttl); setErr != nil && logg != nil {
				logg.Error(r.Context(), "persist idempotency record", setErr)
			}
		})
	}
}

// replayWindowFor resolves the TTL for the matched chi route, falling back
// to the raw path when the router context is absent (tests hit this).
func replayWindowFor(r *http.Request) (time.Duration, bool) {
	if r == nil {
		return 0, false
	}
	pattern := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		pattern = rctx.RoutePattern()
	}
	ttl, ok := replayWindows[r.Method+" "+pattern]
	return ttl, ok
}

func replayRecorded(w http.ResponseWriter, r *http.Request, logg *logger.Logger, stored, requestHash string) {
	var record storedResponse
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// responseCapture tees the handler's output so it can be stored verbatim.
type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (rc *responseCapture) WriteHeader(code int) {
	rc.status = code
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

func (rc *responseCapture) statusOr(fallback int) int {
	if rc.status == 0 {
		return fallback
	}
	return rc.status
}
