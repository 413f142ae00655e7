package httpapi

import (
	"net/http"
	"strconv"

	"github.com/fernsearch/fern/ferrors"
	"github.com/fernsearch/fern/libaf/json"
)

// statusFor maps an engine error to the HTTP status documented in the
// error taxonomy. An error with no recognizable Kind (a third-party or
// unexpected error) maps to 500.
func statusFor(err error) int {
	kind, ok := ferrors.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case ferrors.KindInvalidDocument, ferrors.KindInvalidQuery, ferrors.KindFieldNotFound,
		ferrors.KindDocumentTooLarge, ferrors.KindBufferSizeExceeded:
		return http.StatusBadRequest
	case ferrors.KindTooManyConcurrentWrites, ferrors.KindQueueFull:
		return http.StatusTooManyRequests
	case ferrors.KindMemoryPressure:
		return http.StatusServiceUnavailable
	case ferrors.KindTenantNotFound:
		return http.StatusNotFound
	case ferrors.KindReplication:
		// Fire-and-forget broadcast failures never reach an HTTP handler;
		// this is the /internal/replicate endpoint rejecting an
		// out-of-order seq, which is a client-observable bad request.
		return http.StatusBadRequest
	case ferrors.KindIO:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers err at the status its Kind maps to, attaching a
// Retry-After header to 503 responses only: a MemoryPressureError's own
// RetryAfterSeconds, or 5 for any other error mapped to 503.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		retryAfter := 5
		if mp, ok := err.(*ferrors.MemoryPressureError); ok {
			retryAfter = mp.RetryAfterSeconds
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	data, err := json.Marshal(body)
	if err != nil {
		return
	}
	_, _ = w.Write(data)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
