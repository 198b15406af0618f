package testutil

import (
	"net/http"
	"time"

	id "pharmledger/pkg/domain"
	"pharmledger/pkg/requestcontext"
)

// WithAccount places a caller account in the request context, simulating what
// the auth middleware does for authenticated requests. An invalid address is
// silently ignored.
func WithAccount(req *http.Request, account string) *http.Request {
	parsed, err := id.ParseAccount(account)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithAccount(req.Context(), parsed))
}

// WithRequestID places a request ID in the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithRequestTime pins the request timestamp, simulating the RequestTime
// middleware so write timestamps are deterministic in tests.
func WithRequestTime(req *http.Request, ts time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), ts))
}
