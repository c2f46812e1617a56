// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Every request gets an X-Request-ID (reused from the request when present,
otherwise a new UUID) and one log line on completion with method, path,
status, bytes and duration_ms. 5xx responses log at error level.

# Rate Limiting

RateLimiter keeps a token bucket per client IP:

	limiter := middleware.NewRateLimiter(cfg.BallotRateLimit, cfg.BallotBurst)
	mux.HandleFunc("POST /ballots", middleware.WithLogging(limiter.Wrap(handler)))

Requests over budget get 429 with Retry-After. CleanupStale forgets clients
that have been idle; the server schedules it alongside the election closer.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

DecodeAndValidate parses a body and runs its validate tags, writing the 400
itself:

	var req models.CreateElectionRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}

# CORS and Client IP

CORS reflects the request origin and allows the X-Admin-Key and
X-Voter-Token headers. GetClientIP prefers X-Forwarded-For, then X-Real-IP,
then RemoteAddr.
*/
package middleware
