// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ranked-pick/models"
)

func TestWithLogging_PreservesResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"OK", http.StatusOK, "ok"},
		{"Created", http.StatusCreated, `{"id":"123"}`},
		{"BadRequest", http.StatusBadRequest, `{"error":"bad request"}`},
		{"InternalError", http.StatusInternalServerError, "error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				w.Write([]byte(tc.body))
			})

			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest("POST", "/api/test", nil))

			assert.Equal(t, tc.statusCode, w.Code)
			assert.Equal(t, tc.body, w.Body.String())
		})
	}
}

func TestWithLogging_RequestID(t *testing.T) {
	handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/", nil))
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})
}

func TestStatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w}
	rec.Write([]byte("hello"))
	rec.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusOK, rec.status, "implicit 200 on first write wins")
	assert.Equal(t, 5, rec.bytes)
}

func TestJSONResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		data       interface{}
		expected   string
	}{
		{"simple struct", http.StatusOK, map[string]string{"message": "hello"}, `{"message":"hello"}`},
		{
			"created response", http.StatusCreated,
			models.CreateElectionResponse{ElectionID: "abc123", AdminKey: "key456"},
			`{"election_id":"abc123","admin_key":"key456"}`,
		},
		{"array data", http.StatusOK, []string{"a", "b", "c"}, `["a","b","c"]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JSONResponse(w, tc.statusCode, tc.data)

			assert.Equal(t, tc.statusCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tc.expected, strings.TrimSpace(w.Body.String()))
		})
	}
}

func TestErrorResponse(t *testing.T) {
	testCases := []struct {
		statusCode    int
		message       string
		expectedError string
	}{
		{http.StatusBadRequest, "title is required", "Bad Request"},
		{http.StatusUnauthorized, "invalid admin key", "Unauthorized"},
		{http.StatusNotFound, "election not found", "Not Found"},
		{http.StatusConflict, "election already closed", "Conflict"},
		{http.StatusTooManyRequests, "slow down", "Too Many Requests"},
	}

	for _, tc := range testCases {
		t.Run(tc.expectedError, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorResponse(w, tc.statusCode, tc.message)

			assert.Equal(t, tc.statusCode, w.Code)
			var resp models.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tc.expectedError, resp.Error)
			assert.Equal(t, tc.message, resp.Message)
		})
	}
}

func TestParseJSONBody(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"title":"Mascot","creator_name":"Alice","unknown":"x"}`))
		var parsed models.CreateElectionRequest
		require.NoError(t, ParseJSONBody(req, &parsed))
		assert.Equal(t, "Mascot", parsed.Title)
		assert.Equal(t, "Alice", parsed.CreatorName)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{invalid json}`))
		var parsed models.CreateElectionRequest
		assert.Error(t, ParseJSONBody(req, &parsed))
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(""))
		var parsed models.CreateElectionRequest
		assert.Error(t, ParseJSONBody(req, &parsed))
	})
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(models.CreateElectionRequest{Title: "Mascot", CreatorName: "Alice"}))

	err := ValidateStruct(models.CreateElectionRequest{CreatorName: "Alice", BallotLength: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Title is required")
	assert.Contains(t, err.Error(), "BallotLength must satisfy min=0")

	err = ValidateStruct(models.SubmitBallotRequest{Choices: []string{"A", ""}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Choices[1] is required")
}

func TestDecodeAndValidate(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"alice"}`))
		w := httptest.NewRecorder()
		var body models.ClaimUsernameRequest
		assert.True(t, DecodeAndValidate(w, req, &body))
		assert.Equal(t, "alice", body.Username)
	})

	t.Run("invalid", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"a"}`))
		w := httptest.NewRecorder()
		var body models.ClaimUsernameRequest
		assert.False(t, DecodeAndValidate(w, req, &body))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Username must satisfy min=2")
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{`))
		w := httptest.NewRecorder()
		var body models.ClaimUsernameRequest
		assert.False(t, DecodeAndValidate(w, req, &body))
		assert.Contains(t, w.Body.String(), "Invalid JSON")
	})
}

func TestCORS(t *testing.T) {
	corsHandler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("handled"))
	}))

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/elections", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		corsHandler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
		allowed := w.Header().Get("Access-Control-Allow-Headers")
		assert.Contains(t, allowed, "X-Admin-Key")
		assert.Contains(t, allowed, "X-Voter-Token")
		assert.Contains(t, allowed, "Content-Type")
	})

	t.Run("regular request", func(t *testing.T) {
		w := httptest.NewRecorder()
		corsHandler.ServeHTTP(w, httptest.NewRequest("GET", "/api/elections", nil))
		assert.Equal(t, "handled", w.Body.String())
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		expected   string
	}{
		{"forwarded chain", "203.0.113.1, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.1"},
		{"forwarded single", "203.0.113.9", "", "10.0.0.2:1234", "203.0.113.9"},
		{"real ip", "", "198.51.100.7", "10.0.0.2:1234", "198.51.100.7"},
		{"remote addr", "", "", "192.0.2.4:5678", "192.0.2.4"},
		{"ipv6 remote", "", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"no port", "", "", "192.0.2.4", "192.0.2.4"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				req.Header.Set("X-Real-IP", tc.xri)
			}
			assert.Equal(t, tc.expected, GetClientIP(req))
		})
	}
}
