package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Data string `json:"data"`
}

type testUser struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

// newTestAPI serves the small API the verb tests talk to.
func newTestAPI(t *testing.T) (*httptest.Server, *atomic.Int32, *atomic.Int32) {
	t.Helper()

	var flakyCalls, badRequestCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/test/flaky", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if flakyCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"Internal error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":"success"}`))
	})
	mux.HandleFunc("/v1/test/bad-request", func(w http.ResponseWriter, _ *http.Request) {
		badRequestCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Bad request","field":"measurement"}`))
	})
	mux.HandleFunc("/v1/test/no-content", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/v1/test/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/test/text", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`hello`))
	})
	mux.HandleFunc("/v1/test/html-error", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})
	mux.HandleFunc("/v1/test/message-not-string", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":42}`))
	})
	mux.HandleFunc("/v1/test/empty-message", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"fail","message":""}`))
	})
	mux.HandleFunc("/v1/test/broken-json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":`))
	})
	mux.HandleFunc("/v1/test/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"method":        r.Method,
			"query":         r.URL.RawQuery,
			"body":          string(body),
			"authorization": r.Header.Get("Authorization"),
			"contentType":   r.Header.Get("Content-Type"),
		})
	})
	mux.HandleFunc("/v1/test/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":"late"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, &flakyCalls, &badRequestCalls
}

type echoReply struct {
	Method        string `json:"method"`
	Query         string `json:"query"`
	Body          string `json:"body"`
	Authorization string `json:"authorization"`
	ContentType   string `json:"contentType"`
}

func TestGet_FlakyEndpoint(t *testing.T) {
	server, calls, _ := newTestAPI(t)
	client := New()

	got, err := Get[testPayload](context.Background(), client, server.URL, "/v1/test/flaky", nil,
		WithRetries(2),
		WithRetryDelay(10*time.Millisecond),
	)

	require.NoError(t, err)
	assert.Equal(t, testPayload{Data: "success"}, got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGet_BadRequestEndpoint(t *testing.T) {
	server, _, calls := newTestAPI(t)
	client := New()

	got, err := Get[testPayload](context.Background(), client, server.URL, "/v1/test/bad-request", nil,
		WithRetries(2),
	)

	require.Error(t, err)
	assert.Equal(t, testPayload{}, got)
	assert.Equal(t, int32(1), calls.Load())

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Bad request", apiErr.Message)
	assert.Equal(t, map[string]any{"message": "Bad request", "field": "measurement"}, apiErr.Data)
}

func TestGet_ResponseHandling(t *testing.T) {
	server, _, _ := newTestAPI(t)
	client := New()

	tests := []struct {
		name        string
		path        string
		want        testPayload
		wantErr     bool
		wantStatus  int
		wantMessage string
		wantData    any
	}{
		{
			name: "given 204, then zero value",
			path: "/v1/test/no-content",
			want: testPayload{},
		},
		{
			name: "given Content-Length 0, then zero value",
			path: "/v1/test/empty",
			want: testPayload{},
		},
		{
			name: "given a non-JSON content type, then zero value",
			path: "/v1/test/text",
			want: testPayload{},
		},
		{
			name:        "given a non-JSON error body, then fallback message and nil data",
			path:        "/v1/test/html-error",
			wantErr:     true,
			wantStatus:  http.StatusBadGateway,
			wantMessage: "Request failed with status 502",
			wantData:    nil,
		},
		{
			name:        "given a non-string message field, then fallback message and parsed data",
			path:        "/v1/test/message-not-string",
			wantErr:     true,
			wantStatus:  http.StatusConflict,
			wantMessage: "Request failed with status 409",
			wantData:    map[string]any{"message": float64(42)},
		},
		{
			name:        "given malformed JSON on 2xx, then decode error keeps status",
			path:        "/v1/test/broken-json",
			wantErr:     true,
			wantStatus:  http.StatusOK,
			wantMessage: "failed to decode response body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Get[testPayload](context.Background(), client, server.URL, tt.path, nil)

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}

			require.Error(t, err)
			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Contains(t, apiErr.Message, tt.wantMessage)
			assert.Equal(t, tt.wantData, apiErr.Data)
		})
	}
}

func TestGet_EmptyServerMessage(t *testing.T) {
	server, _, _ := newTestAPI(t)

	_, err := Get[map[string]any](context.Background(), New(), server.URL, "/v1/test/empty-message", nil)

	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Empty(t, apiErr.Message)
	assert.Equal(t, map[string]any{"status": "fail", "message": ""}, apiErr.Data)
}

func TestGet_QueryParams(t *testing.T) {
	server, _, _ := newTestAPI(t)
	client := New()

	tests := []struct {
		name      string
		params    map[string]string
		wantQuery string
	}{
		{
			name:      "given nil params, then no query",
			params:    nil,
			wantQuery: "",
		},
		{
			name:      "given empty params, then no query",
			params:    map[string]string{},
			wantQuery: "",
		},
		{
			name: "given params, then sorted encoded query",
			params: map[string]string{
				"realReading": "true",
				"location":    "Castraz",
				"date":        "2026-01-15",
			},
			wantQuery: "date=2026-01-15&location=Castraz&realReading=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Get[echoReply](context.Background(), client, server.URL, "/v1/test/echo", tt.params)

			require.NoError(t, err)
			assert.Equal(t, http.MethodGet, got.Method)
			assert.Equal(t, tt.wantQuery, got.Query)
			assert.Empty(t, got.Body)
		})
	}
}

func TestVerbs_MethodsAndBodies(t *testing.T) {
	server, _, _ := newTestAPI(t)
	client := New()
	ctx := context.Background()
	body := map[string]any{"measurement": 7.25, "realReading": true}

	tests := []struct {
		name       string
		call       func() (echoReply, error)
		wantMethod string
		wantBody   string
	}{
		{
			name: "given Post with a body, then sends JSON",
			call: func() (echoReply, error) {
				return Post[echoReply](ctx, client, server.URL, "/v1/test/echo", body)
			},
			wantMethod: http.MethodPost,
			wantBody:   `{"measurement":7.25,"realReading":true}`,
		},
		{
			name: "given Post without a body, then sends nothing",
			call: func() (echoReply, error) {
				return Post[echoReply](ctx, client, server.URL, "/v1/test/echo", nil)
			},
			wantMethod: http.MethodPost,
		},
		{
			name: "given Put, then uses PUT",
			call: func() (echoReply, error) {
				return Put[echoReply](ctx, client, server.URL, "/v1/test/echo", body)
			},
			wantMethod: http.MethodPut,
			wantBody:   `{"measurement":7.25,"realReading":true}`,
		},
		{
			name: "given Patch, then uses PATCH",
			call: func() (echoReply, error) {
				return Patch[echoReply](ctx, client, server.URL, "/v1/test/echo", body)
			},
			wantMethod: http.MethodPatch,
			wantBody:   `{"measurement":7.25,"realReading":true}`,
		},
		{
			name: "given Delete, then uses DELETE without body",
			call: func() (echoReply, error) {
				return Delete[echoReply](ctx, client, server.URL, "/v1/test/echo")
			},
			wantMethod: http.MethodDelete,
		},
		{
			name: "given Do with a full URL, then uses the given method",
			call: func() (echoReply, error) {
				return Do[echoReply](ctx, client, http.MethodPost, server.URL+"/v1/test/echo", body)
			},
			wantMethod: http.MethodPost,
			wantBody:   `{"measurement":7.25,"realReading":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.call()

			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, got.Method)
			if tt.wantBody == "" {
				assert.Empty(t, got.Body)
			} else {
				assert.JSONEq(t, tt.wantBody, got.Body)
			}
		})
	}
}

func TestVerbs_Headers(t *testing.T) {
	server, _, _ := newTestAPI(t)

	tests := []struct {
		name      string
		token     string
		opts      []RequestOption
		wantAuth  string
		wantCType string
	}{
		{
			name:      "given no token, then no authorization header",
			token:     "",
			wantAuth:  "",
			wantCType: "application/json",
		},
		{
			name:      "given a token, then bearer authorization header",
			token:     "session-token",
			wantAuth:  "Bearer session-token",
			wantCType: "application/json",
		},
		{
			name:      "given caller authorization, then caller header wins",
			token:     "session-token",
			opts:      []RequestOption{WithHeader("Authorization", "Bearer caller")},
			wantAuth:  "Bearer caller",
			wantCType: "application/json",
		},
		{
			name:  "given caller headers map, then overrides content type",
			token: "session-token",
			opts: []RequestOption{WithHeaders(map[string]string{
				"Content-Type": "application/vnd.rainlog+json",
			})},
			wantAuth:  "Bearer session-token",
			wantCType: "application/vnd.rainlog+json",
		},
		{
			name:      "given empty caller authorization, then header removed",
			token:     "session-token",
			opts:      []RequestOption{WithHeader("Authorization", "")},
			wantAuth:  "",
			wantCType: "application/json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(WithTokenStore(TokenStoreFunc(func() (string, bool) {
				return tt.token, tt.token != ""
			})))

			got, err := Get[echoReply](context.Background(), client, server.URL, "/v1/test/echo", nil, tt.opts...)

			require.NoError(t, err)
			assert.Equal(t, tt.wantAuth, got.Authorization)
			assert.Equal(t, tt.wantCType, got.ContentType)
		})
	}
}

func TestVerbs_TokenReadAtCallTime(t *testing.T) {
	server, _, _ := newTestAPI(t)

	var token atomic.Value
	token.Store("")
	client := New(WithTokenStore(TokenStoreFunc(func() (string, bool) {
		tok := token.Load().(string)
		return tok, tok != ""
	})))

	before, err := Get[echoReply](context.Background(), client, server.URL, "/v1/test/echo", nil)
	require.NoError(t, err)

	token.Store("fresh")
	after, err := Get[echoReply](context.Background(), client, server.URL, "/v1/test/echo", nil)
	require.NoError(t, err)

	assert.Empty(t, before.Authorization)
	assert.Equal(t, "Bearer fresh", after.Authorization)
}

func TestVerbs_Timeout(t *testing.T) {
	server, _, _ := newTestAPI(t)
	client := New()

	start := time.Now()
	got, err := Get[testPayload](context.Background(), client, server.URL, "/v1/test/slow", nil,
		WithTimeout(20*time.Millisecond),
	)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, testPayload{}, got)
	assert.Less(t, elapsed, 400*time.Millisecond)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, StatusTransport, apiErr.Status)
	assert.True(t, apiErr.IsTimeout())
	assert.Contains(t, apiErr.Message, "timed out")
}

func TestVerbs_TimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-r.Context().Done():
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":"second"}`))
	}))
	defer server.Close()

	client := New()

	got, err := Get[testPayload](context.Background(), client, server.URL, "/", nil,
		WithTimeout(50*time.Millisecond),
		WithRetries(1),
		WithRetryDelay(time.Millisecond),
	)

	require.NoError(t, err)
	assert.Equal(t, "second", got.Data)
	assert.Equal(t, int32(2), calls.Load())
}

func TestVerbs_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	client := New()

	_, err := Get[testPayload](context.Background(), client, addr, "/v1/test", nil,
		WithRetries(1),
		WithRetryDelay(time.Millisecond),
	)

	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, StatusTransport, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
}

func TestVerbs_DecodeSlicesAndMaps(t *testing.T) {
	mock := NewMockTransport().
		StubPath("/users", http.StatusOK, `[{"_id":"1","email":"a@b.c"},{"_id":"2","email":"d@e.f"}]`).
		StubPath("/counts", http.StatusOK, `{"Castraz":3,"Lisbon":1}`)
	client := New(WithMockTransport(mock))

	users, err := Get[[]testUser](context.Background(), client, "http://api.test", "/users", nil)
	require.NoError(t, err)
	assert.Equal(t, []testUser{{ID: "1", Email: "a@b.c"}, {ID: "2", Email: "d@e.f"}}, users)

	counts, err := Get[map[string]int](context.Background(), client, "http://api.test", "/counts", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Castraz": 3, "Lisbon": 1}, counts)
}

func TestVerbs_WithPolicy(t *testing.T) {
	mock := NewMockTransport().StubResponse(http.StatusServiceUnavailable, `{"message":"down"}`)
	client := New(WithMockTransport(mock))

	policy := NoRetryPolicy()
	policy.Retries = 2
	policy.RetryDelay = 0

	_, err := Get[testPayload](context.Background(), client, "http://api.test", "/v1/test", nil,
		WithPolicy(policy),
		WithOperation("PolicyCheck"),
	)

	require.Error(t, err)
	assert.Equal(t, "down", err.Error())
	assert.Equal(t, 3, mock.RequestCount())
}

func TestDecodeJSON(t *testing.T) {
	jsonHeader := http.Header{"Content-Type": []string{"application/json; charset=utf-8"}}

	tests := []struct {
		name    string
		resp    *Response
		want    testPayload
		wantErr bool
	}{
		{
			name: "given nil response, then zero value",
			resp: nil,
		},
		{
			name: "given JSON body with charset, then decodes",
			resp: &Response{StatusCode: http.StatusOK, Header: jsonHeader, body: []byte(`{"data":"x"}`)},
			want: testPayload{Data: "x"},
		},
		{
			name: "given 204 with a body, then zero value",
			resp: &Response{StatusCode: http.StatusNoContent, Header: jsonHeader, body: []byte(`{"data":"x"}`)},
		},
		{
			name: "given 200 with a JSON type but no body, then zero value",
			resp: &Response{StatusCode: http.StatusOK, Header: jsonHeader},
		},
		{
			name:    "given invalid JSON, then error",
			resp:    &Response{StatusCode: http.StatusOK, Header: jsonHeader, body: []byte(`nope`)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJSON[testPayload](tt.resp)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsStatus(err, http.StatusOK))
				assert.Equal(t, testPayload{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
