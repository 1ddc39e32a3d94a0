package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := NewAPIError("Measurement must be non-negative.", http.StatusBadRequest, map[string]any{
		"message": "Measurement must be non-negative.",
	})

	assert.Equal(t, "Measurement must be non-negative.", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.False(t, err.IsTransport())
	assert.Nil(t, err.Unwrap())
}

func TestNormalizeError(t *testing.T) {
	apiErr := NewAPIError("Unauthorized", http.StatusUnauthorized, nil)

	tests := []struct {
		name        string
		err         error
		wantNil     bool
		wantMessage string
		wantStatus  int
		wantTimeout bool
	}{
		{
			name:    "given nil, then returns nil",
			err:     nil,
			wantNil: true,
		},
		{
			name:        "given an APIError, then returns it unchanged",
			err:         apiErr,
			wantMessage: "Unauthorized",
			wantStatus:  http.StatusUnauthorized,
		},
		{
			name:        "given a wrapped APIError, then unwraps it",
			err:         fmt.Errorf("login: %w", apiErr),
			wantMessage: "Unauthorized",
			wantStatus:  http.StatusUnauthorized,
		},
		{
			name:        "given deadline exceeded, then returns status 0 timeout",
			err:         context.DeadlineExceeded,
			wantMessage: "request timed out",
			wantStatus:  StatusTransport,
			wantTimeout: true,
		},
		{
			name:        "given canceled, then returns status 0 cancel",
			err:         context.Canceled,
			wantMessage: "request canceled",
			wantStatus:  StatusTransport,
		},
		{
			name:        "given a plain error, then keeps its message with status 0",
			err:         errors.New("dial tcp: connection refused"),
			wantMessage: "dial tcp: connection refused",
			wantStatus:  StatusTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeError(tt.err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}

			require.NotNil(t, got)
			assert.Equal(t, tt.wantMessage, got.Message)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantTimeout, got.IsTimeout())
		})
	}
}

func TestNormalizeError_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset by peer")

	got := normalizeError(cause)

	assert.ErrorIs(t, got, cause)
	assert.True(t, got.IsTransport())
}

func TestAsAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		wantOK bool
	}{
		{
			name:   "given an APIError, then ok",
			err:    NewAPIError("boom", http.StatusInternalServerError, nil),
			wantOK: true,
		},
		{
			name:   "given a wrapped APIError, then ok",
			err:    fmt.Errorf("wrap: %w", NewAPIError("boom", http.StatusInternalServerError, nil)),
			wantOK: true,
		},
		{
			name:   "given another error, then not ok",
			err:    errors.New("boom"),
			wantOK: false,
		},
		{
			name:   "given nil, then not ok",
			err:    nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsAPIError(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantOK, got != nil)
		})
	}
}

func TestIsStatus(t *testing.T) {
	err := fmt.Errorf("get logs: %w", NewAPIError("Not Found", http.StatusNotFound, nil))

	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.False(t, IsStatus(err, http.StatusBadRequest))
	assert.False(t, IsStatus(errors.New("boom"), http.StatusNotFound))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "given nil, then false",
			err:  nil,
			want: false,
		},
		{
			name: "given transport error, then true",
			err:  newTransportError("connection refused", errors.New("refused")),
			want: true,
		},
		{
			name: "given 503, then true",
			err:  NewAPIError("unavailable", http.StatusServiceUnavailable, nil),
			want: true,
		},
		{
			name: "given 404, then false",
			err:  NewAPIError("missing", http.StatusNotFound, nil),
			want: false,
		},
		{
			name: "given a non-API error, then true",
			err:  errors.New("boom"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestStatusMessage(t *testing.T) {
	assert.Equal(t, "Request failed with status 418", statusMessage(http.StatusTeapot))
	assert.Equal(t, "Request failed with status 500", statusMessage(http.StatusInternalServerError))
}
