package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/authclient/internal/apperrors"
	"github.com/nkiryanov/authclient/internal/models"
	"github.com/nkiryanov/authclient/internal/service/validate"
)

func TestRender_JSON(t *testing.T) {
	buf := &bytes.Buffer{}

	err := JSON(buf, map[string]any{"key1": 1, "key2": "222"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"key1":1,"key2":"222"}`, buf.String())
	assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1], "output must end with new line")
}

func TestRender_Error(t *testing.T) {
	decodeErr := json.Unmarshal([]byte(`invalid-json`), &struct{}{})
	require.Error(t, decodeErr)

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "service error",
			err:      errors.New("something terrible happened"),
			expected: `{"error": "service_error", "message": "something terrible happened"}`,
		},
		{
			name: "backend rejection",
			err:  fmt.Errorf("login failed: %w", apperrors.NewResponseError(http.StatusUnauthorized, nil)),
			expected: `{
				"error": "network_failure",
				"message": "login failed: network failure: status 401 Unauthorized",
				"status": 401
			}`,
		},
		{
			name:     "transport failure",
			err:      fmt.Errorf("%w: connection refused", apperrors.ErrNetworkFailure),
			expected: `{"error": "network_failure", "message": "network failure: connection refused"}`,
		},
		{
			name:     "session",
			err:      apperrors.ErrNoToken,
			expected: `{"error": "session_error", "message": "token not found"}`,
		},
		{
			name:     "decoding",
			err:      fmt.Errorf("%w: %w", apperrors.ErrNetworkFailure, decodeErr),
			expected: `{"error": "decoding_failed", "message": "network failure: invalid character 'i' looking for beginning of value"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}

			err := Error(buf, tt.err)

			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, buf.String())
		})
	}

	t.Run("validation", func(t *testing.T) {
		buf := &bytes.Buffer{}
		validationErr := validate.Struct(models.TokenPair{})

		err := Error(buf, fmt.Errorf("%w: %w", apperrors.ErrNetworkFailure, validationErr))

		require.NoError(t, err)
		response := ErrorResponse{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
		assert.Equal(t, ValidationErrorType, response.Error)
		assert.Equal(t, map[string]string{"access_token": "This field is required"}, response.Fields)
	})
}
