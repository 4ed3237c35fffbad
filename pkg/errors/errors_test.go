package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		typ    ErrorType
	}{
		{"validation", NewValidationError("bad"), http.StatusBadRequest, ErrorTypeValidation},
		{"not found", NewNotFoundError("import"), http.StatusNotFound, ErrorTypeNotFound},
		{"conflict", NewConflictError("done"), http.StatusConflict, ErrorTypeConflict},
		{"timeout", NewTimeoutError("extract"), http.StatusGatewayTimeout, ErrorTypeTimeout},
		{"unavailable", NewServiceUnavailableError("queue"), http.StatusServiceUnavailable, ErrorTypeUnavailable},
		{"database", NewDatabaseError("get", errors.New("boom")), http.StatusInternalServerError, ErrorTypeDatabase},
		{"external", NewExternalError("llm", errors.New("boom")), http.StatusBadGateway, ErrorTypeExternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.True(t, IsType(tt.err, tt.typ))
		})
	}
	assert.Equal(t, "import not found", NewNotFoundError("import").Message)
}

func TestGetAppErrorThroughWrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("saving: %w", NewDatabaseError("save", cause))

	appErr := GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeDatabase, appErr.Type)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, GetAppError(errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestWrapKeepsType(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	wrapped := Wrap(NewNotFoundError("concept"), "loading quiz")
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "loading quiz: concept not found", GetAppError(wrapped).Message)

	plain := Wrapf(errors.New("boom"), "step %d", 2)
	appErr := GetAppError(plain)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeInternal, appErr.Type)
	assert.Equal(t, "step 2", appErr.Message)
}
