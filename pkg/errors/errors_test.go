package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", Clone(ErrInvalidTransition, "portfolio is not a draft"))

	appErr := FromError(wrapped)
	assert.Equal(t, ErrInvalidTransition.Code, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "portfolio is not a draft", appErr.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestIsMatchesClonesByCode(t *testing.T) {
	err := Clone(ErrPreconditionFailed, "portfolio has no documents")
	assert.True(t, errors.Is(err, ErrPreconditionFailed))
	assert.False(t, errors.Is(err, ErrInvalidTransition))
}

func TestStorageWrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Storage(cause, "failed to store file")
	assert.Equal(t, "STORAGE_ERROR", err.Code)
	assert.Equal(t, "failed to store file: disk full", err.Error())
}
