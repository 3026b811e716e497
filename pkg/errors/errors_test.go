package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrorIs(t *testing.T) {
	err := NewParseError(3, "bad activity-date", errors.New("unexpected EOF"))
	assert.True(t, errors.Is(err, ErrParse))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "activity 3")

	docErr := NewParseError(-1, "not an iati-activities document", nil)
	assert.Contains(t, docErr.Error(), "document")
}

func TestValidationErrorIs(t *testing.T) {
	err := NewValidationError("transaction_type", "99", "not in codelist")
	assert.True(t, errors.Is(err, ErrValidation))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "transaction_type", vErr.Field)
}

func TestConflictErrorUnwrap(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed")
	err := NewConflictError("GB-GOV-1-12345", cause)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "GB-GOV-1-12345")
}

func TestStoreErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapStore("insert", "activities", cause)
	assert.True(t, errors.Is(err, ErrStore))

	wrapped := fmt.Errorf("executing import: %w", err)
	assert.True(t, errors.Is(wrapped, ErrStore))

	var sErr *StoreError
	require.True(t, errors.As(wrapped, &sErr))
	assert.Equal(t, "activities", sErr.Table)
}

func TestWrapHelpersNilPassthrough(t *testing.T) {
	assert.NoError(t, WrapParse(0, "x", nil))
	assert.NoError(t, WrapValidation("f", nil))
	assert.NoError(t, WrapStore("op", "t", nil))
}
