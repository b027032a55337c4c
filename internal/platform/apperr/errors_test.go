package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("Catalog.Create: %w", Validation("price is required"))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrTransport))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback string
		want     string
	}{
		{"nil uses fallback", nil, "Failed", "Failed"},
		{"app error message", Transport("upload failed", nil), "Failed", "upload failed"},
		{"app error without message", &Error{Kind: KindTransport}, "Failed", "Failed"},
		{"wrapped app error", fmt.Errorf("x: %w", Unauthorized("token expired", nil)), "Failed", "token expired"},
		{"plain error", errors.New("boom"), "Failed", "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err, tt.fallback))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transport("", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection reset", err.Error())
}
