package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := NotFound("order %s not found", "abc")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrAlreadyPaid))
	assert.Equal(t, "order abc not found", err.Error())

	wrapped := fmt.Errorf("pay order: %w", InsufficientStock("item %s", "x"))
	assert.True(t, errors.Is(wrapped, ErrInsufficientStock))
	assert.Equal(t, CodeInsufficientStock, CodeOf(wrapped))
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{NotFound("x"), KindNotFound},
		{Validation("x"), KindValidation},
		{InvalidAmount("x"), KindValidation},
		{InsufficientStock("x"), KindConflict},
		{AlreadyPaid("x"), KindConflict},
		{CannotModify("x"), KindConflict},
		{CannotDelete("x"), KindConflict},
		{errors.New("boom"), KindInternal},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, KindOf(c.err), c.err.Error())
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := &Error{Code: CodeValidation, Message: "bad", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad: disk full", err.Error())
}
