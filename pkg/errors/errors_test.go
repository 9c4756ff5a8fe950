package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesStack(t *testing.T) {
	err := New(ErrorTypeOverflow, "offset overflow")
	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestNewCapturesStack")
	assert.Equal(t, "overflow: offset overflow", err.Error())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "x"))
	assert.Nil(t, Wrapf(nil, ErrorTypeInternal, "x %d", 1))

	inner := New(ErrorTypeOutOfMemory, "allocation of 64 bytes failed")
	outer := Wrap(inner, ErrorTypeInternal, "reserve")
	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, IsType(outer, ErrorTypeInternal))

	var e *Error
	require.True(t, As(outer.Cause, &e))
	assert.True(t, IsOutOfMemory(e))
	assert.Equal(t, "internal: reserve: out_of_memory: allocation of 64 bytes failed", outer.Error())
}

func TestTypePredicates(t *testing.T) {
	tests := []struct {
		errType ErrorType
		check   func(error) bool
	}{
		{ErrorTypeInvalidArgument, IsInvalidArgument},
		{ErrorTypeNotRepresentable, IsNotRepresentable},
		{ErrorTypeOverflow, IsOverflow},
		{ErrorTypeOutOfMemory, IsOutOfMemory},
		{ErrorTypeValidation, IsValidation},
		{ErrorTypeNotFound, IsNotFound},
		{ErrorTypeIO, IsIO},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.True(t, tt.check(New(tt.errType, "boom")))
			assert.False(t, tt.check(New(ErrorTypeEndOfStream, "boom")))
			assert.False(t, tt.check(stderrors.New("plain")))
			assert.False(t, tt.check(nil))
		})
	}
}

func TestPrefix(t *testing.T) {
	assert.Nil(t, Prefix(nil, "a: "))

	plain := Prefix(stderrors.New("plain"), "a: ")
	assert.True(t, IsType(plain, ErrorTypeInternal))

	typed := Prefix(New(ErrorTypeValidation, "bad").WithDetail("k", 1), "a: ")
	assert.Equal(t, ErrorTypeValidation, TypeOf(typed))
	assert.Equal(t, "validation: a: bad", typed.Error())
	assert.Equal(t, ErrorType(""), TypeOf(stderrors.New("x")))
}
