package imerr

import (
	"errors"
	"testing"
)

func TestInvalidIsErrInvalidArgument(t *testing.T) {
	err := Invalid("bad value")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Error("Invalid() should wrap ErrInvalidArgument")
	}
	if errors.Is(err, ErrStateInvalidated) {
		t.Error("Invalid() should not wrap ErrStateInvalidated")
	}
	if err.Error() != "bad value: invalid argument" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestInvalidatedIsErrStateInvalidated(t *testing.T) {
	err := Invalidated("no backup")
	if !errors.Is(err, ErrStateInvalidated) {
		t.Error("Invalidated() should wrap ErrStateInvalidated")
	}
	if errors.Is(err, ErrInvalidArgument) {
		t.Error("Invalidated() should not wrap ErrInvalidArgument")
	}
}
