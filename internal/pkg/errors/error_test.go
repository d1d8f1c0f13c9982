package errors

import (
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	e := New("sample error message")
	if e == nil {
		t.Fatalf("expected non-nil error but got nil")
	}

	match, err := regexp.MatchString(`^sample error message: at `, e.Error())
	if err != nil {
		t.Fatal(err)
	}
	if !match {
		t.Errorf("expected %q to start with the message and caller", e.Error())
	}
}

func TestWrapKeepsChain(t *testing.T) {
	errOne := New("sample error message one")
	errTwo := Wrap(errOne, "sample error message two")

	assert.Equal(t, errOne, errors.Unwrap(errTwo))

	wrappedNotFound := Wrap(ErrNotFound, "failed to get analysis")
	assert.True(t, Is(wrappedNotFound, ErrNotFound))
	assert.False(t, Is(wrappedNotFound, ErrInvalidTransition))
}

func TestValidationError(t *testing.T) {
	err := fmt.Errorf("create: %w", NewValidationError("url", "url is empty"))

	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(ErrNotFound))

	var vErr *ValidationError
	if assert.True(t, As(err, &vErr)) {
		assert.Equal(t, "url", vErr.Field)
		assert.Equal(t, "invalid url: url is empty", vErr.Error())
	}
}

func TestFilePath(t *testing.T) {
	path := filePath()

	if path == "" {
		t.Fatalf("expected non-empty string but got empty string")
	}

	pattern := `^at testing.tRunner.*`
	match, err := regexp.Match(pattern, []byte(path))
	if err != nil {
		t.Fatal(err)
	}

	if !match {
		t.Fatalf("expected %q to match %q", path, pattern)
	}
}
