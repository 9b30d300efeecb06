package qerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewNil(t *testing.T) {
	if New(CodeNotFound, nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	base := Newf(CodeNotFound, "photon %q not found", "foo")
	wrapped := fmt.Errorf("run: %w", base)

	if !IsCode(wrapped, CodeNotFound) {
		t.Fatalf("expected not_found, got %s", CodeOf(wrapped))
	}
	if IsCode(wrapped, CodeValidation) {
		t.Fatal("did not expect validation code")
	}
	if wrapped.Error() != `run: photon "foo" not found` {
		t.Fatalf("unexpected message: %s", wrapped.Error())
	}
}

func TestIsCodeNested(t *testing.T) {
	inner := New(CodeDependency, errors.New("numpy missing"))
	outer := New(CodeCorruptArtifact, fmt.Errorf("load: %w", inner))

	if CodeOf(outer) != CodeCorruptArtifact {
		t.Fatalf("expected outer code, got %s", CodeOf(outer))
	}
	if !IsCode(outer, CodeDependency) {
		t.Fatal("expected inner dependency code to be found")
	}
}

func TestIsValidation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{Newf(CodeInvalidMount, "bad"), true},
		{Newf(CodeInvalidEnv, "bad"), true},
		{Newf(CodeInvalidSecret, "bad"), true},
		{Newf(CodeValidation, "bad"), true},
		{Newf(CodeNotFound, "missing"), false},
		{errors.New("plain"), false},
	}
	for _, c := range cases {
		if got := IsValidation(c.err); got != c.want {
			t.Errorf("IsValidation(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if CodeOf(errors.New("x")) != CodeUnknown {
		t.Fatal("expected unknown for plain errors")
	}
}
