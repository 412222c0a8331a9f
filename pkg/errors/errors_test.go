package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorWrapsSentinel(t *testing.T) {
	err := Newf(ErrNotFound, "queries file %q", "q.csv")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is(err, ErrNotFound)")
	}
	if errors.Is(err, ErrFormat) {
		t.Fatalf("did not expect ErrFormat")
	}
	want := `not found: queries file "q.csv"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"configuration", New(ErrConfiguration, "bad analyzer"), 2},
		{"not found", New(ErrNotFound, "missing"), 3},
		{"corrupt", New(ErrCorruptIndex, "bad magic"), 4},
		{"format", New(ErrFormat, "missing column"), 5},
		{"exists", New(ErrAlreadyExists, "index"), 6},
		{"wrapped", fmt.Errorf("opening index: %w", New(ErrCorruptIndex, "crc")), 4},
		{"other", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
