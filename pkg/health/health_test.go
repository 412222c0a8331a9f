package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCheckerRun(t *testing.T) {
	c := NewChecker(time.Second)
	c.Register("b-up", func(context.Context) Result { return Up("ok") })
	c.Register("a-skipped", func(context.Context) Result { return Skipped("disabled") })

	report := c.Run(context.Background())
	if report.Status != StatusUp {
		t.Fatalf("status = %s, want up", report.Status)
	}
	if len(report.Components) != 2 || report.Components[0].Name != "a-skipped" {
		t.Errorf("components not sorted: %+v", report.Components)
	}

	c.Register("c-down", func(context.Context) Result { return Down(errors.New("unreachable")) })
	report = c.Run(context.Background())
	if report.Status != StatusDown {
		t.Errorf("status = %s, want down", report.Status)
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Name != "c-down" || failed[0].Message != "unreachable" {
		t.Errorf("failed = %+v", failed)
	}
}

func TestCheckTimeout(t *testing.T) {
	c := NewChecker(10 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) Result {
		<-ctx.Done()
		return Down(ctx.Err())
	})
	report := c.Run(context.Background())
	if report.Status != StatusDown {
		t.Errorf("status = %s, want down", report.Status)
	}
}

func TestFileAndDirChecks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "queries.csv")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing")
	ctx := context.Background()

	tests := []struct {
		name  string
		check Check
		want  Status
	}{
		{"file", FileCheck(file), StatusUp},
		{"file is dir", FileCheck(dir), StatusDown},
		{"missing file", FileCheck(missing), StatusDown},
		{"dir", DirCheck(dir), StatusUp},
		{"dir is file", DirCheck(file), StatusDown},
		{"missing dir", DirCheck(missing), StatusDown},
	}
	for _, tt := range tests {
		if got := tt.check(ctx).Status; got != tt.want {
			t.Errorf("%s: status = %s, want %s", tt.name, got, tt.want)
		}
	}
}
