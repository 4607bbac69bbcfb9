package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/crust/internal/testutil"
)

func openTestJournal(t *testing.T, opts ...Option) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_Pragmas(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for name, want := range map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": "5000",
		"user_version": "1",
	} {
		if err := j.verifyPragma(ctx, name, want); err != nil {
			t.Error(err)
		}
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(path, WithRunIDGenerator(testutil.NewFixedRunIDGenerator("run-1")))
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if _, err := j.BeginRun(ctx, "hello"); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	j.Close()

	j, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer j.Close()

	runs, err := j.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Errorf("runs = %+v, want one run-1", runs)
	}
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	if err == nil {
		t.Fatal("Open() on a missing directory should fail")
	}
}

func TestClose_NilDB(t *testing.T) {
	var j Journal
	if err := j.Close(); err != nil {
		t.Errorf("Close() on zero Journal = %v, want nil", err)
	}
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	if len(a) != 36 {
		t.Errorf("len(id) = %d, want 36", len(a))
	}
	if a == b {
		t.Error("two generated ids are equal")
	}
}
