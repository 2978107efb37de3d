package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wellslab/s4m-api/internal/frame"
	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/storage"
)

func uploadFixtureMatrix() *frame.Matrix {
	m := frame.NewMatrix([]string{"ENSG00000102145", "ENSG00000134954"}, []string{"s1", "s2"})
	m.Values[0][0] = 1
	m.Values[0][1] = 2
	m.Values[1][0] = 3
	m.Values[1][1] = 4
	return m
}

func readLedgerLines(tb testing.TB, root string) []string {
	tb.Helper()
	raw, err := os.ReadFile(filepath.Join(root, "registry.tsv"))
	if err != nil {
		tb.Fatalf("read ledger: %v", err)
	}
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}

func TestRegisterUpload(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UPLOAD_FILEPATH", root)
	log := logger.NewNop()
	svc := NewUploadService(storage.NewLocalProvider(root, log), log)

	id := svc.Register(context.Background(), uploadFixtureMatrix(), "someone@example.org", "blood")
	if id == "" {
		t.Fatalf("Register returned an empty id")
	}

	stored, err := frame.ReadMatrixFile(filepath.Join(root, id, "expression.tsv"))
	if err != nil {
		t.Fatalf("stored matrix: %v", err)
	}
	if stored.NRows() != 2 || stored.Values[1][1] != 4 {
		t.Fatalf("stored matrix content: %+v", stored)
	}

	lines := readLedgerLines(t, root)
	if len(lines) != 1 {
		t.Fatalf("ledger rows: want=1 got=%d", len(lines))
	}
	fields := strings.Split(lines[0], "\t")
	if len(fields) != 6 {
		t.Fatalf("ledger fields: want=6 got=%d (%q)", len(fields), lines[0])
	}
	if fields[0] != id || fields[1] != "someone@example.org" || fields[2] != "blood" {
		t.Fatalf("ledger row: %q", lines[0])
	}
	if _, err := time.Parse(time.RFC3339, fields[3]); err != nil {
		t.Fatalf("created_at %q: %v", fields[3], err)
	}
	// Status and notes belong to curation and are written blank.
	if fields[4] != "" || fields[5] != "" {
		t.Fatalf("curation fields should be blank: %q", lines[0])
	}
}

func TestRegisterUploadAppendsAcrossInstances(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UPLOAD_FILEPATH", root)
	log := logger.NewNop()
	ctx := context.Background()

	first := NewUploadService(storage.NewLocalProvider(root, log), log)
	id1 := first.Register(ctx, uploadFixtureMatrix(), "a@example.org", "blood")
	id2 := first.Register(ctx, uploadFixtureMatrix(), "b@example.org", "myeloid")

	// A fresh instance picks up the existing ledger.
	second := NewUploadService(storage.NewLocalProvider(root, log), log)
	id3 := second.Register(ctx, uploadFixtureMatrix(), "c@example.org", "dc")

	if id1 == id2 || id1 == id3 || id2 == id3 {
		t.Fatalf("ids not unique: %s %s %s", id1, id2, id3)
	}
	lines := readLedgerLines(t, root)
	if len(lines) != 3 {
		t.Fatalf("ledger rows: want=3 got=%d", len(lines))
	}
	for i, want := range []string{id1, id2, id3} {
		if !strings.HasPrefix(lines[i], want+"\t") {
			t.Fatalf("ledger row %d: want id %s got %q", i, want, lines[i])
		}
	}
}

func TestRegisterUploadConcurrent(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UPLOAD_FILEPATH", root)
	log := logger.NewNop()
	svc := NewUploadService(storage.NewLocalProvider(root, log), log)

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = svc.Register(context.Background(), uploadFixtureMatrix(), "load@example.org", "blood")
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, id := range ids {
		if id == "" {
			t.Fatalf("empty id issued")
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id issued: %s", id)
		}
		seen[id] = struct{}{}
	}
	if lines := readLedgerLines(t, root); len(lines) != n {
		t.Fatalf("ledger rows: want=%d got=%d", n, len(lines))
	}
}

type failingProvider struct{}

func (failingProvider) Save(context.Context, string, io.Reader) error {
	return errors.New("disk full")
}

func TestRegisterUploadStorageFailure(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UPLOAD_FILEPATH", root)
	svc := NewUploadService(failingProvider{}, logger.NewNop())

	// Persistence problems are logged, not surfaced; the caller still gets
	// an id but no ledger row is written for the lost upload.
	id := svc.Register(context.Background(), uploadFixtureMatrix(), "x@example.org", "blood")
	if id == "" {
		t.Fatalf("Register returned an empty id")
	}
	if _, err := os.Stat(filepath.Join(root, "registry.tsv")); !os.IsNotExist(err) {
		t.Fatalf("ledger should not exist after storage failure, stat err=%v", err)
	}
}
