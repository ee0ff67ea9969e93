package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

func entries(dir string) []domain.DocumentEntry {
	return []domain.DocumentEntry{
		{ID: "acme-fy23", SourcePath: filepath.Join(dir, "acme.txt")},
		{ID: "beta-q2", SourcePath: filepath.Join(dir, "sub", "beta.docx")},
	}
}

func TestNew_Dirs(t *testing.T) {
	dir := t.TempDir()

	w, err := New(entries(dir), 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.ElementsMatch(t, []string{dir, filepath.Join(dir, "sub")}, w.Dirs())
}

func TestHandleEvent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(entries(dir), 0)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		op     fsnotify.Op
		wantID string
		wantOK bool
	}{
		{"write to source", filepath.Join(dir, "acme.txt"), fsnotify.Write, "acme-fy23", true},
		{"create after rename", filepath.Join(dir, "sub", "beta.docx"), fsnotify.Create, "beta-q2", true},
		{"remove", filepath.Join(dir, "acme.txt"), fsnotify.Remove, "acme-fy23", true},
		{"write and chmod", filepath.Join(dir, "acme.txt"), fsnotify.Write | fsnotify.Chmod, "acme-fy23", true},
		{"chmod only", filepath.Join(dir, "acme.txt"), fsnotify.Chmod, "", false},
		{"unrelated file", filepath.Join(dir, "notes.txt"), fsnotify.Write, "", false},
		{"unclean path", dir + "/sub/../acme.txt", fsnotify.Write, "acme-fy23", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := w.handleEvent(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestWatch_EmitsChangedDocument(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "acme.txt")
	require.NoError(t, os.WriteFile(source, []byte("initial"), 0600))

	w, err := New([]domain.DocumentEntry{{ID: "acme-fy23", SourcePath: source}}, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	// Several writes in a burst produce one notification.
	for i := range 3 {
		require.NoError(t, os.WriteFile(source, []byte{byte('a' + i)}, 0600))
	}

	select {
	case id := <-changes:
		assert.Equal(t, "acme-fy23", id)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
	}

	select {
	case id := <-changes:
		t.Fatalf("unexpected second notification for %s", id)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	for range changes {
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	w, err := New([]domain.DocumentEntry{{ID: "x", SourcePath: "/does/not/exist/x.txt"}}, 0)
	require.NoError(t, err)

	_, err = w.Watch(context.Background())
	assert.Error(t, err)
}

func TestClose_WithoutWatch(t *testing.T) {
	w, err := New(nil, 0)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
