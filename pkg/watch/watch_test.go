package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWatcher runs a watcher over dir and forwards every onChange call.
func startWatcher(t *testing.T, dir string, ignore ...string) <-chan []string {
	t.Helper()
	w, err := New(nil, 100*time.Millisecond, ignore...)
	require.NoError(t, err)
	require.NoError(t, w.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan []string, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(_ context.Context, paths []string) {
			changes <- paths
		})
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})
	return changes
}

func expectChange(t *testing.T, changes <-chan []string) []string {
	t.Helper()
	select {
	case paths := <-changes:
		return paths
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for change")
		return nil
	}
}

func expectQuiet(t *testing.T, changes <-chan []string) {
	t.Helper()
	select {
	case paths := <-changes:
		t.Fatalf("unexpected change: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNew_DefaultExtensions(t *testing.T) {
	w, err := New(nil, time.Second)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, DefaultExtensions, w.extensions)
	assert.True(t, w.isWatchedExtension("a/b.gff3"))
	assert.False(t, w.isWatchedExtension("a/b.json"))
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	changes := startWatcher(t, dir)

	gff := filepath.Join(dir, "a.transdecoder.gff3")
	hits := filepath.Join(dir, "blastp_results.outfmt6")
	require.NoError(t, os.WriteFile(gff, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(hits, []byte("y"), 0o644))

	assert.Equal(t, []string{gff, hits}, expectChange(t, changes))
	expectQuiet(t, changes)
}

func TestWatcher_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	changes := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.tsv"), []byte("x"), 0o644))
	expectQuiet(t, changes)
}

func TestWatcher_IgnoresOutputs(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "scoring")
	require.NoError(t, os.Mkdir(out, 0o755))
	changes := startWatcher(t, dir, out)

	require.NoError(t, os.WriteFile(filepath.Join(out, "transcript_scores.tsv"), []byte("x"), 0o644))
	expectQuiet(t, changes)
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	changes := startWatcher(t, dir)

	sub := filepath.Join(dir, "busco_after")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(200 * time.Millisecond)

	table := filepath.Join(sub, "full_table.tsv")
	require.NoError(t, os.WriteFile(table, []byte("x"), 0o644))

	assert.Equal(t, []string{table}, expectChange(t, changes))
}
