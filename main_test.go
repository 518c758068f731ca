package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumyai/orpheus/pkg/config"
	"github.com/yumyai/orpheus/pkg/pipeline"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orpheus.yaml")

	require.NoError(t, newApp().Run(context.Background(), []string{"orpheus", "config", "init", path}))

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), c)

	err = newApp().Run(context.Background(), []string{"orpheus", "config", "init", path})
	assert.Error(t, err, "existing file needs --force")

	assert.NoError(t, newApp().Run(context.Background(), []string{"orpheus", "config", "init", "--force", path}))
}

func TestScore(t *testing.T) {
	work := t.TempDir()
	writeLines(t, filepath.Join(work, pipeline.TransDecoderResultsDir, "a.fasta.transdecoder.gff3"),
		"T1\ttransdecoder\tmRNA\t1\t300\t.\t+\t.\tID=T1.p1;Name=type:complete",
		"T1\ttransdecoder\tCDS\t1\t300\t.\t+\t0\tParent=T1.p1",
		"T2\ttransdecoder\tCDS\t1\t30\t.\t+\t0\tParent=T2.p1",
	)
	writeLines(t, filepath.Join(work, pipeline.SequencesFileName), ">T1", "ACGT", ">T2", "TTTT")
	out := filepath.Join(t.TempDir(), "out")

	err := newApp().Run(context.Background(), []string{
		"orpheus", "score", "--work-dir", work, "--output-dir", out, "--threshold", "0.6", "--log-level", "warn",
	})
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(out, pipeline.SequencesOutputFileName))
	require.NoError(t, err)
	assert.Equal(t, ">T1\nACGT\n", string(b))
}

func TestScore_Fails(t *testing.T) {
	err := newApp().Run(context.Background(), []string{
		"orpheus", "score", "--work-dir", t.TempDir(), "--log-level", "error",
	})
	assert.Error(t, err)

	err = newApp().Run(context.Background(), []string{
		"orpheus", "score", "--work-dir", t.TempDir(), "--weights", "1,2", "--log-level", "error",
	})
	assert.Error(t, err)
}

func TestWatchIgnores(t *testing.T) {
	c := config.Defaults()
	c.IO.WorkDir = "/data/run"

	ignores := watchIgnores(c)
	assert.Len(t, ignores, 3)
	assert.Contains(t, ignores, filepath.Join("/data/run", pipeline.SequencesOutputFileName))

	c.IO.OutputDir = "/data/run/scoring"
	assert.Equal(t, []string{"/data/run/scoring"}, watchIgnores(c))
}
