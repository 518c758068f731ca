package model

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

// gffRows returns the gene/mRNA/CDS triple TransDecoder writes for one ORF.
func gffRows(transcript, orf, orfType string, start, end int, strand string) []string {
	mrnaName := "ORF%20type%3A" + orfType + "%20len%3A0%20(" + strand + ")"
	return []string{
		strings.Join([]string{transcript, "transdecoder", "gene", strconv.Itoa(start), strconv.Itoa(end), ".", strand, ".",
			"ID=GENE." + transcript + "~~" + orf + ";Name=ORF"}, "\t"),
		strings.Join([]string{transcript, "transdecoder", "mRNA", strconv.Itoa(start), strconv.Itoa(end), ".", strand, ".",
			"ID=" + orf + ";Parent=GENE." + transcript + "~~" + orf + ";Name=" + mrnaName}, "\t"),
		strings.Join([]string{transcript, "transdecoder", "CDS", strconv.Itoa(start), strconv.Itoa(end), ".", strand, "0",
			"ID=cds." + orf + ";Parent=" + orf}, "\t"),
	}
}

// threeORFGFF writes three transcripts of 100, 250 and 400 aa that are internal,
// complete and 5' partial respectively.
func threeORFGFF(t *testing.T, dir string) string {
	t.Helper()
	var lines []string
	lines = append(lines, "##gff-version 3")
	lines = append(lines, gffRows("ORF1", "ORF1.p1", "internal", 1, 300, "+")...)
	lines = append(lines, gffRows("ORF2", "ORF2.p1", "complete", 1, 750, "+")...)
	lines = append(lines, gffRows("ORF3", "ORF3.p1", "5prime_partial", 1, 1200, "-")...)
	return writeFile(t, dir, "three.transdecoder.gff3", lines...)
}
