package render

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/yumyai/orpheus/internal/util"
	"github.com/yumyai/orpheus/logger"
	"github.com/yumyai/orpheus/pkg/model"
	"go.uber.org/zap"
)

const (
	ScoreTableFileName       = "transcript_scores.tsv"
	IntegratedReportFileName = "integrated_report.tsv"
)

var (
	scoreTableHeader = []string{
		"Transcript_ID", "Score", "BUSCO_Gene", "ORF_Type", "ORF_Length", "Homology_Evidence", "Strand",
	}
	integratedReportHeader = []string{
		"Gene_ID", "Transcript_Count", "Best_Score", "BUSCO_Status", "BUSCO_Gene_ID",
		"ORF1_Type", "ORF1_Length", "ORF2_Type", "ORF2_Length", "ORF3_Type", "ORF3_Length",
		"Homology_Subject", "Homology_Identity", "Homology_Evalue",
	}
)

var (
	scoreTableTemplate       *template.Template
	integratedReportTemplate *template.Template
)

func init() {
	funcs := template.FuncMap{
		"yesno": func(b bool) string {
			if b {
				return "Yes"
			}
			return "No"
		},
		"score": func(f float64) string { return fmt.Sprintf("%.4f", f) },
	}

	scoreTmpl := strings.Join(scoreTableHeader, "\t") + "\n" +
		"{{ range . }}" +
		"{{ .TranscriptID }}\t{{ score .Score }}\t{{ yesno .Ortholog }}\t{{ .ORFType }}\t" +
		"{{ .ORFLength }}\t{{ yesno .Homology }}\t{{ .Strand }}\n" +
		"{{ end }}"

	reportTmpl := strings.Join(integratedReportHeader, "\t") + "\n" +
		"{{ range . }}" +
		"{{ .GeneID }}\t{{ .TranscriptCount }}\t{{ score .BestScore }}\t{{ .OrthologStatus }}\t{{ .OrthologID }}\t" +
		"{{ range .ORFs }}{{ .Type }}\t{{ .Length }}\t{{ end }}" +
		"{{ .HomologySubject }}\t{{ .HomologyIdentity }}\t{{ .HomologyEvalue }}\n" +
		"{{ end }}"

	scoreTableTemplate = template.Must(template.New("score_table").Funcs(funcs).Parse(scoreTmpl))
	integratedReportTemplate = template.Must(template.New("integrated_report").Funcs(funcs).Parse(reportTmpl))
}

// RenderScoreTable writes the per-transcript score table, one row per entry
// in the order given.
func RenderScoreTable(w io.Writer, rows []model.ScoreRow) error {
	return scoreTableTemplate.Execute(w, rows)
}

// RenderIntegratedReport writes the per-gene report, one row per entry in the
// order given.
func RenderIntegratedReport(w io.Writer, rows []model.GeneReportRow) error {
	return integratedReportTemplate.Execute(w, rows)
}

// WriteScoreTable renders rows into path, replacing it atomically.
func WriteScoreTable(path string, rows []model.ScoreRow) error {
	err := util.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return RenderScoreTable(w, rows)
	})
	if err != nil {
		return fmt.Errorf("write score table %s: %w", path, err)
	}
	logger.Info("Wrote score table", zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}

// WriteIntegratedReport renders rows into path, replacing it atomically.
func WriteIntegratedReport(path string, rows []model.GeneReportRow) error {
	err := util.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return RenderIntegratedReport(w, rows)
	})
	if err != nil {
		return fmt.Errorf("write integrated report %s: %w", path, err)
	}
	logger.Info("Wrote integrated report", zap.String("path", path), zap.Int("genes", len(rows)))
	return nil
}
