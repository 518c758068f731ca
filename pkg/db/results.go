package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yumyai/orpheus/logger"
	"github.com/yumyai/orpheus/pkg/model"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const ResultsFileName = "results.db"

//go:embed sql/results.sql
var resultsSchema string

// Run describes one scoring run as stored in the runs table.
type Run struct {
	ID        string
	StartedAt time.Time
	Threshold float64
	TopN      int
	Weights   model.WeightSet
	Scored    int
	Selected  int
}

// Results is everything a run exports to the results database.
type Results struct {
	Run    Run
	Scores []model.ScoreRow
	Genes  []model.GeneReportRow
}

// WriteResults stores res in a fresh SQLite database at path. The database is
// built under a temporary name in the same directory and renamed into place
// once it is complete, so an existing file is only replaced on success.
func WriteResults(ctx context.Context, path string, res Results) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("results db %s: %w", path, err)
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	conn, err := sql.Open("sqlite", tmpName)
	if err != nil {
		return fmt.Errorf("results db %s: %w", path, err)
	}

	if err = saveResults(ctx, conn, res); err != nil {
		_ = conn.Close()
		return fmt.Errorf("results db %s: %w", path, err)
	}
	if err = conn.Close(); err != nil {
		return fmt.Errorf("results db %s: %w", path, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("results db %s: %w", path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("results db %s: %w", path, err)
	}

	logger.Info("Wrote results database",
		zap.String("path", path),
		zap.String("run_id", res.Run.ID),
		zap.Int("scores", len(res.Scores)),
		zap.Int("genes", len(res.Genes)),
	)
	return nil
}

func saveResults(ctx context.Context, conn *sql.DB, res Results) error {
	if _, err := conn.ExecContext(ctx, resultsSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := insertResults(ctx, tx, res); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

func insertResults(ctx context.Context, tx *sql.Tx, res Results) error {
	r := res.Run
	_, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, threshold, top_n,
			w_ortholog, w_completeness, w_homology, w_length, scored, selected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339), r.Threshold, r.TopN,
		r.Weights.Ortholog, r.Weights.Completeness, r.Weights.Homology, r.Weights.Length,
		r.Scored, r.Selected,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	scoreStm, err := tx.PrepareContext(ctx, `
		INSERT INTO transcript_scores (run_id, rank, transcript_id, score,
			busco_match, orf_type, orf_length, homology, strand)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer scoreStm.Close()

	for i, s := range res.Scores {
		if _, err := scoreStm.ExecContext(ctx, r.ID, i+1, s.TranscriptID, s.Score,
			s.Ortholog, s.ORFType, s.ORFLength, s.Homology, s.Strand); err != nil {
			return fmt.Errorf("insert score %s: %w", s.TranscriptID, err)
		}
	}

	geneStm, err := tx.PrepareContext(ctx, `
		INSERT INTO gene_reports (run_id, rank, gene_id, transcript_count, best_score,
			best_transcript, busco_status, busco_gene_id,
			orf1_type, orf1_length, orf2_type, orf2_length, orf3_type, orf3_length,
			homology_subject, homology_identity, homology_evalue)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer geneStm.Close()

	for i, g := range res.Genes {
		if _, err := geneStm.ExecContext(ctx, r.ID, i+1, g.GeneID, g.TranscriptCount, g.BestScore,
			g.BestTranscript, g.OrthologStatus, g.OrthologID,
			g.ORFs[0].Type, g.ORFs[0].Length, g.ORFs[1].Type, g.ORFs[1].Length, g.ORFs[2].Type, g.ORFs[2].Length,
			g.HomologySubject, g.HomologyIdentity, g.HomologyEvalue); err != nil {
			return fmt.Errorf("insert gene %s: %w", g.GeneID, err)
		}
	}
	return nil
}

// LoadScores reads the score rows of a run back in rank order.
func LoadScores(ctx context.Context, path, runID string) ([]model.ScoreRow, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stm, err := conn.PrepareContext(ctx, `
		SELECT transcript_id, score, busco_match, orf_type, orf_length, homology, strand
		FROM transcript_scores
		WHERE run_id = ?
		ORDER BY rank`)
	if err != nil {
		return nil, err
	}
	defer stm.Close()

	rows, err := stm.QueryContext(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScoreRow
	for rows.Next() {
		var s model.ScoreRow
		if err := rows.Scan(&s.TranscriptID, &s.Score, &s.Ortholog, &s.ORFType,
			&s.ORFLength, &s.Homology, &s.Strand); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
