package model

import (
	"sort"

	"github.com/yumyai/orpheus/logger"
	"go.uber.org/zap"
)

type scoredID struct {
	id    string
	score float64
}

// rankScores returns every entry sorted by score, highest first. Equal scores
// keep the score table's insertion order.
func rankScores(scores *ScoreTable) []scoredID {
	ranked := make([]scoredID, 0, scores.Len())
	scores.Each(func(id string, s float64) {
		ranked = append(ranked, scoredID{id: id, score: s})
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}

// Select returns the ids scoring at least threshold, best first, capped at
// topN when topN > 0.
func Select(scores *ScoreTable, threshold float64, topN int) []string {
	if scores == nil {
		return nil
	}

	var kept []scoredID
	for _, e := range rankScores(scores) {
		if e.score >= threshold {
			kept = append(kept, e)
		}
	}
	if topN > 0 && len(kept) > topN {
		kept = kept[:topN]
	}

	selected := make([]string, len(kept))
	sum := 0.0
	for i, e := range kept {
		selected[i] = e.id
		sum += e.score
	}

	fields := []zap.Field{
		zap.Float64("threshold", threshold),
		zap.Int("top_n", topN),
		zap.Int("scored", scores.Len()),
		zap.Int("selected", len(selected)),
	}
	if len(kept) > 0 {
		fields = append(fields,
			zap.Float64("max", kept[0].score),
			zap.Float64("min", kept[len(kept)-1].score),
			zap.Float64("mean", sum/float64(len(kept))),
		)
	}
	logger.Info("Selected transcripts", fields...)

	return selected
}
