package model

import (
	"github.com/yumyai/orpheus/logger"
	"go.uber.org/zap"
)

var (
	// DefaultWeights apply when ortholog evidence is available and the caller
	// did not ask for anything else.
	DefaultWeights = WeightSet{Ortholog: 0.4, Completeness: 0.3, Homology: 0.2, Length: 0.1}

	// NoOrthologWeights replace any requested weights when the run has no
	// ortholog evidence at all.
	NoOrthologWeights = WeightSet{Ortholog: 0.0, Completeness: 0.5, Homology: 0.3, Length: 0.2}
)

// EffectiveWeights picks the weights a run actually scores with. Without
// ortholog evidence the requested set is discarded wholesale in favour of
// NoOrthologWeights, even when the caller supplied weights explicitly.
func EffectiveWeights(requested *WeightSet, haveOrthologs bool) WeightSet {
	if !haveOrthologs {
		if requested != nil && *requested != NoOrthologWeights {
			logger.Warn("No BUSCO evidence, ignoring requested weights",
				zap.Stringer("requested", *requested),
				zap.Stringer("effective", NoOrthologWeights),
			)
		} else {
			logger.Warn("No BUSCO evidence, redistributing weights")
		}
		return NoOrthologWeights
	}
	if requested == nil {
		return DefaultWeights
	}
	return *requested
}

func orthologScore(orthologs *OrthologTable, transcriptID string) float64 {
	m, ok := orthologs.Detail(transcriptID)
	if !ok {
		return 0.0
	}
	switch m.Status {
	case OrthologComplete, OrthologDuplicated:
		return 1.0
	case OrthologFragmented:
		return 0.5
	default:
		return 0.0
	}
}

func completenessScore(c Completeness) float64 {
	switch c {
	case CompletenessComplete:
		return 1.0
	case CompletenessFivePrimePartial, CompletenessThreePrimePartial:
		return 0.6
	case CompletenessInternal:
		return 0.3
	default:
		return 0.0
	}
}

func homologyScore(homology *HomologyTable, o *ORFRecord) float64 {
	if homology.Has(o.GroupKey()) {
		return 1.0
	}
	return 0.0
}

// Score combines ortholog, completeness, homology and length evidence into a
// composite score per transcript. The result keeps the ORF table's order and
// depends only on its inputs. Nil evidence tables count as empty.
func Score(orfs *ORFTable, orthologs *OrthologTable, homology *HomologyTable, requested *WeightSet) (*ScoreTable, WeightSet) {
	if orfs == nil {
		orfs = NewORFTable()
	}
	if orthologs == nil {
		orthologs = NewOrthologTable()
	}
	if homology == nil {
		homology = NewHomologyTable()
	}

	w := EffectiveWeights(requested, orthologs.Len() > 0)
	logger.Info("Scoring weights",
		zap.Float64("ortholog", w.Ortholog),
		zap.Float64("completeness", w.Completeness),
		zap.Float64("homology", w.Homology),
		zap.Float64("length", w.Length),
	)

	maxLength := float64(orfs.MaxLength())
	if maxLength <= 0 {
		maxLength = 1
	}

	scores := NewScoreTable()
	orfs.Each(func(id string, o *ORFRecord) {
		total := w.Ortholog*orthologScore(orthologs, id) +
			w.Completeness*completenessScore(o.Completeness) +
			w.Homology*homologyScore(homology, o) +
			w.Length*(float64(o.Length)/maxLength)
		scores.Set(id, total)
	})

	logScoreBands(scores)
	return scores, w
}

func logScoreBands(scores *ScoreTable) {
	var excellent, good, fair, poor int
	scores.Each(func(_ string, s float64) {
		switch {
		case s >= 0.8:
			excellent++
		case s >= 0.6:
			good++
		case s >= 0.4:
			fair++
		default:
			poor++
		}
	})
	logger.Info("Scored transcripts",
		zap.Int("total", scores.Len()),
		zap.Int("excellent", excellent),
		zap.Int("good", good),
		zap.Int("fair", fair),
		zap.Int("poor", poor),
	)
}
