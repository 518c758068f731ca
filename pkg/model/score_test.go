package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeORFs(t *testing.T) *ORFTable {
	t.Helper()
	orfs, err := ParseGFF3(threeORFGFF(t, t.TempDir()))
	require.NoError(t, err)
	return orfs
}

func TestEffectiveWeights(t *testing.T) {
	custom := WeightSet{Ortholog: 0.7, Completeness: 0.1, Homology: 0.1, Length: 0.1}

	tests := []struct {
		name          string
		requested     *WeightSet
		haveOrthologs bool
		want          WeightSet
	}{
		{"default", nil, true, DefaultWeights},
		{"requested", &custom, true, custom},
		{"fallback without request", nil, false, NoOrthologWeights},
		{"fallback overrides request", &custom, false, NoOrthologWeights},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveWeights(tt.requested, tt.haveOrthologs))
		})
	}
}

func TestScore_NoEvidence(t *testing.T) {
	orfs := threeORFs(t)

	scores, w := Score(orfs, NewOrthologTable(), NewHomologyTable(), nil)
	assert.Equal(t, NoOrthologWeights, w)
	assert.Equal(t, orfs.Keys(), scores.Keys())

	want := map[string]float64{"ORF1": 0.20, "ORF2": 0.625, "ORF3": 0.50}
	for id, s := range want {
		got, ok := scores.Get(id)
		require.True(t, ok, id)
		assert.InDelta(t, s, got, 1e-9, id)
	}
}

func TestScore_FallbackIgnoresRequestedWeights(t *testing.T) {
	orfs := threeORFs(t)
	requested := WeightSet{Ortholog: 1, Completeness: 0, Homology: 0, Length: 0}

	scores, w := Score(orfs, nil, nil, &requested)
	assert.Equal(t, NoOrthologWeights, w)

	got, _ := scores.Get("ORF2")
	assert.InDelta(t, 0.625, got, 1e-9)
}

func TestScore_AllEvidence(t *testing.T) {
	orfs := threeORFs(t)

	orthologs := NewOrthologTable()
	orthologs.Set("ORF2", OrthologMatch{OrthologID: "10at2759", Status: OrthologComplete, SequenceID: "ORF2.p1"})
	orthologs.Set("ORF3", OrthologMatch{OrthologID: "20at2759", Status: OrthologFragmented, SequenceID: "ORF3.p1"})

	homology := NewHomologyTable()
	homology.Set("ORF1", HomologyHit{QueryID: "ORF1.p1", SubjectID: "sp|P1"})

	scores, w := Score(orfs, orthologs, homology, nil)
	assert.Equal(t, DefaultWeights, w)

	want := map[string]float64{
		"ORF1": 0.3*0.3 + 0.2*1.0 + 0.1*0.25,
		"ORF2": 0.4*1.0 + 0.3*1.0 + 0.1*0.625,
		"ORF3": 0.4*0.5 + 0.3*0.6 + 0.1*1.0,
	}
	for id, s := range want {
		got, _ := scores.Get(id)
		assert.InDelta(t, s, got, 1e-9, id)
	}
}

func TestScore_Empty(t *testing.T) {
	scores, _ := Score(NewORFTable(), nil, nil, nil)
	assert.Equal(t, 0, scores.Len())

	scores, _ = Score(nil, nil, nil, nil)
	assert.Equal(t, 0, scores.Len())
}

func TestScore_Deterministic(t *testing.T) {
	orfs := threeORFs(t)
	homology := NewHomologyTable()
	homology.Set("ORF3", HomologyHit{SubjectID: "sp|P3"})

	a, _ := Score(orfs, nil, homology, nil)
	b, _ := Score(orfs, nil, homology, nil)
	assert.Equal(t, a, b)
}

func TestScore_MonotoneInEvidence(t *testing.T) {
	orfs := threeORFs(t)

	orthologs := NewOrthologTable()
	orthologs.Set("unrelated", OrthologMatch{Status: OrthologComplete})
	base, _ := Score(orfs, orthologs, nil, nil)

	withHomology := NewHomologyTable()
	withOrtholog := NewOrthologTable()
	withOrtholog.Set("unrelated", OrthologMatch{Status: OrthologComplete})
	for _, id := range orfs.Keys() {
		withHomology.Set(id, HomologyHit{SubjectID: "hit"})
		withOrtholog.Set(id, OrthologMatch{Status: OrthologFragmented})
	}
	moreHomology, _ := Score(orfs, orthologs, withHomology, nil)
	moreOrtholog, _ := Score(orfs, withOrtholog, nil, nil)

	for _, id := range orfs.Keys() {
		b, _ := base.Get(id)
		h, _ := moreHomology.Get(id)
		o, _ := moreOrtholog.Get(id)
		assert.Greater(t, h, b, id)
		assert.Greater(t, o, b, id)
	}
}

func TestCriterionScores(t *testing.T) {
	assert.Equal(t, 1.0, completenessScore(CompletenessComplete))
	assert.Equal(t, 0.6, completenessScore(CompletenessFivePrimePartial))
	assert.Equal(t, 0.6, completenessScore(CompletenessThreePrimePartial))
	assert.Equal(t, 0.3, completenessScore(CompletenessInternal))
	assert.Equal(t, 0.0, completenessScore(CompletenessUnknown))

	orthologs := NewOrthologTable()
	orthologs.Set("c", OrthologMatch{Status: OrthologComplete})
	orthologs.Set("d", OrthologMatch{Status: OrthologDuplicated})
	orthologs.Set("f", OrthologMatch{Status: OrthologFragmented})
	assert.Equal(t, 1.0, orthologScore(orthologs, "c"))
	assert.Equal(t, 1.0, orthologScore(orthologs, "d"))
	assert.Equal(t, 0.5, orthologScore(orthologs, "f"))
	assert.Equal(t, 0.0, orthologScore(orthologs, "absent"))
}
