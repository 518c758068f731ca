package model

import (
	"sort"
	"strconv"
)

const placeholder = "-"

// maxReportORFs is how many transcripts per gene get ORF columns.
const maxReportORFs = 3

// BuildScoreRows returns one row per selected transcript, in selection order.
func BuildScoreRows(selected []string, scores *ScoreTable, orfs *ORFTable, orthologs *OrthologTable, homology *HomologyTable) []ScoreRow {
	rows := make([]ScoreRow, 0, len(selected))
	for _, id := range selected {
		score, _ := scores.Get(id)
		row := ScoreRow{
			TranscriptID: id,
			Score:        score,
			Ortholog:     orthologs.Contains(id),
			ORFType:      CompletenessUnknown.String(),
			Strand:       ".",
		}
		if o, ok := orfs.Get(id); ok {
			row.ORFType = o.Completeness.String()
			row.ORFLength = o.Length
			row.Strand = o.Strand
			row.Homology = homology.Has(o.GroupKey())
		}
		rows = append(rows, row)
	}
	return rows
}

type geneMember struct {
	id    string
	score float64
	orf   *ORFRecord
}

// groupByGene buckets the selected transcripts by gene grouping. Groups and
// members both come back in first-seen order.
func groupByGene(selected []string, scores *ScoreTable, orfs *ORFTable) *OrderedMap[string, []geneMember] {
	groups := NewOrderedMap[string, []geneMember]()
	for _, id := range selected {
		score, _ := scores.Get(id)
		orf, ok := orfs.Get(id)
		gene := id
		if ok {
			gene = orf.GroupKey()
		}
		members, _ := groups.Get(gene)
		groups.Set(gene, append(members, geneMember{id: id, score: score, orf: orf}))
	}
	return groups
}

// BuildGeneReport aggregates the selected transcripts per gene grouping. Rows
// are ordered by their best transcript score, highest first; ties keep the
// order in which genes first appear in the selection.
func BuildGeneReport(selected []string, scores *ScoreTable, orfs *ORFTable, orthologs *OrthologTable, homology *HomologyTable) []GeneReportRow {
	groups := groupByGene(selected, scores, orfs)

	rows := make([]GeneReportRow, 0, groups.Len())
	groups.Each(func(gene string, members []geneMember) {
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].score > members[j].score
		})
		best := members[0]

		row := GeneReportRow{
			GeneID:           gene,
			TranscriptCount:  len(members),
			BestScore:        best.score,
			BestTranscript:   best.id,
			OrthologStatus:   placeholder,
			OrthologID:       placeholder,
			HomologySubject:  placeholder,
			HomologyIdentity: placeholder,
			HomologyEvalue:   placeholder,
		}

		if m, ok := orthologs.Detail(best.id); ok {
			row.OrthologStatus = string(m.Status)
			row.OrthologID = m.OrthologID
		}
		if h, ok := homology.Get(gene); ok {
			row.HomologySubject = h.SubjectID
			row.HomologyIdentity = h.PercentIdentity
			row.HomologyEvalue = h.EValue
		}

		for i := range row.ORFs {
			row.ORFs[i] = ORFSummary{Type: placeholder, Length: placeholder}
			if i >= len(members) || i >= maxReportORFs {
				continue
			}
			if o := members[i].orf; o != nil {
				row.ORFs[i] = ORFSummary{Type: o.Completeness.String(), Length: strconv.Itoa(o.Length)}
			}
		}

		rows = append(rows, row)
	})

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].BestScore > rows[j].BestScore
	})
	return rows
}
