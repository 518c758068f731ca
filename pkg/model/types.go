package model

import "fmt"

type Completeness int

const (
	CompletenessUnknown Completeness = iota
	CompletenessComplete
	CompletenessFivePrimePartial
	CompletenessThreePrimePartial
	CompletenessInternal
)

func (c Completeness) String() string {
	switch c {
	case CompletenessComplete:
		return "complete"
	case CompletenessFivePrimePartial:
		return "5prime_partial"
	case CompletenessThreePrimePartial:
		return "3prime_partial"
	case CompletenessInternal:
		return "internal"
	default:
		return "unknown"
	}
}

func NewCompleteness(name string) Completeness {
	switch name {
	case "complete":
		return CompletenessComplete
	case "5prime_partial":
		return CompletenessFivePrimePartial
	case "3prime_partial":
		return CompletenessThreePrimePartial
	case "internal":
		return CompletenessInternal
	default:
		return CompletenessUnknown
	}
}

// ORFRecord is the longest coding region predicted for one transcript.
type ORFRecord struct {
	TranscriptID string       `json:"transcript_id"`
	ParentID     string       `json:"parent_id"` // mRNA feature the CDS hangs off
	Completeness Completeness `json:"completeness"`
	Length       int          `json:"aa_length"`
	RawScore     float64      `json:"raw_score"`
	Start        int          `json:"start"`
	End          int          `json:"end"`
	Strand       string       `json:"strand"`
}

// GroupKey is the gene grouping used to join homology evidence and to group
// transcripts in the integrated report.
func (o *ORFRecord) GroupKey() string {
	return StripORFSuffix(o.ParentID)
}

type ORFTable struct {
	OrderedMap[string, *ORFRecord]
}

func NewORFTable() *ORFTable {
	return &ORFTable{}
}

// MaxLength returns the longest ORF length in the table, or 0 when empty.
func (t *ORFTable) MaxLength() int {
	longest := 0
	t.Each(func(_ string, o *ORFRecord) {
		if o.Length > longest {
			longest = o.Length
		}
	})
	return longest
}

type OrthologStatus string

const (
	OrthologComplete   OrthologStatus = "Complete"
	OrthologDuplicated OrthologStatus = "Duplicated"
	OrthologFragmented OrthologStatus = "Fragmented"
	OrthologMissing    OrthologStatus = "Missing"
)

// Matched reports whether the status counts as ortholog evidence.
func (s OrthologStatus) Matched() bool {
	return s == OrthologComplete || s == OrthologDuplicated || s == OrthologFragmented
}

// OrthologMatch is one row of a BUSCO full table after suffix stripping.
type OrthologMatch struct {
	OrthologID     string         `json:"busco_id"`
	Status         OrthologStatus `json:"status"`
	SequenceID     string         `json:"sequence"`
	RawScore       float64        `json:"score"`
	ReportedLength int            `json:"length"`
}

// OrthologTable holds the transcripts matched to the conserved ortholog set.
// Its key set is the match set and its values are the per-transcript details.
type OrthologTable struct {
	OrderedMap[string, OrthologMatch]
}

func NewOrthologTable() *OrthologTable {
	return &OrthologTable{}
}

func (t *OrthologTable) Contains(transcriptID string) bool {
	return t.Has(transcriptID)
}

func (t *OrthologTable) Detail(transcriptID string) (OrthologMatch, bool) {
	return t.Get(transcriptID)
}

// HomologyHit is the best tabular alignment row for a gene grouping. Numeric
// columns stay textual since they are reported verbatim.
type HomologyHit struct {
	QueryID         string `json:"query"`
	SubjectID       string `json:"subject"`
	PercentIdentity string `json:"identity"`
	EValue          string `json:"evalue"`
	BitScore        string `json:"bitscore"`
}

type HomologyTable struct {
	OrderedMap[string, HomologyHit]
}

func NewHomologyTable() *HomologyTable {
	return &HomologyTable{}
}

type WeightSet struct {
	Ortholog     float64 `yaml:"ortholog" json:"ortholog"`
	Completeness float64 `yaml:"completeness" json:"completeness"`
	Homology     float64 `yaml:"homology" json:"homology"`
	Length       float64 `yaml:"length" json:"length"`
}

func (w WeightSet) Sum() float64 {
	return w.Ortholog + w.Completeness + w.Homology + w.Length
}

func (w WeightSet) String() string {
	return fmt.Sprintf("ortholog=%g completeness=%g homology=%g length=%g",
		w.Ortholog, w.Completeness, w.Homology, w.Length)
}

// ScoreTable maps transcript id to composite score, ordered like the ORF table.
type ScoreTable struct {
	OrderedMap[string, float64]
}

func NewScoreTable() *ScoreTable {
	return &ScoreTable{}
}

// ScoreRow is one line of the per-transcript score table.
type ScoreRow struct {
	TranscriptID string
	Score        float64
	Ortholog     bool
	ORFType      string
	ORFLength    int
	Homology     bool
	Strand       string
}

type ORFSummary struct {
	Type   string
	Length string
}

// GeneReportRow is one line of the integrated report.
type GeneReportRow struct {
	GeneID           string
	TranscriptCount  int
	BestScore        float64
	BestTranscript   string
	OrthologStatus   string
	OrthologID       string
	ORFs             [3]ORFSummary
	HomologySubject  string
	HomologyIdentity string
	HomologyEvalue   string
}
