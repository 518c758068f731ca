package model

import "regexp"

// ORF predictors name each coding region after its transcript plus ".p<N>".
var orfSuffix = regexp.MustCompile(`(\.p\d+)+$`)

// StripORFSuffix removes the trailing ".p<digits>" ORF suffix from id, along
// with any further ".p<digits>" groups it uncovers, so "a.p1.p2" becomes "a".
// It is the single join-key normalization shared by the GFF3, ortholog and
// homology parsers. Applying it twice gives the same result as applying it
// once.
func StripORFSuffix(id string) string {
	return orfSuffix.ReplaceAllString(id, "")
}
