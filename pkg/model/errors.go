package model

import "fmt"

// RowError describes an annotation row that was skipped while parsing.
type RowError struct {
	File string
	Line int
	Msg  string // what was wrong with the row
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}
