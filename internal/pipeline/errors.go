package pipeline

import (
	"fmt"
	"strings"
)

// Pipeline stages, as reported by StageError.
const (
	StageFetch   = "fetch"
	StageParse   = "parse"
	StageBuild   = "build"
	StageAlign   = "align"
	StageDerive  = "derive"
	StagePublish = "publish"
)

// StageError identifies the stage and endpoint a run failed in.
type StageError struct {
	Feed  string // empty for stages that span both feeds
	Stage string
	URL   string
	Err   error
}

func (e *StageError) Error() string {
	var b strings.Builder
	if e.Feed != "" {
		fmt.Fprintf(&b, "%s feed: ", e.Feed)
	}
	b.WriteString(e.Stage)
	if e.URL != "" {
		fmt.Fprintf(&b, " (%s)", e.URL)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *StageError) Unwrap() error { return e.Err }
