// Package export turns a selection of cataloged assets plus their
// crop parameters into output files, streaming progress snapshots to
// the consumer as it goes.
package export

import (
	"errors"

	"github.com/framecut/framecut-agent/internal/crop"
)

// ErrMissingSourceFile aborts an export run: the asset library could
// not supply the original file content. Already-produced files are
// left for the caller to handle.
var ErrMissingSourceFile = errors.New("source file unavailable")

// Record pairs a produced file with the crop parameter used. File is
// empty when cropping was skipped or the asset is not image-typed.
type Record struct {
	File      string         `json:"file,omitempty"`
	Parameter crop.Parameter `json:"parameter"`
}

// Snapshot is one progress emission of an export run. Snapshots are
// immutable: the records slice is copied per emit, so a consumer may
// hold one while the export continues.
//
// Err is set on the terminal emission of a failed run, in place of
// the final progress-1 snapshot.
type Snapshot struct {
	Records     []Record `json:"records"`
	Selection   []string `json:"selection"`
	AspectRatio float64  `json:"aspect_ratio"`
	Progress    float64  `json:"progress"`
	Err         error    `json:"-"`
}

// Done reports whether the snapshot is the successful final emission.
func (s Snapshot) Done() bool {
	return s.Err == nil && s.Progress >= 1
}
