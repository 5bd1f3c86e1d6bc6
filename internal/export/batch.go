package export

import (
	"strconv"
	"time"
)

const (
	// FileStampLayout is the ddMMyyyy_HHmmss stamp shared by payload and marker names.
	FileStampLayout = "02012006_150405"
	// RunDateLayout is the ddMMyyyy RUNDATE written into the marker.
	RunDateLayout = "02012006"

	PayloadExt = ".DAT"
	MarkerExt  = ".EOT"
)

// Batch is the ephemeral transfer artifact for one submission attempt.
type Batch struct {
	IDs         []string
	User        string
	StampedAt   time.Time
	PayloadPath string
	MarkerPath  string
}

// NewBatch names the payload and marker for ids from one timestamp. The ids
// slice is copied.
func NewBatch(payloadPrefix, markerPrefix string, ids []string, user string, at time.Time) Batch {
	stamp := at.Format(FileStampLayout)
	return Batch{
		IDs:         append([]string(nil), ids...),
		User:        user,
		StampedAt:   at,
		PayloadPath: payloadPrefix + stamp + PayloadExt,
		MarkerPath:  markerPrefix + stamp + MarkerExt,
	}
}

// PayloadLines returns the payload body, one id per line.
func (b Batch) PayloadLines() []string {
	return b.IDs
}

// MarkerLines returns the three marker lines.
func (b Batch) MarkerLines() []string {
	return []string{
		"RUNVOL=" + strconv.Itoa(len(b.IDs)),
		"USER=" + b.User,
		"RUNDATE=" + b.StampedAt.Format(RunDateLayout),
	}
}
