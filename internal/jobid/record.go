package jobid

import (
	"fmt"
	"strings"
	"time"

	"despatch/internal/services"
)

const (
	// Length is the fixed number of digits in a job id.
	Length = 10

	// TimestampLayout is the capture timestamp format stored in the journal
	// (dd/MM/yy HH:mm:ss).
	TimestampLayout = "02/01/06 15:04:05"
)

// Record is a scanned job id plus the moment it was captured.
type Record struct {
	ID         string
	CapturedAt time.Time
}

// New validates id and returns a record stamped with at, truncated to the
// journal's one second resolution.
func New(id string, at time.Time) (Record, error) {
	id = strings.TrimSpace(id)
	if err := Validate(id); err != nil {
		return Record{}, err
	}
	return Record{ID: id, CapturedAt: at.Truncate(time.Second)}, nil
}

// Validate reports whether id is a fixed-length numeric job id.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("%w: %q must be %d digits", services.ErrInvalidJobID, id, Length)
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return fmt.Errorf("%w: %q must be %d digits", services.ErrInvalidJobID, id, Length)
		}
	}
	return nil
}

// Same reports whether two records refer to the same job. Timestamps are
// ignored.
func (r Record) Same(other Record) bool {
	return r.ID == other.ID
}

// Timestamp returns the capture time in journal format.
func (r Record) Timestamp() string {
	return r.CapturedAt.Format(TimestampLayout)
}

// String renders the journal line without the trailing newline.
func (r Record) String() string {
	return r.ID + "\t" + r.Timestamp()
}

// MarshalText encodes the record as a journal line including the newline.
func (r Record) MarshalText() ([]byte, error) {
	return []byte(r.String() + "\n"), nil
}

// Parse decodes a single journal line. The line must contain exactly two
// tab-separated fields.
func Parse(line string) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, "\t")
	if len(fields) != 2 {
		return Record{}, fmt.Errorf("journal line %q: expected 2 tab separated fields, got %d", line, len(fields))
	}
	at, err := time.ParseInLocation(TimestampLayout, fields[1], time.Local)
	if err != nil {
		return Record{}, fmt.Errorf("journal line %q: parse timestamp: %w", line, err)
	}
	return Record{ID: fields[0], CapturedAt: at}, nil
}

// IDs strips timestamps, preserving order.
func IDs(records []Record) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	return ids
}

// Contains reports whether records already holds a record with id.
func Contains(records []Record, id string) bool {
	for _, rec := range records {
		if rec.ID == id {
			return true
		}
	}
	return false
}
