package jobid_test

import (
	"errors"
	"testing"
	"time"

	"despatch/internal/jobid"
	"despatch/internal/services"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"1234567890", true},
		{"0000000000", true},
		{"123456789", false},
		{"12345678901", false},
		{"12345A7890", false},
		{"", false},
	}
	for _, tt := range tests {
		err := jobid.Validate(tt.id)
		if tt.valid && err != nil {
			t.Fatalf("Validate(%q) returned %v", tt.id, err)
		}
		if !tt.valid && !errors.Is(err, services.ErrInvalidJobID) {
			t.Fatalf("Validate(%q) = %v, want ErrInvalidJobID", tt.id, err)
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	at := time.Date(2024, time.March, 7, 9, 5, 3, 0, time.Local)
	rec, err := jobid.New("1234567890", at)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	line := rec.String()
	if line != "1234567890\t07/03/24 09:05:03" {
		t.Fatalf("unexpected line %q", line)
	}
	parsed, err := jobid.Parse(line + "\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.ID != rec.ID || parsed.Timestamp() != rec.Timestamp() {
		t.Fatalf("round trip mismatch: %+v vs %+v", parsed, rec)
	}
}

func TestParseRejectsMalformedLines(t *testing.T) {
	for _, line := range []string{
		"1234567890",
		"1234567890\t07/03/24 09:05:03\textra",
		"1234567890\tnot-a-time",
	} {
		if _, err := jobid.Parse(line); err == nil {
			t.Fatalf("expected error for %q", line)
		}
	}
}

func TestSameIgnoresTimestamp(t *testing.T) {
	a := jobid.Record{ID: "1234567890", CapturedAt: time.Unix(0, 0)}
	b := jobid.Record{ID: "1234567890", CapturedAt: time.Unix(1000, 0)}
	if !a.Same(b) {
		t.Fatal("expected records with equal ids to be the same")
	}
	if !jobid.Contains([]jobid.Record{a}, b.ID) {
		t.Fatal("expected Contains to match by id")
	}
	ids := jobid.IDs([]jobid.Record{a, {ID: "0987654321"}})
	if len(ids) != 2 || ids[0] != "1234567890" || ids[1] != "0987654321" {
		t.Fatalf("unexpected ids %v", ids)
	}
}
