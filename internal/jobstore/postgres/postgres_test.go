package postgres

import (
	"database/sql"
	"testing"
	"time"
)

// fakeScan plays back one row the way pgx would, leaving the error column NULL.
func fakeScan(dest ...any) error {
	*(dest[0].(*string)) = "row-id"
	*(dest[1].(*string)) = "abc123def456"
	*(dest[2].(*string)) = "https://example.com/"
	*(dest[3].(*string)) = "completed"
	*(dest[4].(*[]byte)) = []byte(`{"content":"body","title":"T"}`)
	*(dest[5].(*sql.NullString)) = sql.NullString{}
	now := time.Now()
	*(dest[6].(*time.Time)) = now
	*(dest[7].(**time.Time)) = &now
	return nil
}

func TestScanRowNullError(t *testing.T) {
	row, err := scanRow(fakeScan)
	if err != nil {
		t.Fatalf("scanRow: %v", err)
	}
	if row.Error != "" {
		t.Errorf("Error = %q, want empty for NULL column", row.Error)
	}
	if row.JobID != "abc123def456" {
		t.Errorf("JobID = %q", row.JobID)
	}
	if row.Result == nil || row.Result.Title != "T" {
		t.Errorf("Result = %+v, want decoded document", row.Result)
	}
	if row.CompletedAt.IsZero() {
		t.Error("CompletedAt not set from non-NULL column")
	}
}
