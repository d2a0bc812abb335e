// Package roster loads patient rosters exported from external systems
// as CSV. Rows are never rejected: data problems become sanity flags on
// the record so the matching engine can route them to review.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/patientexplorer/patientexplorer/pkg/models"
)

// ErrNoUsableColumns indicates a roster whose header has neither a name
// nor a phone column.
var ErrNoUsableColumns = errors.New("roster has no name or phone column")

// Header aliases seen across practice-management exports.
var (
	idAliases    = []string{"id", "patient_id", "patientid", "mrn", "record_id"}
	nameAliases  = []string{"name", "patient_name", "full_name", "patient"}
	phoneAliases = []string{"phone", "phone_number", "cell", "cell_phone", "mobile", "primary_phone"}
	emailAliases = []string{"email", "email_address", "e-mail"}
)

// Load reads a CSV roster into source records. The first row is the
// header; columns are located by alias, case-insensitively. Rows with
// missing or malformed fields are kept and flagged in Notes.
func Load(r io.Reader) ([]models.SourceRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty roster")
	}
	if err != nil {
		return nil, fmt.Errorf("read roster header: %w", err)
	}

	idCol := findColumn(header, idAliases)
	nameCol := findColumn(header, nameAliases)
	phoneCol := findColumn(header, phoneAliases)
	emailCol := findColumn(header, emailAliases)

	if nameCol < 0 && phoneCol < 0 {
		return nil, ErrNoUsableColumns
	}

	var records []models.SourceRecord
	row := 1
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster row %d: %w", row, err)
		}
		row++

		rec := models.SourceRecord{
			ID:    cell(fields, idCol),
			Name:  cell(fields, nameCol),
			Phone: cell(fields, phoneCol),
			Email: cell(fields, emailCol),
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("row-%d", row)
		}
		rec.Notes = sanityFlags(rec)
		records = append(records, rec)
	}
	return records, nil
}

func findColumn(header []string, aliases []string) int {
	for i, col := range header {
		normalized := strings.ToLower(strings.TrimSpace(col))
		for _, alias := range aliases {
			if normalized == alias {
				return i
			}
		}
	}
	return -1
}

func cell(fields []string, col int) string {
	if col < 0 || col >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[col])
}

func sanityFlags(rec models.SourceRecord) []string {
	var notes []string
	if rec.Name == "" {
		notes = append(notes, "missing name")
	}
	if rec.Phone == "" {
		notes = append(notes, "missing phone")
	}
	if rec.Email != "" && !strings.Contains(rec.Email, "@") {
		notes = append(notes, "malformed email")
	}
	return notes
}
