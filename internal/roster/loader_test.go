package roster

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadBasicRoster(t *testing.T) {
	csv := `patient_id,patient_name,phone_number,email
p1,"Smith, John",205-555-1234,john@example.com
p2,Jane Smith,(205) 555-9999,
`
	records, err := Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	if records[0].ID != "p1" || records[0].Name != "Smith, John" || records[0].Phone != "205-555-1234" {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[0].Email != "john@example.com" {
		t.Errorf("email = %q", records[0].Email)
	}
	if len(records[0].Notes) != 0 {
		t.Errorf("record 0 notes = %v, want none", records[0].Notes)
	}
}

func TestLoadHeaderAliases(t *testing.T) {
	csv := "MRN,Full_Name,Cell\nm1,John Smith,205-555-1234\n"
	records, err := Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].ID != "m1" || records[0].Name != "John Smith" || records[0].Phone != "205-555-1234" {
		t.Errorf("record = %+v", records[0])
	}
}

func TestLoadSanityFlags(t *testing.T) {
	csv := `id,name,phone,email
p1,,205-555-1234,
p2,Jane Smith,,not-an-email
`
	records, err := Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !hasNote(records[0].Notes, "missing name") {
		t.Errorf("record 0 notes = %v, want missing name", records[0].Notes)
	}
	if !hasNote(records[1].Notes, "missing phone") {
		t.Errorf("record 1 notes = %v, want missing phone", records[1].Notes)
	}
	if !hasNote(records[1].Notes, "malformed email") {
		t.Errorf("record 1 notes = %v, want malformed email", records[1].Notes)
	}
}

func TestLoadSynthesizesMissingIDs(t *testing.T) {
	csv := "name,phone\nJohn Smith,205-555-1234\nJane Smith,205-555-9999\n"
	records, err := Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].ID != "row-2" || records[1].ID != "row-3" {
		t.Errorf("ids = %q, %q, want row-2, row-3", records[0].ID, records[1].ID)
	}
}

func TestLoadNoUsableColumns(t *testing.T) {
	csv := "foo,bar\n1,2\n"
	_, err := Load(strings.NewReader(csv))
	if !errors.Is(err, ErrNoUsableColumns) {
		t.Fatalf("err = %v, want ErrNoUsableColumns", err)
	}
}

func TestLoadEmptyRoster(t *testing.T) {
	if _, err := Load(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty roster")
	}
}

func TestLoadRaggedRows(t *testing.T) {
	csv := "id,name,phone\np1,John Smith\n"
	records, err := Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("short rows should not fail the load: %v", err)
	}
	if records[0].Phone != "" {
		t.Errorf("phone = %q, want empty", records[0].Phone)
	}
	if !hasNote(records[0].Notes, "missing phone") {
		t.Errorf("notes = %v, want missing phone", records[0].Notes)
	}
}

func hasNote(notes []string, want string) bool {
	for _, n := range notes {
		if n == want {
			return true
		}
	}
	return false
}
