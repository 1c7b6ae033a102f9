package permit

import "testing"

func TestFieldsRowAlignment(t *testing.T) {
	rec := Record{
		PermitNumber: "SOL-2025-001234",
		Address:      "1500 N CENTRAL AVE",
		Contractor:   "DESERT SUN SOLAR LLC",
		IssuedDate:   "2025-03-27",
		PermitType:   "Solar Residential",
		Status:       "Issued",
	}

	fields := Fields()
	row := rec.Row()

	if len(fields) != len(row) {
		t.Fatalf("Fields() has %d columns, Row() has %d", len(fields), len(row))
	}

	byName := map[string]string{
		"permit_number": rec.PermitNumber,
		"address":       rec.Address,
		"contractor":    rec.Contractor,
		"issued_date":   rec.IssuedDate,
		"permit_type":   rec.PermitType,
		"status":        rec.Status,
	}

	for i, name := range fields {
		if row[i] != byName[name] {
			t.Errorf("column %d (%s) = %q, want %q", i, name, row[i], byName[name])
		}
	}
}

func TestFieldsOrder(t *testing.T) {
	want := []string{"permit_number", "address", "contractor", "issued_date", "permit_type", "status"}
	got := Fields()

	if len(got) != len(want) {
		t.Fatalf("Fields() returned %d columns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Fields()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
