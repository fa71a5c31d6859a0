package patient

import "testing"

func newRecord(mbi, first, dept string) *Record {
	return &Record{
		MBI:             mbi,
		FirstName:       first,
		LastName:        "Test",
		Email:           first + "@example.com",
		Department:      dept,
		AttendingDoctor: "Dr. Test",
		HeartRate:       Number(70),
	}
}

func keys(records []*Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.MBI
	}
	return out
}

func assertKeys(t *testing.T, got []*Record, want ...string) {
	t.Helper()
	g := keys(got)
	if len(g) != len(want) {
		t.Fatalf("keys = %v, want %v", g, want)
	}
	for i := range g {
		if g[i] != want[i] {
			t.Fatalf("keys = %v, want %v", g, want)
		}
	}
}

// completeDraft fills every required field.
func completeDraft() map[string]string {
	return map[string]string{
		FieldMBI:             "9ZZ1AA2BB33",
		FieldFirstName:       "Nora",
		FieldLastName:        "Quinn",
		FieldEmail:           "a@b.co",
		FieldPhone:           "555-0100",
		FieldAddress:         "1 Main St",
		FieldDateRegistered:  "4/1/2025",
		FieldAttendingDoctor: "Dr. Johnson",
		FieldHeartRate:       "80",
		FieldSBP:             "120",
		FieldDBP:             "80",
		FieldHbA1c:           "5.4",
		FieldMedicalHistory:  "None",
	}
}
