package patient

import (
	"errors"
	"testing"
)

func hasIssue(res Result, field, reason string) bool {
	for _, is := range res.Issues {
		if is.Field == field && is.Reason == reason {
			return true
		}
	}
	return false
}

func TestValidate_EmptyDraftListsEveryRequiredField(t *testing.T) {
	res := Validate(Draft{})
	if res.Complete {
		t.Fatal("empty draft must not be complete")
	}
	for _, f := range []string{FieldMBI, FieldFirstName, FieldLastName, FieldEmail, FieldPhone,
		FieldAddress, FieldDateRegistered, FieldAttendingDoctor, FieldHeartRate, FieldSBP,
		FieldDBP, FieldHbA1c, FieldMedicalHistory} {
		if !hasIssue(res, f, reasonRequired) {
			t.Errorf("missing required issue for %s", f)
		}
	}
	if hasIssue(res, FieldDepartment, reasonRequired) {
		t.Error("department is derived and must not be required")
	}
}

func TestValidate_EmailScenario(t *testing.T) {
	changes := completeDraft()
	delete(changes, FieldEmail)
	var d Draft
	res, err := d.Apply(changes)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Complete || !hasIssue(res, FieldEmail, reasonRequired) {
		t.Fatalf("draft without email: %+v", res)
	}

	res, _ = d.Set(FieldEmail, "bad-format")
	if res.Complete || !hasIssue(res, FieldEmail, reasonInvalidEmail) {
		t.Fatalf("draft with bad email: %+v", res)
	}

	res, _ = d.Set(FieldEmail, "a@b.co")
	if !res.Complete {
		t.Fatalf("draft with valid email should be complete: %+v", res)
	}
}

func TestValidate_EmailPattern(t *testing.T) {
	tests := map[string]bool{
		"a@b.co":          true,
		"first.last@x.io": true,
		"a@b":             false,
		"@b.co":           false,
		"a b@c.d":         true,
		"plain":           false,
	}
	for email, want := range tests {
		d := Draft{Email: email}
		got := !hasIssue(Validate(d), FieldEmail, reasonInvalidEmail)
		if got != want {
			t.Errorf("email %q valid = %v, want %v", email, got, want)
		}
	}
}

func TestDraft_DoctorDerivesDepartment(t *testing.T) {
	d := Draft{Department: "Manual"}
	if _, err := d.Set(FieldAttendingDoctor, "Dr. Johnson"); err != nil {
		t.Fatalf("set doctor: %v", err)
	}
	if d.Department != "Orthopedics" {
		t.Errorf("department = %q, want Orthopedics", d.Department)
	}

	_, _ = d.Set(FieldAttendingDoctor, "Dr. Nobody")
	if d.Department != "" {
		t.Errorf("unknown doctor should clear department, got %q", d.Department)
	}
}

func TestDraft_DepartmentIsReadOnly(t *testing.T) {
	var d Draft
	_, err := d.Set(FieldDepartment, "Cardiology")
	if !errors.Is(err, ErrReadOnlyField) {
		t.Fatalf("expected ErrReadOnlyField, got %v", err)
	}
	if _, err := d.Set("shoe_size", "9"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestDraft_ApplyIsAllOrNothing(t *testing.T) {
	var d Draft
	_, err := d.Apply(map[string]string{FieldFirstName: "Ann", FieldDepartment: "Oncology"})
	if !errors.Is(err, ErrReadOnlyField) {
		t.Fatalf("expected ErrReadOnlyField, got %v", err)
	}
	if d.FirstName != "" {
		t.Errorf("no field should change on rejection, first_name = %q", d.FirstName)
	}
}

func TestDraft_ToRecord(t *testing.T) {
	var d Draft
	if _, err := d.ToRecord(); err == nil {
		t.Fatal("incomplete draft must not convert")
	} else {
		var verr *ValidationError
		if !errors.As(err, &verr) || len(verr.Issues) == 0 {
			t.Fatalf("expected *ValidationError with issues, got %v", err)
		}
	}

	if _, err := d.Apply(completeDraft()); err != nil {
		t.Fatal(err)
	}
	r, err := d.ToRecord()
	if err != nil {
		t.Fatalf("ToRecord: %v", err)
	}
	if r.Department != "Orthopedics" {
		t.Errorf("department = %q, want Orthopedics", r.Department)
	}
	if r.HeartRate.Kind() != MeasureText || r.HeartRate.String() != "80" {
		t.Errorf("manually entered vitals stay text, got %+v", r.HeartRate)
	}
}
