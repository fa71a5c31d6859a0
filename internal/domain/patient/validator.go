package patient

import "regexp"

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

const (
	reasonRequired     = "required"
	reasonInvalidEmail = "invalid email format"
)

// Result is the completeness verdict for a draft.
type Result struct {
	Complete bool         `json:"complete"`
	Issues   []FieldIssue `json:"issues,omitempty"`
}

// Err returns a *ValidationError for an incomplete result and nil otherwise.
func (r Result) Err() error {
	if r.Complete {
		return nil
	}
	return &ValidationError{Issues: r.Issues}
}

// Validate decides whether a draft is complete. Department is derived from
// the doctor and is not part of the check.
func Validate(d Draft) Result {
	var issues []FieldIssue
	require := func(field, value string) {
		if value == "" {
			issues = append(issues, FieldIssue{Field: field, Reason: reasonRequired})
		}
	}

	require(FieldMBI, d.MBI)
	require(FieldFirstName, d.FirstName)
	require(FieldLastName, d.LastName)
	if d.Email == "" {
		issues = append(issues, FieldIssue{Field: FieldEmail, Reason: reasonRequired})
	} else if !emailPattern.MatchString(d.Email) {
		issues = append(issues, FieldIssue{Field: FieldEmail, Reason: reasonInvalidEmail})
	}
	require(FieldPhone, d.Phone)
	require(FieldAddress, d.Address)
	require(FieldDateRegistered, d.DateRegistered)
	require(FieldAttendingDoctor, d.AttendingDoctor)
	require(FieldHeartRate, d.HeartRate)
	require(FieldSBP, d.BloodPressure.SBP)
	require(FieldDBP, d.BloodPressure.DBP)
	require(FieldHbA1c, d.HbA1c)
	require(FieldMedicalHistory, d.MedicalHistory)

	return Result{Complete: len(issues) == 0, Issues: issues}
}
