package patient

// Field names. They double as sort keys and draft field names.
const (
	FieldMBI             = "mbi"
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldAddress         = "address"
	FieldGender          = "gender"
	FieldAge             = "age"
	FieldRace            = "race"
	FieldDateRegistered  = "date_registered"
	FieldAttendingDoctor = "attending_doctor"
	FieldDepartment      = "department"
	FieldHeartRate       = "heart_rate"
	FieldSBP             = "blood_pressure.sbp"
	FieldDBP             = "blood_pressure.dbp"
	FieldHbA1c           = "HbA1c"
	FieldMedicalHistory  = "medical_history"
)

var recordFields = []string{
	FieldMBI, FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldAddress,
	FieldGender, FieldAge, FieldRace, FieldDateRegistered, FieldAttendingDoctor,
	FieldDepartment, FieldHeartRate, FieldSBP, FieldDBP, FieldHbA1c, FieldMedicalHistory,
}

// Field is one named attribute value of a record.
type Field struct {
	Name  string
	Value Measure
}

// FieldNames lists every record attribute in declaration order.
func FieldNames() []string {
	out := make([]string, len(recordFields))
	copy(out, recordFields)
	return out
}

// IsField reports whether name is a record attribute (and thus a sort key).
func IsField(name string) bool {
	for _, f := range recordFields {
		if f == name {
			return true
		}
	}
	return false
}

// Fields enumerates every attribute of the record, nested blood pressure
// values included. Absent optional attributes are omitted.
func (r *Record) Fields() []Field {
	out := make([]Field, 0, len(recordFields))
	for _, name := range recordFields {
		if v, ok := r.Field(name); ok {
			out = append(out, Field{Name: name, Value: v})
		}
	}
	return out
}

// Field returns a single attribute. ok is false for unknown names and for
// optional attributes the record does not carry.
func (r *Record) Field(name string) (Measure, bool) {
	switch name {
	case FieldMBI:
		return Text(r.MBI), true
	case FieldFirstName:
		return Text(r.FirstName), true
	case FieldLastName:
		return Text(r.LastName), true
	case FieldEmail:
		return Text(r.Email), true
	case FieldPhone:
		return Text(r.Phone), true
	case FieldAddress:
		return Text(r.Address), true
	case FieldGender:
		return Text(r.Gender), r.Gender != ""
	case FieldAge:
		if r.Age == nil {
			return Measure{}, false
		}
		return *r.Age, true
	case FieldRace:
		return Text(r.Race), r.Race != ""
	case FieldDateRegistered:
		return Text(r.DateRegistered), true
	case FieldAttendingDoctor:
		return Text(r.AttendingDoctor), true
	case FieldDepartment:
		return Text(r.Department), true
	case FieldHeartRate:
		return r.HeartRate, true
	case FieldSBP:
		return r.BloodPressure.SBP, true
	case FieldDBP:
		return r.BloodPressure.DBP, true
	case FieldHbA1c:
		return r.HbA1c, true
	case FieldMedicalHistory:
		return Text(r.MedicalHistory), true
	}
	return Measure{}, false
}
