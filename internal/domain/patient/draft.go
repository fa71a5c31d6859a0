package patient

import (
	"fmt"
	"sort"
)

// Draft is a record under manual entry. Every value is the raw text the
// caller typed; nothing is converted until the draft is committed.
type Draft struct {
	MBI             string             `json:"mbi"`
	FirstName       string             `json:"first_name"`
	LastName        string             `json:"last_name"`
	Email           string             `json:"email"`
	Phone           string             `json:"phone"`
	Address         string             `json:"address"`
	DateRegistered  string             `json:"date_registered"`
	AttendingDoctor string             `json:"attending_doctor"`
	Department      string             `json:"department"`
	HeartRate       string             `json:"heart_rate"`
	BloodPressure   DraftBloodPressure `json:"blood_pressure"`
	HbA1c           string             `json:"HbA1c"`
	MedicalHistory  string             `json:"medical_history"`
}

type DraftBloodPressure struct {
	SBP string `json:"sbp"`
	DBP string `json:"dbp"`
}

// Result re-evaluates completeness against the current field values.
func (d *Draft) Result() Result {
	return Validate(*d)
}

// Set changes one field and returns the updated verdict. Setting the
// attending doctor always re-derives the department, replacing whatever it
// held before.
func (d *Draft) Set(field, value string) (Result, error) {
	ptr, err := d.fieldPtr(field)
	if err != nil {
		return d.Result(), err
	}
	*ptr = value
	if field == FieldAttendingDoctor {
		d.Department = Lookup(value)
	}
	return d.Result(), nil
}

// Apply sets several fields at once. Nothing is changed when any field name
// is rejected. The attending doctor is applied last so the derived
// department always reflects the final doctor.
func (d *Draft) Apply(changes map[string]string) (Result, error) {
	names := make([]string, 0, len(changes))
	for name := range changes {
		if _, err := d.fieldPtr(name); err != nil {
			return d.Result(), err
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == FieldAttendingDoctor || names[j] == FieldAttendingDoctor {
			return names[j] == FieldAttendingDoctor && names[i] != FieldAttendingDoctor
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		if _, err := d.Set(name, changes[name]); err != nil {
			return d.Result(), err
		}
	}
	return d.Result(), nil
}

func (d *Draft) fieldPtr(field string) (*string, error) {
	switch field {
	case FieldMBI:
		return &d.MBI, nil
	case FieldFirstName:
		return &d.FirstName, nil
	case FieldLastName:
		return &d.LastName, nil
	case FieldEmail:
		return &d.Email, nil
	case FieldPhone:
		return &d.Phone, nil
	case FieldAddress:
		return &d.Address, nil
	case FieldDateRegistered:
		return &d.DateRegistered, nil
	case FieldAttendingDoctor:
		return &d.AttendingDoctor, nil
	case FieldHeartRate:
		return &d.HeartRate, nil
	case FieldSBP:
		return &d.BloodPressure.SBP, nil
	case FieldDBP:
		return &d.BloodPressure.DBP, nil
	case FieldHbA1c:
		return &d.HbA1c, nil
	case FieldMedicalHistory:
		return &d.MedicalHistory, nil
	case FieldDepartment:
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyField, field)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
}

// ToRecord converts a complete draft into a record. The department is taken
// from the lookup table, never from the draft.
func (d *Draft) ToRecord() (*Record, error) {
	if err := d.Result().Err(); err != nil {
		return nil, err
	}
	return &Record{
		MBI:             d.MBI,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Email:           d.Email,
		Phone:           d.Phone,
		Address:         d.Address,
		DateRegistered:  d.DateRegistered,
		AttendingDoctor: d.AttendingDoctor,
		Department:      Lookup(d.AttendingDoctor),
		HeartRate:       Text(d.HeartRate),
		BloodPressure: BloodPressure{
			SBP: Text(d.BloodPressure.SBP),
			DBP: Text(d.BloodPressure.DBP),
		},
		HbA1c:          Text(d.HbA1c),
		MedicalHistory: d.MedicalHistory,
	}, nil
}
