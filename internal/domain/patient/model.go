package patient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is one patient entry. The JSON names are the bulk import wire names.
// Records are never edited in place; replacing one means remove + add.
type Record struct {
	MBI             string        `json:"mbi" yaml:"mbi"`
	FirstName       string        `json:"first_name" yaml:"first_name"`
	LastName        string        `json:"last_name" yaml:"last_name"`
	Email           string        `json:"email" yaml:"email"`
	Phone           string        `json:"phone" yaml:"phone"`
	Address         string        `json:"address" yaml:"address"`
	Gender          string        `json:"gender,omitempty" yaml:"gender,omitempty"`
	Age             *Measure      `json:"age,omitempty" yaml:"age,omitempty"`
	Race            string        `json:"race,omitempty" yaml:"race,omitempty"`
	DateRegistered  string        `json:"date_registered" yaml:"date_registered"`
	AttendingDoctor string        `json:"attending_doctor" yaml:"attending_doctor"`
	Department      string        `json:"department" yaml:"department"`
	HeartRate       Measure       `json:"heart_rate" yaml:"heart_rate"`
	BloodPressure   BloodPressure `json:"blood_pressure" yaml:"blood_pressure"`
	HbA1c           Measure       `json:"HbA1c" yaml:"HbA1c"`
	MedicalHistory  string        `json:"medical_history" yaml:"medical_history"`
}

// BloodPressure holds systolic and diastolic readings.
type BloodPressure struct {
	SBP Measure `json:"sbp" yaml:"sbp"`
	DBP Measure `json:"dbp" yaml:"dbp"`
}

// UnmarshalJSON decodes a bulk payload element. Payloads are not schema
// checked: any scalar is accepted for a text attribute and kept as its
// text, and a blood_pressure that is not an object reads as missing.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w struct {
		MBI             scalarText    `json:"mbi"`
		FirstName       scalarText    `json:"first_name"`
		LastName        scalarText    `json:"last_name"`
		Email           scalarText    `json:"email"`
		Phone           scalarText    `json:"phone"`
		Address         scalarText    `json:"address"`
		Gender          scalarText    `json:"gender"`
		Age             *Measure      `json:"age"`
		Race            scalarText    `json:"race"`
		DateRegistered  scalarText    `json:"date_registered"`
		AttendingDoctor scalarText    `json:"attending_doctor"`
		Department      scalarText    `json:"department"`
		HeartRate       Measure       `json:"heart_rate"`
		BloodPressure   BloodPressure `json:"blood_pressure"`
		HbA1c           Measure       `json:"HbA1c"`
		MedicalHistory  scalarText    `json:"medical_history"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Record{
		MBI:             string(w.MBI),
		FirstName:       string(w.FirstName),
		LastName:        string(w.LastName),
		Email:           string(w.Email),
		Phone:           string(w.Phone),
		Address:         string(w.Address),
		Gender:          string(w.Gender),
		Age:             w.Age,
		Race:            string(w.Race),
		DateRegistered:  string(w.DateRegistered),
		AttendingDoctor: string(w.AttendingDoctor),
		Department:      string(w.Department),
		HeartRate:       w.HeartRate,
		BloodPressure:   w.BloodPressure,
		HbA1c:           w.HbA1c,
		MedicalHistory:  string(w.MedicalHistory),
	}
	return nil
}

func (bp *BloodPressure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*bp = BloodPressure{}
		return nil
	}
	type plain BloodPressure
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode blood pressure: %w", err)
	}
	*bp = BloodPressure(p)
	return nil
}

// scalarText is a text attribute as it arrives in a payload: a number or
// boolean keeps its JSON spelling and null reads as empty.
type scalarText string

func (t *scalarText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode text: %w", err)
		}
		*t = scalarText(s)
	default:
		*t = scalarText(data)
	}
	return nil
}

// MeasureKind tells how a Measure arrived.
type MeasureKind uint8

const (
	MeasureMissing MeasureKind = iota
	MeasureNumber
	MeasureText
)

// Measure is a scalar attribute value. Seed and imported data carry JSON
// numbers while manually entered drafts carry text, and the sort order
// depends on which one a record holds.
type Measure struct {
	kind MeasureKind
	num  float64
	text string
}

// Number returns a numeric Measure.
func Number(v float64) Measure {
	return Measure{kind: MeasureNumber, num: v}
}

// Text returns a textual Measure. Text values are kept verbatim.
func Text(s string) Measure {
	return Measure{kind: MeasureText, text: s}
}

// NumberPtr is a convenience for optional fields such as Age.
func NumberPtr(v float64) *Measure {
	m := Number(v)
	return &m
}

func (m Measure) Kind() MeasureKind { return m.kind }

func (m Measure) IsMissing() bool { return m.kind == MeasureMissing }

// IsText reports whether the value compares as a string. A missing value is
// coerced to the empty string and therefore counts as text.
func (m Measure) IsText() bool { return m.kind != MeasureNumber }

// String renders the value the way it is shown and searched.
func (m Measure) String() string {
	switch m.kind {
	case MeasureNumber:
		return strconv.FormatFloat(m.num, 'f', -1, 64)
	case MeasureText:
		return m.text
	default:
		return ""
	}
}

// Float coerces the value to a number. Missing and non-numeric text coerce
// to zero; ok is false in that case.
func (m Measure) Float() (float64, bool) {
	switch m.kind {
	case MeasureNumber:
		return m.num, true
	case MeasureText:
		s := strings.TrimSpace(m.text)
		if s == "" {
			return 0, false
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

func (m Measure) MarshalJSON() ([]byte, error) {
	switch m.kind {
	case MeasureNumber:
		return []byte(strconv.FormatFloat(m.num, 'f', -1, 64)), nil
	case MeasureText:
		return json.Marshal(m.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts numbers and strings as-is. Other JSON values are kept
// as their raw text since bulk imports are not schema checked.
func (m *Measure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*m = Measure{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode measure: %w", err)
		}
		*m = Text(s)
	default:
		if v, err := strconv.ParseFloat(string(data), 64); err == nil {
			*m = Number(v)
			return nil
		}
		*m = Text(string(data))
	}
	return nil
}

func (m Measure) MarshalYAML() (interface{}, error) {
	switch m.kind {
	case MeasureNumber:
		return m.num, nil
	case MeasureText:
		return m.text, nil
	default:
		return nil, nil
	}
}
