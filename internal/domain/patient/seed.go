package patient

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SeedSource supplies the records every new session starts with. Sources
// are read once at startup.
type SeedSource interface {
	Load(ctx context.Context) ([]*Record, error)
}

// SeedFunc adapts a function to SeedSource.
type SeedFunc func(ctx context.Context) ([]*Record, error)

func (f SeedFunc) Load(ctx context.Context) ([]*Record, error) {
	return f(ctx)
}

// EmptySeed starts sessions with an empty store.
var EmptySeed SeedSource = SeedFunc(func(context.Context) ([]*Record, error) {
	return nil, nil
})

// FileSeed reads a JSON file in the bulk import format.
type FileSeed struct {
	Path string
}

func (f FileSeed) Load(_ context.Context) ([]*Record, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	records, err := ParseRecords(data)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", f.Path, err)
	}
	return records, nil
}

// seedColumnNames is the column layout shared by the SQL seed sources.
// Table patient_seed holds one row per record; seq fixes insertion order.
var seedColumnNames = []string{
	"mbi", "first_name", "last_name", "email", "phone", "address",
	"gender", "age", "race", "date_registered", "attending_doctor", "department",
	"heart_rate", "sbp", "dbp", "hba1c", "medical_history",
}

var seedQuery = "SELECT " + strings.Join(seedColumnNames, ", ") + " FROM patient_seed ORDER BY seq"

// seedTableDDL is accepted by both Postgres and SQLite.
const seedTableDDL = `CREATE TABLE IF NOT EXISTS patient_seed (
	seq              INTEGER PRIMARY KEY,
	mbi              TEXT NOT NULL,
	first_name       TEXT NOT NULL DEFAULT '',
	last_name        TEXT NOT NULL DEFAULT '',
	email            TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	address          TEXT NOT NULL DEFAULT '',
	gender           TEXT,
	age              DOUBLE PRECISION,
	race             TEXT,
	date_registered  TEXT NOT NULL DEFAULT '',
	attending_doctor TEXT NOT NULL DEFAULT '',
	department       TEXT NOT NULL DEFAULT '',
	heart_rate       DOUBLE PRECISION,
	sbp              DOUBLE PRECISION,
	dbp              DOUBLE PRECISION,
	hba1c            DOUBLE PRECISION,
	medical_history  TEXT NOT NULL DEFAULT ''
)`

// seedValues is the row written for r: seq followed by seedColumnNames.
// Measures that do not read as numbers are stored as NULL.
func seedValues(seq int, r *Record) []interface{} {
	var age interface{}
	if r.Age != nil {
		age = measureValue(*r.Age)
	}
	return []interface{}{
		seq, r.MBI, r.FirstName, r.LastName, r.Email, r.Phone, r.Address,
		optionalText(r.Gender), age, optionalText(r.Race),
		r.DateRegistered, r.AttendingDoctor, r.Department,
		measureValue(r.HeartRate), measureValue(r.BloodPressure.SBP),
		measureValue(r.BloodPressure.DBP), measureValue(r.HbA1c),
		r.MedicalHistory,
	}
}

func measureValue(m Measure) interface{} {
	if v, ok := m.Float(); ok {
		return v
	}
	return nil
}

func optionalText(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// seedRow is the scan target for one patient_seed row. Nullable columns
// scan into pointers.
type seedRow struct {
	mbi, firstName, lastName, email, phone, address string
	gender, race                                    *string
	age                                             *float64
	dateRegistered, doctor, department              string
	heartRate, sbp, dbp, hba1c                      *float64
	history                                         string
}

func (s *seedRow) targets() []interface{} {
	return []interface{}{
		&s.mbi, &s.firstName, &s.lastName, &s.email, &s.phone, &s.address,
		&s.gender, &s.age, &s.race, &s.dateRegistered, &s.doctor, &s.department,
		&s.heartRate, &s.sbp, &s.dbp, &s.hba1c, &s.history,
	}
}

func (s *seedRow) record() *Record {
	r := &Record{
		MBI:             s.mbi,
		FirstName:       s.firstName,
		LastName:        s.lastName,
		Email:           s.email,
		Phone:           s.phone,
		Address:         s.address,
		DateRegistered:  s.dateRegistered,
		AttendingDoctor: s.doctor,
		Department:      s.department,
		HeartRate:       optionalNumber(s.heartRate),
		BloodPressure: BloodPressure{
			SBP: optionalNumber(s.sbp),
			DBP: optionalNumber(s.dbp),
		},
		HbA1c:          optionalNumber(s.hba1c),
		MedicalHistory: s.history,
	}
	if s.gender != nil {
		r.Gender = *s.gender
	}
	if s.race != nil {
		r.Race = *s.race
	}
	if s.age != nil {
		r.Age = NumberPtr(*s.age)
	}
	return r
}

func optionalNumber(v *float64) Measure {
	if v == nil {
		return Measure{}
	}
	return Number(*v)
}
