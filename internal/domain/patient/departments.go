package patient

// doctorOrder fixes the iteration order of the lookup table.
var doctorOrder = []string{"Dr. Johnson", "Dr. Brown", "Dr. Jones", "Dr. Smith", "Dr. Williams"}

var doctorDepartments = map[string]string{
	"Dr. Johnson":  "Orthopedics",
	"Dr. Brown":    "Neurology",
	"Dr. Jones":    "Oncology",
	"Dr. Smith":    "Cardiology",
	"Dr. Williams": "Pediatrics",
}

// Assignment pairs an attending doctor with the department it implies.
type Assignment struct {
	Doctor     string `json:"doctor"`
	Department string `json:"department"`
}

// Doctors returns the fixed doctor to department table.
func Doctors() []Assignment {
	out := make([]Assignment, 0, len(doctorOrder))
	for _, d := range doctorOrder {
		out = append(out, Assignment{Doctor: d, Department: doctorDepartments[d]})
	}
	return out
}

// Lookup returns the department of a doctor, or "" for an unknown doctor.
func Lookup(doctor string) string {
	return doctorDepartments[doctor]
}

// Departments is the department filter vocabulary: the table's value set.
func Departments() []string {
	out := make([]string, 0, len(doctorOrder))
	for _, d := range doctorOrder {
		out = append(out, doctorDepartments[d])
	}
	return out
}

// IsDepartment reports whether name is a valid filter value.
func IsDepartment(name string) bool {
	for _, d := range doctorDepartments {
		if d == name {
			return true
		}
	}
	return false
}
