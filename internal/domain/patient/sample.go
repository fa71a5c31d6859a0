package patient

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Sample formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// SampleRecords returns the example bulk payload offered for download.
func SampleRecords() []*Record {
	return []*Record{
		{
			MBI:             "3AT9VX8RW56",
			FirstName:       "Lydia",
			LastName:        "Foster",
			Email:           "lfoster78@aol.com",
			Phone:           "555-213-5094",
			Address:         "45 Pine Street",
			Gender:          "Female",
			Age:             NumberPtr(34),
			Race:            "Caucasian",
			DateRegistered:  "2/1/2025",
			AttendingDoctor: "Dr. Williams",
			Department:      "Pediatrics",
			HeartRate:       Number(72),
			BloodPressure:   BloodPressure{SBP: Number(118), DBP: Number(77)},
			HbA1c:           Number(5.2),
			MedicalHistory:  "Asthma",
		},
	}
}

// SampleFileName is the suggested download name for a format.
func SampleFileName(format string) string {
	if format == FormatYAML {
		return "sample-patients.yaml"
	}
	return "sample-patients.json"
}

// WriteSample writes the sample payload as indented JSON or as YAML.
func WriteSample(w io.Writer, format string) error {
	records := SampleRecords()
	switch format {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode sample: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported sample format %q", format)
}
