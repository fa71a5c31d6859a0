package patient

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteSample_JSONRoundTripsThroughImport(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSample(&buf, FormatJSON); err != nil {
		t.Fatalf("write: %v", err)
	}
	records, err := ParseRecords(buf.Bytes())
	if err != nil {
		t.Fatalf("sample is not importable: %v", err)
	}
	if len(records) != len(SampleRecords()) {
		t.Fatalf("parsed %d records, want %d", len(records), len(SampleRecords()))
	}
	r := records[0]
	if r.FirstName != "Lydia" || r.Department != Lookup(r.AttendingDoctor) {
		t.Errorf("unexpected sample record %+v", r)
	}
	if r.HeartRate.Kind() != MeasureNumber || r.Age == nil {
		t.Errorf("sample measures should be numbers: %+v", r)
	}
}

func TestWriteSample_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSample(&buf, FormatYAML); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"first_name: Lydia", "heart_rate: 72", "sbp: 118"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSample_UnknownFormat(t *testing.T) {
	if err := WriteSample(&bytes.Buffer{}, "xml"); err == nil {
		t.Error("expected an error for xml")
	}
}

func TestSampleFileName(t *testing.T) {
	if got := SampleFileName(FormatYAML); got != "sample-patients.yaml" {
		t.Errorf("yaml name = %q", got)
	}
	if got := SampleFileName(""); got != "sample-patients.json" {
		t.Errorf("default name = %q", got)
	}
}
