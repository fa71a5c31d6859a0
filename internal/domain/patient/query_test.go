package patient

import (
	"reflect"
	"testing"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

func fixture() []*Record {
	return []*Record{
		newRecord("P1", "Lydia", "Pediatrics"),
		newRecord("C1", "marcus", "Cardiology"),
		newRecord("O1", "Elena", "Oncology"),
		newRecord("C2", "Ángel", "Cardiology"),
		newRecord("N1", "grace", "Neurology"),
	}
}

func TestView_ScenarioFilterExcludesOtherDepartments(t *testing.T) {
	records := []*Record{newRecord("P1", "Lydia", "Pediatrics")}
	got := View(records, Query{Departments: []string{"Cardiology"}, Sort: DefaultSort()})
	if len(got) != 0 {
		t.Fatalf("expected empty view, got %v", keys(got))
	}
}

func TestView_FilterIsIdempotent(t *testing.T) {
	q := Query{Departments: []string{"Cardiology", "Oncology"}, Sort: DefaultSort()}
	once := View(fixture(), q)
	twice := View(once, q)
	if !reflect.DeepEqual(keys(once), keys(twice)) {
		t.Errorf("filter not idempotent: %v vs %v", keys(once), keys(twice))
	}
	assertKeys(t, once, "C2", "O1", "C1")
}

func TestView_EmptyFilterIsIdentity(t *testing.T) {
	got := View(fixture(), Query{})
	assertKeys(t, got, "P1", "C1", "O1", "C2", "N1")
}

func TestView_SearchIsMonotone(t *testing.T) {
	all := NewKeySet(keys(View(fixture(), Query{Sort: DefaultSort()}))...)
	for _, term := range []string{"", "a", "CARDIO", "example.com", "70", "zzz", "ángel"} {
		for _, r := range View(fixture(), Query{Search: term, Sort: DefaultSort()}) {
			if !all.Has(r.MBI) {
				t.Errorf("search %q returned %s outside the unfiltered view", term, r.MBI)
			}
		}
	}
}

func TestView_SearchMatchesAnyFieldCaseInsensitively(t *testing.T) {
	tests := []struct {
		term string
		want []string
	}{
		{"MARCUS", []string{"C1"}},
		{"neuro", []string{"N1"}},
		{"p1", []string{"P1"}},
		{"ÁNGEL", []string{"C2"}},
		{"nobody", nil},
	}
	for _, tt := range tests {
		got := View(fixture(), Query{Search: tt.term})
		assertKeys(t, got, tt.want...)
	}
}

func TestView_SearchCoversNumbersAndNestedValues(t *testing.T) {
	r := newRecord("V1", "Vic", "Oncology")
	r.BloodPressure = BloodPressure{SBP: Number(137), DBP: Number(85)}
	records := append(fixture(), r)
	assertKeys(t, View(records, Query{Search: "137"}), "V1")
}

func TestView_SortIsLocaleAware(t *testing.T) {
	got := View(fixture(), Query{Sort: SortConfig{Key: FieldFirstName, Direction: Ascending}})
	assertKeys(t, got, "C2", "O1", "N1", "P1", "C1")

	got = View(fixture(), Query{Sort: SortConfig{Key: FieldFirstName, Direction: Descending}})
	assertKeys(t, got, "C1", "P1", "N1", "O1", "C2")
}

func TestView_SortNumbersNumerically(t *testing.T) {
	a := newRecord("A", "a", "Oncology")
	a.HeartRate = Number(100)
	b := newRecord("B", "b", "Oncology")
	b.HeartRate = Number(9)
	c := newRecord("C", "c", "Oncology")
	c.HeartRate = Measure{}

	got := View([]*Record{a, b, c}, Query{Sort: SortConfig{Key: FieldHeartRate, Direction: Ascending}})
	assertKeys(t, got, "C", "B", "A")
}

func TestView_TwoTextMeasuresCompareAsStrings(t *testing.T) {
	a := newRecord("A", "a", "Oncology")
	a.HeartRate = Text("100")
	b := newRecord("B", "b", "Oncology")
	b.HeartRate = Text("9")

	got := View([]*Record{b, a}, Query{Sort: SortConfig{Key: FieldHeartRate, Direction: Ascending}})
	assertKeys(t, got, "A", "B")
}

func TestView_MixedTextAndNumberCompareNumerically(t *testing.T) {
	a := newRecord("A", "a", "Oncology")
	a.HeartRate = Text("100")
	b := newRecord("B", "b", "Oncology")
	b.HeartRate = Number(9)
	c := newRecord("C", "c", "Oncology")
	c.HeartRate = Number(50)

	got := View([]*Record{a, b, c}, Query{Sort: SortConfig{Key: FieldHeartRate, Direction: Ascending}})
	assertKeys(t, got, "B", "C", "A")
}

func TestCompareValues(t *testing.T) {
	col := collate.New(language.English)
	tests := []struct {
		name string
		a, b Measure
		want int
	}{
		{"numbers", Number(2), Number(10), -1},
		{"texts collate", Text("10"), Text("9"), -1},
		{"text vs number coerces", Text("10"), Number(9), 1},
		{"non-numeric text is zero", Text("fast"), Number(0), 0},
		{"missing vs number", Measure{}, Number(-1), 1},
		{"missing vs text collates", Measure{}, Text("a"), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compareValues(tt.a, tt.b, col); got != tt.want {
				t.Errorf("compareValues(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestView_DoubleToggleRestoresOrderOfEquals(t *testing.T) {
	records := []*Record{
		newRecord("A", "Same", "Oncology"),
		newRecord("B", "Same", "Oncology"),
		newRecord("C", "Other", "Oncology"),
		newRecord("D", "Same", "Oncology"),
	}
	cfg := SortConfig{Key: FieldFirstName, Direction: Ascending}
	first := View(records, Query{Sort: cfg})

	cfg = cfg.Toggle(FieldFirstName).Toggle(FieldFirstName)
	if cfg.Direction != Ascending {
		t.Fatalf("double toggle direction = %s", cfg.Direction)
	}
	again := View(records, Query{Sort: cfg})
	if !reflect.DeepEqual(keys(first), keys(again)) {
		t.Errorf("order changed after double toggle: %v vs %v", keys(first), keys(again))
	}
	assertKeys(t, first, "C", "A", "B", "D")

	desc := View(records, Query{Sort: SortConfig{Key: FieldFirstName, Direction: Descending}})
	assertKeys(t, desc, "A", "B", "D", "C")
}

func TestView_DoesNotModifyInput(t *testing.T) {
	records := fixture()
	View(records, Query{Sort: SortConfig{Key: FieldFirstName, Direction: Descending}})
	assertKeys(t, records, "P1", "C1", "O1", "C2", "N1")
}

func TestSortConfig_Toggle(t *testing.T) {
	c := DefaultSort()
	if c.Key != FieldFirstName || c.Direction != Ascending {
		t.Fatalf("unexpected default sort %+v", c)
	}
	c = c.Toggle(FieldFirstName)
	if c.Direction != Descending {
		t.Errorf("same key should flip to desc, got %+v", c)
	}
	c = c.Toggle(FieldAge)
	if c.Key != FieldAge || c.Direction != Ascending {
		t.Errorf("new key should start ascending, got %+v", c)
	}
	if err := (SortConfig{Key: "nope", Direction: Ascending}).Validate(); err == nil {
		t.Error("expected unknown sort key error")
	}
}
