package versions

import "testing"

func TestCompareClasses(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "0.0.1", -1},
		{"", "banana", -1},
		{"1.0.0", "banana", -1},
		{"banana", "apple", 1},
		{"1.2.0", "1.10.0", -1},
		{"v2.0.0", "2.0.0", 0},
		{"2.0.0", "2.0", 0},
		{"10.0.0", "9.0.0", 1},
	}
	for _, c := range cases {
		if got := Compare(NewKey(c.a), NewKey(c.b)); got != c.want {
			t.Fatalf("Compare(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
		if got := Compare(NewKey(c.b), NewKey(c.a)); got != -c.want {
			t.Fatalf("Compare(%q, %q) = %d, want %d", c.b, c.a, got, -c.want)
		}
	}
}

func TestHighest(t *testing.T) {
	if got := Highest(nil); got != -1 {
		t.Fatalf("Highest(nil) = %d, want -1", got)
	}
	raws := []string{"", "1.0.0", "zzz", "2.0.0"}
	if got := Highest(raws); got != 2 {
		t.Fatalf("Highest(%v) = %d, want 2 (unparseable sorts last)", raws, got)
	}
	raws = []string{"1.0.0", "10.0.0", "9.9.9"}
	if got := Highest(raws); got != 1 {
		t.Fatalf("Highest(%v) = %d, want 1", raws, got)
	}
}

func TestSpecMatches(t *testing.T) {
	if !(*Spec)(nil).Matches("anything") {
		t.Fatal("nil spec must match every version")
	}
	if !Exact("v1.0.0").Matches("1.0.0") {
		t.Fatal("Eq should compare by key, not string")
	}
	s := &Spec{GTE: "1.0.0", LT: "2.0.0"}
	if !s.Matches("1.5.0") {
		t.Fatal("1.5.0 should satisfy [1.0.0, 2.0.0)")
	}
	if s.Matches("2.0.0") {
		t.Fatal("LT bound must be exclusive")
	}
}

func TestSpecUnversionedRequiresPermit(t *testing.T) {
	for _, s := range []*Spec{
		{},
		{LT: "2.0.0"},
		{GTE: "1.0.0"},
		{Eq: "1.0.0"},
	} {
		if s.Matches("") {
			t.Fatalf("unversioned component satisfied %+v without permit", *s)
		}
	}
	if !(&Spec{LT: "2.0.0", MatchNone: true}).Matches("") {
		t.Fatal("MatchNone must admit the unversioned component")
	}
	if !(&Spec{MatchNone: true}).Matches("1.0.0") {
		t.Fatal("MatchNone must not constrain versioned components")
	}
}
