package core

import "testing"

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"12.34", 1234, true},
		{"12", 1200, true},
		{"0.01", 1, true},
		{"12.345", 1235, true}, // rounds half-up
		{"12.344", 1234, true},
		{"0", 0, false},
		{"-3.50", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		m, err := ParseMoney(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q: expected ok, got %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
		if tc.ok && m.Cents != tc.cents {
			t.Fatalf("%q: expected %d cents, got %d", tc.in, tc.cents, m.Cents)
		}
	}
}

func TestMoneyString(t *testing.T) {
	if got := (Money{Cents: 1050}).String(); got != "10.50" {
		t.Fatalf("expected 10.50, got %s", got)
	}
	if got := (Money{Cents: 7}).String(); got != "0.07" {
		t.Fatalf("expected 0.07, got %s", got)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 1000}
	b := Money{Cents: 250}
	if a.Add(b).Cents != 1250 {
		t.Fatal("add")
	}
	if a.Sub(b).Cents != 750 {
		t.Fatal("sub")
	}
	if !a.AtLeast(b) || b.AtLeast(a) {
		t.Fatal("atLeast")
	}
}
