package core

import "testing"

func budgetAt(spentCents int64) Budget {
	return Budget{
		Owner:          "user-1",
		Category:       CategoryShopping,
		Month:          6,
		Year:           2025,
		Limit:          Money{Cents: 100000},
		Spent:          Money{Cents: spentCents},
		AlertThreshold: 80,
	}
}

func TestBudgetStatus(t *testing.T) {
	cases := []struct {
		spentCents int64
		want       BudgetStatus
	}{
		{0, StatusGood},
		{49999, StatusGood},
		{50000, StatusModerate},
		{75000, StatusModerate},
		{79999, StatusModerate},
		{80000, StatusWarning},
		{99999, StatusWarning},
		{100000, StatusExceeded},
		{105000, StatusExceeded},
	}
	for _, tc := range cases {
		if got := budgetAt(tc.spentCents).Status(); got != tc.want {
			t.Fatalf("spent=%d: expected %s, got %s", tc.spentCents, tc.want, got)
		}
	}
}

func TestBudgetStatusUnroundedThreshold(t *testing.T) {
	// 79.5% rounds to 80 for display but must not trip an 80% threshold.
	b := budgetAt(79500)
	if b.Percentage() != 80 {
		t.Fatalf("expected display percentage 80, got %d", b.Percentage())
	}
	if b.Status() != StatusModerate {
		t.Fatalf("expected moderate below the unrounded threshold, got %s", b.Status())
	}
}

func TestBudgetRemaining(t *testing.T) {
	if got := budgetAt(30000).Remaining(); got.Cents != 70000 {
		t.Fatalf("expected 70000, got %d", got.Cents)
	}
	// Overspent budgets floor at zero rather than going negative.
	if got := budgetAt(120000).Remaining(); got.Cents != 0 {
		t.Fatalf("expected 0, got %d", got.Cents)
	}
}

func TestBudgetZeroLimitRatio(t *testing.T) {
	b := budgetAt(500)
	b.Limit = Money{}
	if !b.Ratio().IsZero() {
		t.Fatal("zero limit must yield zero ratio, not a division error")
	}
}

func TestValidateThreshold(t *testing.T) {
	for _, bad := range []int{0, -1, 101} {
		if err := ValidateThreshold(bad); err == nil {
			t.Fatalf("threshold %d: expected error", bad)
		}
	}
	for _, good := range []int{1, 50, 80, 100} {
		if err := ValidateThreshold(good); err != nil {
			t.Fatalf("threshold %d: expected ok, got %v", good, err)
		}
	}
}
