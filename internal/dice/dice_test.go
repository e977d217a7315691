package dice

import (
	"errors"
	"testing"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

func entry(index int, d20 []int, d100 []int) *models.EntropyEntry {
	return &models.EntropyEntry{Index: index, D20: d20, D100: d100}
}

func TestParse_Notation(t *testing.T) {
	tests := []struct {
		text     string
		count    int
		size     int
		modifier int
	}{
		{"1d20", 1, 20, 0},
		{"2d6+1", 2, 6, 1},
		{"1d20-2+4", 1, 20, 2},
		{"3d8-1", 3, 8, -1},
		{"1d100", 1, 100, 0},
	}
	for _, tt := range tests {
		expr, err := Parse(tt.text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.text, err)
		}
		if expr.Count != tt.count || expr.Size != tt.size || expr.Modifier != tt.modifier {
			t.Errorf("Parse(%q) = %+v", tt.text, expr)
		}
		if expr.Check {
			t.Errorf("Parse(%q) flagged as check", tt.text)
		}
	}
}

func TestParse_Checks(t *testing.T) {
	expr, err := Parse("perception +2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !expr.Check || expr.CheckName != "perception" || expr.Modifier != 2 || expr.Size != 20 {
		t.Errorf("unexpected check parse: %+v", expr)
	}

	adv, err := Parse("stealth advantage")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !adv.Advantage || adv.RawDraws() != 2 {
		t.Errorf("advantage parse wrong: %+v", adv)
	}

	dis, err := Parse("athletics -1 dis")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !dis.Disadvantage || dis.Modifier != -1 {
		t.Errorf("disadvantage parse wrong: %+v", dis)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, bad := range []string{"", "d20", "0d6", "2x6", "1d1", "999d999999", "2d6+"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		} else if !errors.Is(err, domain.ErrExpressionInvalid) {
			t.Errorf("Parse(%q) error should wrap ErrExpressionInvalid, got %v", bad, err)
		}
	}
}

// MapDie must land in [1, X] for every raw d20 value, and be the identity
// for X=20 and X=100.
func TestMapDie_Range(t *testing.T) {
	for _, size := range []int{2, 3, 4, 6, 8, 10, 12, 20, 100} {
		for n := 1; n <= 20; n++ {
			v := MapDie(n, size)
			if v < 1 || v > size {
				t.Fatalf("MapDie(%d, %d) = %d out of range", n, size, v)
			}
		}
	}
	for n := 1; n <= 20; n++ {
		if MapDie(n, 20) != n {
			t.Errorf("MapDie(%d, 20) != %d", n, n)
		}
	}
	for n := 1; n <= 100; n++ {
		if MapDie(n, 100) != n {
			t.Errorf("MapDie(%d, 100) != %d", n, n)
		}
	}
}

func TestEvaluate_MultiDieWithModifier(t *testing.T) {
	expr, _ := Parse("2d6+1")
	e := entry(7, []int{9, 4, 20, 1, 5, 6, 7, 8}, []int{50, 51, 52, 53})

	result, err := Evaluate(expr, e)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	// raw 9 -> 1+((9-1)%6)=3, raw 4 -> 1+((4-1)%6)=4
	if result.Total != 3+4+1 {
		t.Errorf("total = %d, want 8 (%s)", result.Total, result.Breakdown)
	}
	if len(result.ConsumedIndices) != 1 || result.ConsumedIndices[0] != 7 {
		t.Errorf("consumed indices = %v", result.ConsumedIndices)
	}
	if result.Breakdown == "" {
		t.Error("breakdown must be populated")
	}
}

func TestEvaluate_D100UsesOwnPool(t *testing.T) {
	expr, _ := Parse("1d100")
	e := entry(1, []int{1, 1, 1, 1, 1, 1, 1, 1}, []int{73, 2, 3, 4})

	result, err := Evaluate(expr, e)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Total != 73 {
		t.Errorf("d100 should draw from the d100 pool, got %d", result.Total)
	}
}

func TestEvaluate_Advantage(t *testing.T) {
	adv, _ := Parse("perception +2 adv")
	e := entry(1, []int{7, 15, 3, 3, 3, 3, 3, 3}, nil)

	result, err := Evaluate(adv, e)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Total != 15+2 {
		t.Errorf("advantage should keep the max: total = %d (%s)", result.Total, result.Breakdown)
	}

	dis, _ := Parse("perception +2 dis")
	result, err = Evaluate(dis, e)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Total != 7+2 {
		t.Errorf("disadvantage should keep the min: total = %d", result.Total)
	}
}

func TestEvaluate_PoolExhausted(t *testing.T) {
	expr, _ := Parse("9d6") // more draws than the 8-value d20 pool
	e := entry(1, []int{1, 2, 3, 4, 5, 6, 7, 8}, nil)

	_, err := Evaluate(expr, e)
	if err == nil {
		t.Fatal("expected pool exhaustion")
	}
	if !errors.Is(err, domain.ErrEntropyExhausted) {
		t.Errorf("error should wrap ErrEntropyExhausted, got %v", err)
	}
}
