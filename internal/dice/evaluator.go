package dice

import (
	"fmt"
	"strings"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

// Evaluate resolves a parsed expression against a single entropy entry,
// popping raw values from the matching pool in order. d100 rolls draw from
// the d100 pool; every other size draws d20 values and maps them down.
// An entry whose pool is too small for the expression fails with
// EntropyExhausted — the stream needs regeneration with bigger pools, not a
// longer tail.
func Evaluate(expr *Expression, entry *models.EntropyEntry) (*models.RollResult, error) {
	pool := entry.D20
	poolName := "d20"
	if expr.Size == 100 {
		pool = entry.D100
		poolName = "d100"
	}

	draws := expr.RawDraws()
	if draws > len(pool) {
		return nil, fmt.Errorf("%w: expression %q needs %d %s values, entry %d holds %d",
			domain.ErrEntropyExhausted, expr.Text, draws, poolName, entry.Index, len(pool))
	}
	raw := make([]int, draws)
	copy(raw, pool[:draws])

	result := &models.RollResult{
		Expression:      expr.Text,
		Raw:             raw,
		ConsumedIndices: []int{entry.Index},
	}

	if expr.Advantage || expr.Disadvantage {
		kept := raw[0]
		if expr.Advantage && raw[1] > kept || expr.Disadvantage && raw[1] < kept {
			kept = raw[1]
		}
		result.Values = []int{kept}
		result.Total = kept + expr.Modifier
		result.Breakdown = checkBreakdown(expr, raw, kept)
		return result, nil
	}

	values := make([]int, expr.Count)
	sum := 0
	for i := 0; i < expr.Count; i++ {
		values[i] = MapDie(raw[i], expr.Size)
		sum += values[i]
	}
	result.Values = values
	result.Total = sum + expr.Modifier
	result.Breakdown = rollBreakdown(expr, values)
	return result, nil
}

func rollBreakdown(expr *Expression, values []int) string {
	var b strings.Builder
	if expr.Check {
		fmt.Fprintf(&b, "%s (d20", expr.CheckName)
	} else {
		fmt.Fprintf(&b, "%dd%d", expr.Count, expr.Size)
	}
	fmt.Fprintf(&b, " %s", intList(values))
	if expr.Check {
		b.WriteString(")")
	}
	writeModifier(&b, expr.Modifier)
	sum := expr.Modifier
	for _, v := range values {
		sum += v
	}
	fmt.Fprintf(&b, " = %d", sum)
	return b.String()
}

func checkBreakdown(expr *Expression, raw []int, kept int) string {
	mode := "adv"
	if expr.Disadvantage {
		mode = "dis"
	}
	var b strings.Builder
	name := expr.CheckName
	if name == "" {
		name = "d20"
	}
	fmt.Fprintf(&b, "%s (d20 %s %s → %d)", name, intList(raw), mode, kept)
	writeModifier(&b, expr.Modifier)
	fmt.Fprintf(&b, " = %d", kept+expr.Modifier)
	return b.String()
}

func writeModifier(b *strings.Builder, mod int) {
	if mod > 0 {
		fmt.Fprintf(b, " +%d", mod)
	} else if mod < 0 {
		fmt.Fprintf(b, " %d", mod)
	}
}

func intList(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
