// Package dice parses roll expressions and resolves them against pre-rolled
// entropy entries. It never generates randomness of its own.
package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"wayfarer/internal/domain"
)

// Expression is a parsed roll. Either a plain NdX roll (Check == false) or a
// named d20 check with optional advantage/disadvantage.
type Expression struct {
	Text         string
	Count        int
	Size         int
	Modifier     int
	Check        bool
	CheckName    string
	Advantage    bool
	Disadvantage bool
}

var (
	notationRe = regexp.MustCompile(`^(\d+)d(\d+)((?:[+-]\d+)*)$`)
	modifierRe = regexp.MustCompile(`[+-]\d+`)
	checkRe    = regexp.MustCompile(`^([a-z][a-z ]*?)((?:\s*[+-]\d+)*)(\s+(?:adv|advantage|dis|disadvantage))?$`)
)

// Parse accepts dice notation ("2d6+1", "1d20-2+4") or a named check
// ("perception +2", "stealth advantage", "strength -1 dis"). Checks resolve
// as a single d20 plus modifiers.
func Parse(text string) (*Expression, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty expression", domain.ErrExpressionInvalid)
	}

	if m := notationRe.FindStringSubmatch(normalized); m != nil {
		count, err := strconv.Atoi(m[1])
		if err != nil || count < 1 || count > 32 {
			return nil, fmt.Errorf("%w: bad die count in %q", domain.ErrExpressionInvalid, text)
		}
		size, err := strconv.Atoi(m[2])
		if err != nil || size < 2 || size > 1000 {
			return nil, fmt.Errorf("%w: bad die size in %q", domain.ErrExpressionInvalid, text)
		}
		return &Expression{
			Text:     text,
			Count:    count,
			Size:     size,
			Modifier: sumModifiers(m[3]),
		}, nil
	}

	if m := checkRe.FindStringSubmatch(normalized); m != nil {
		name := strings.TrimSpace(m[1])
		expr := &Expression{
			Text:      text,
			Count:     1,
			Size:      20,
			Modifier:  sumModifiers(m[2]),
			Check:     true,
			CheckName: name,
		}
		switch strings.TrimSpace(m[3]) {
		case "adv", "advantage":
			expr.Advantage = true
		case "dis", "disadvantage":
			expr.Disadvantage = true
		}
		return expr, nil
	}

	return nil, fmt.Errorf("%w: %q", domain.ErrExpressionInvalid, text)
}

func sumModifiers(s string) int {
	total := 0
	for _, m := range modifierRe.FindAllString(strings.ReplaceAll(s, " ", ""), -1) {
		n, _ := strconv.Atoi(m)
		total += n
	}
	return total
}

// RawDraws is how many raw pool values resolving this expression consumes.
func (e *Expression) RawDraws() int {
	if e.Advantage || e.Disadvantage {
		return 2
	}
	return e.Count
}

// MapDie maps a raw d20 value onto a die of the given size:
// 1 + ((n-1) mod size). Identity for size 20.
func MapDie(raw, size int) int {
	return 1 + ((raw - 1) % size)
}
