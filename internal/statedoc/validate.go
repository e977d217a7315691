package statedoc

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateSlug checks the URL-safe session identifier shape.
func ValidateSlug(slug string) error {
	err := validation.Validate(slug,
		validation.Required,
		validation.Length(1, 64),
		validation.Match(slugPattern),
	)
	if err != nil {
		return fmt.Errorf("%w: slug: %v", domain.ErrSchemaViolation, err)
	}
	return nil
}

// ValidateState checks the merged session state document against the declared
// schema: engine fields present and sane, known optional fields well-typed.
// Open-ended extension fields pass through untouched.
func ValidateState(state models.State) error {
	if state == nil {
		return fmt.Errorf("%w: state document is empty", domain.ErrSchemaViolation)
	}
	if err := requireCounter(state, models.FieldTurn); err != nil {
		return err
	}
	if err := requireCounter(state, models.FieldLogIndex); err != nil {
		return err
	}

	checks := []struct {
		field string
		fn    func(any) error
	}{
		{"hp", numeric},
		{"max_hp", numeric},
		{"ac", numeric},
		{"gp", numeric},
		{"gold", numeric},
		{"location", stringValue},
		{"scene_id", stringValue},
		{"conditions", stringList},
		{"inventory", list},
		{"spells", list},
		{"flags", object},
	}
	for _, c := range checks {
		v, ok := state[c.field]
		if !ok {
			continue
		}
		if err := c.fn(v); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrSchemaViolation, c.field, err)
		}
	}
	return nil
}

// ValidatePatch rejects patches that touch engine-owned counters; those only
// move through the commit protocol.
func ValidatePatch(patch map[string]any) error {
	for _, field := range []string{models.FieldTurn, models.FieldLogIndex} {
		if _, ok := patch[field]; ok {
			return fmt.Errorf("%w: %s is engine-owned and cannot be patched", domain.ErrSchemaViolation, field)
		}
	}
	return nil
}

func requireCounter(state models.State, field string) error {
	v, ok := state[field]
	if !ok {
		return fmt.Errorf("%w: %s is required", domain.ErrSchemaViolation, field)
	}
	f, ok := asNumber(v)
	if !ok {
		return fmt.Errorf("%w: %s must be a number", domain.ErrSchemaViolation, field)
	}
	if f < 0 || f != float64(int(f)) {
		return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrSchemaViolation, field)
	}
	return nil
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

func numeric(v any) error {
	if _, ok := asNumber(v); !ok {
		return fmt.Errorf("must be a number, got %T", v)
	}
	return nil
}

func stringValue(v any) error {
	if _, ok := v.(string); !ok {
		return fmt.Errorf("must be a string, got %T", v)
	}
	return nil
}

func list(v any) error {
	if _, ok := v.([]any); !ok {
		return fmt.Errorf("must be an array, got %T", v)
	}
	return nil
}

func stringList(v any) error {
	arr, ok := v.([]any)
	if !ok {
		return fmt.Errorf("must be an array, got %T", v)
	}
	for i, e := range arr {
		if _, ok := e.(string); !ok {
			return fmt.Errorf("element %d must be a string, got %T", i, e)
		}
	}
	return nil
}

func object(v any) error {
	if _, ok := v.(map[string]any); !ok {
		return fmt.Errorf("must be an object, got %T", v)
	}
	return nil
}
