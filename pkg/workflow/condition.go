package workflow

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/residentdesk/facilityflow/pkg/models"
)

var comparisonOperators = map[string]string{
	"equals":           "==",
	"not_equals":       "!=",
	"greater_than":     ">",
	"less_than":        "<",
	"greater_or_equal": ">=",
	"less_or_equal":    "<=",
	"contains":         "contains",
	"==":               "==",
	"!=":               "!=",
	">":                ">",
	"<":                "<",
	">=":               ">=",
	"<=":               "<=",
}

var numericFields = map[string]bool{
	"duration":      true,
	"durationHours": true,
}

// ConditionEvaluator compiles condition node expressions and runs them
// against a booking. Compiled programs are cached by source.
type ConditionEvaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{
		programs: make(map[string]*vm.Program),
	}
}

// Evaluate runs the condition against booking. evaluated is false when the
// condition carries only free text, in which case outcome is meaningless.
func (c *ConditionEvaluator) Evaluate(data models.ConditionData, booking *models.Booking) (outcome bool, evaluated bool, err error) {
	source, value, err := conditionSource(data)
	if err != nil {
		return false, false, err
	}

	if source == "" {
		return false, false, nil
	}

	program, err := c.program(source)
	if err != nil {
		return false, false, fmt.Errorf("%w: compile %q: %w", ErrConditionEvaluation, source, err)
	}

	output, err := expr.Run(program, conditionEnv(booking, value))
	if err != nil {
		return false, false, fmt.Errorf("%w: run %q: %w", ErrConditionEvaluation, source, err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, false, fmt.Errorf("%w: %q returned %T, want bool", ErrConditionEvaluation, source, output)
	}

	return result, true, nil
}

// Validate reports whether the condition's expression compiles.
func (c *ConditionEvaluator) Validate(data models.ConditionData) error {
	source, _, err := conditionSource(data)
	if err != nil || source == "" {
		return err
	}

	if _, err := c.program(source); err != nil {
		return fmt.Errorf("%w: compile %q: %w", ErrConditionEvaluation, source, err)
	}

	return nil
}

func (c *ConditionEvaluator) program(source string) (*vm.Program, error) {
	c.mu.RLock()
	program, ok := c.programs[source]
	c.mu.RUnlock()

	if ok {
		return program, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if program, ok := c.programs[source]; ok {
		return program, nil
	}

	program, err := expr.Compile(source, expr.Env(conditionEnv(&models.Booking{}, nil)), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	c.programs[source] = program

	return program, nil
}

// conditionSource turns the node's structured fields into an expression.
// The comparison value is bound to the "value" variable rather than spliced
// into the source.
func conditionSource(data models.ConditionData) (string, any, error) {
	if expression := strings.TrimSpace(data.Expression); expression != "" {
		return expression, data.Value, nil
	}

	if data.Field == "" {
		return "", nil, nil
	}

	if _, known := conditionEnv(&models.Booking{}, nil)[data.Field]; !known || data.Field == "value" {
		return "", nil, fmt.Errorf("%w: unknown field %q", ErrConditionEvaluation, data.Field)
	}

	operator, ok := comparisonOperators[data.Operator]
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown operator %q", ErrConditionEvaluation, data.Operator)
	}

	value := data.Value
	if numericFields[data.Field] {
		coerced, err := toNumber(value)
		if err != nil {
			return "", nil, fmt.Errorf("%w: field %s: %w", ErrConditionEvaluation, data.Field, err)
		}

		value = coerced
	}

	return fmt.Sprintf("%s %s value", data.Field, operator), value, nil
}

func conditionEnv(booking *models.Booking, value any) map[string]any {
	duration := booking.DurationHours()

	return map[string]any{
		"bookingId":     booking.ID,
		"facility":      booking.Facility,
		"status":        string(booking.Status),
		"userName":      booking.User.Name,
		"userEmail":     booking.User.Email,
		"userPhone":     booking.User.Phone,
		"duration":      duration,
		"durationHours": duration,
		"value":         value,
	}
}

func toNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", v)
		}

		return parsed, nil
	default:
		return 0, fmt.Errorf("value of type %T is not a number", value)
	}
}

var (
	trueLabels  = []string{"true", "yes", "approved", "pass"}
	falseLabels = []string{"false", "no", "rejected", "fail"}
)

// selectBranch picks the edge for a condition outcome. An edge whose label
// names the outcome wins; otherwise the first edge is the true branch and the
// second the false branch.
func selectBranch(edges []*models.WorkflowEdge, outcome bool) (*models.WorkflowEdge, bool) {
	labels := falseLabels
	position := 1

	if outcome {
		labels = trueLabels
		position = 0
	}

	for _, edge := range edges {
		label := strings.ToLower(strings.TrimSpace(edge.Label))
		for _, candidate := range labels {
			if label == candidate {
				return edge, true
			}
		}
	}

	if position < len(edges) {
		return edges[position], true
	}

	return nil, false
}
