package propagation

import (
	"fmt"
	"sort"
	"strings"
)

// Policy combines the current values of a parent's contributing child goals
// into the parent's value. It must be a pure function of values; an empty
// slice means no child contributes.
type Policy func(values []float64) float64

// Sum is the default policy. The empty sum is 0.
func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// Average returns the arithmetic mean, or 0 with no values.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// Max returns the largest value, or 0 with no values.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Min returns the smallest value, or 0 with no values.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

var policies = map[string]Policy{
	"sum":     Sum,
	"average": Average,
	"avg":     Average,
	"max":     Max,
	"min":     Min,
}

// PolicyByName resolves a configured policy name. Empty means sum.
func PolicyByName(name string) (Policy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Sum, nil
	}
	p, ok := policies[key]
	if !ok {
		return nil, fmt.Errorf("unknown aggregation policy %q (valid: %s)", name, strings.Join(PolicyNames(), ", "))
	}
	return p, nil
}

// PolicyNames lists the registered policy names.
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
