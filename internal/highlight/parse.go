package highlight

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/pcview/internal/filter"
	"github.com/KaramelBytes/pcview/internal/table"
)

// ErrSyntax reports a malformed filter expression or file.
var ErrSyntax = errors.New("invalid highlight filter")

// Parse reads one expression: column=value, column<number, column>number
// or column~center:width. The first operator character splits the column
// name from the operand.
func Parse(expr string) (Filter, error) {
	i := strings.IndexAny(expr, "=<>~")
	if i <= 0 {
		return Filter{}, fmt.Errorf("%w: %q (want column=value, column<n, column>n or column~center:width)", ErrSyntax, expr)
	}
	column := strings.TrimSpace(expr[:i])
	operand := strings.TrimSpace(expr[i+1:])
	if column == "" {
		return Filter{}, fmt.Errorf("%w: %q has no column", ErrSyntax, expr)
	}
	switch expr[i] {
	case '=':
		return NewEqual(column, operand), nil
	case '<', '>':
		v, ok := table.ParseNumber(operand, 0, 0)
		if !ok {
			return Filter{}, fmt.Errorf("%w: %q is not a number", ErrSyntax, operand)
		}
		if expr[i] == '<' {
			return NewLessThan(column, v), nil
		}
		return NewGreaterThan(column, v), nil
	default:
		center, width, found := strings.Cut(operand, ":")
		if !found {
			return Filter{}, fmt.Errorf("%w: band %q needs center:width", ErrSyntax, operand)
		}
		c, ok1 := table.ParseNumber(center, 0, 0)
		w, ok2 := table.ParseNumber(width, 0, 0)
		if !ok1 || !ok2 || w < 0 {
			return Filter{}, fmt.Errorf("%w: band %q needs numeric center and non-negative width", ErrSyntax, operand)
		}
		return NewBand(column, c, w), nil
	}
}

// ParseAll parses every expression and joins them with op.
func ParseAll(exprs []string, op filter.Operator) (Combined, error) {
	c := Combined{Operator: op}
	for _, e := range exprs {
		if strings.TrimSpace(e) == "" {
			continue
		}
		f, err := Parse(e)
		if err != nil {
			return Combined{}, err
		}
		c.Add(f)
	}
	return c, nil
}

// LoadFile reads a YAML filter file:
//
//	operator: or
//	filters:
//	  - {kind: band, column: x, value: 1, width: 0.5}
//	  - {kind: equal, column: label, text: A}
func LoadFile(path string) (Combined, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Combined{}, fmt.Errorf("read filter file: %w", err)
	}
	var c Combined
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Combined{}, fmt.Errorf("%w: %s: %v", ErrSyntax, path, err)
	}
	for i, f := range c.Filters {
		if f.Kind != Empty && strings.TrimSpace(f.Column) == "" {
			return Combined{}, fmt.Errorf("%w: %s: filter %d has no column", ErrSyntax, path, i+1)
		}
	}
	c.Prune()
	return c, nil
}
