// Package filter narrows column names by free-text tokens. It also owns the
// AND/OR operator shared with highlight combinators.
package filter

import (
	"fmt"
	"strings"
)

// Operator joins several predicates.
type Operator int

const (
	And Operator = iota
	Or
)

func (o Operator) String() string {
	if o == Or {
		return "or"
	}
	return "and"
}

// ParseOperator accepts "and"/"or" in any case; empty means And.
func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "and", "all", "&&":
		return And, nil
	case "or", "any", "||":
		return Or, nil
	}
	return And, fmt.Errorf("unknown operator %q (use and|or)", s)
}

// MarshalText implements encoding.TextMarshaler so operators read naturally in YAML.
func (o Operator) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operator) UnmarshalText(b []byte) error {
	v, err := ParseOperator(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Match selects how a token is compared against a column name.
type Match int

const (
	Contains Match = iota
	Prefix
	Postfix
)

func (m Match) String() string {
	switch m {
	case Prefix:
		return "prefix"
	case Postfix:
		return "postfix"
	default:
		return "contains"
	}
}

// ParseMatch accepts contains|prefix|postfix (suffix is an alias of postfix).
func ParseMatch(s string) (Match, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "contains":
		return Contains, nil
	case "prefix":
		return Prefix, nil
	case "postfix", "suffix":
		return Postfix, nil
	}
	return Contains, fmt.Errorf("unknown match %q (use contains|prefix|postfix)", s)
}

// ColumnFilter matches column names against whitespace separated tokens.
type ColumnFilter struct {
	tokens        []string
	match         Match
	operator      Operator
	caseSensitive bool
}

// New builds a ColumnFilter from free text. Tokens are lower-cased up front
// when the filter is case-insensitive.
func New(text string, match Match, op Operator, caseSensitive bool) ColumnFilter {
	tokens := strings.Fields(text)
	if !caseSensitive {
		for i, tok := range tokens {
			tokens[i] = strings.ToLower(tok)
		}
	}
	return ColumnFilter{tokens: tokens, match: match, operator: op, caseSensitive: caseSensitive}
}

// Tokens returns the parsed tokens.
func (f ColumnFilter) Tokens() []string { return append([]string(nil), f.tokens...) }

// Empty reports whether the filter has no tokens.
func (f ColumnFilter) Empty() bool { return len(f.tokens) == 0 }

// Matches reports whether column passes. A filter without tokens passes every column.
func (f ColumnFilter) Matches(column string) bool {
	if len(f.tokens) == 0 {
		return true
	}
	if !f.caseSensitive {
		column = strings.ToLower(column)
	}
	var hit func(s, tok string) bool
	switch f.match {
	case Prefix:
		hit = strings.HasPrefix
	case Postfix:
		hit = strings.HasSuffix
	default:
		hit = strings.Contains
	}
	if f.operator == Or {
		for _, tok := range f.tokens {
			if hit(column, tok) {
				return true
			}
		}
		return false
	}
	for _, tok := range f.tokens {
		if !hit(column, tok) {
			return false
		}
	}
	return true
}

// Apply keeps the columns that match, preserving order.
func (f ColumnFilter) Apply(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}
