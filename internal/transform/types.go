package transform

import (
	"fmt"
	"strings"
)

// Type is the per-axis transform selection exposed to users.
type Type int

const (
	Linear Type = iota
	Log
	QuantileType
	QuantileNormal
)

var typeNames = map[Type]string{
	Linear:         "linear",
	Log:            "logarithmic",
	QuantileType:   "quantile",
	QuantileNormal: "quantile-normal",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType accepts the names printed by String plus a few short aliases.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "lin", "normalize", "":
		return Linear, nil
	case "logarithmic", "log":
		return Log, nil
	case "quantile", "q":
		return QuantileType, nil
	case "quantile-normal", "quantile_normal", "qn":
		return QuantileNormal, nil
	}
	return Linear, fmt.Errorf("unknown transform type %q (use linear|logarithmic|quantile|quantile-normal)", s)
}

// New builds an uncalibrated transform for t. buckets configures quantile
// based types.
func (t Type) New(buckets int) *Transform {
	switch t {
	case Log:
		return Compose(Logarithmic(), Normalize())
	case QuantileType:
		return Quantile(buckets)
	case QuantileNormal:
		return Compose(Compose(Quantile(buckets), Probit()), Normalize())
	default:
		return Normalize()
	}
}
