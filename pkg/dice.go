package pkg

import (
	"fmt"
	"strconv"
	"strings"
)

// DieSpec is one die group such as 3d6+2, with its faces already resolved.
type DieSpec struct {
	Multiplier int
	Size       int
	Modifier   int
	Faces      FaceSet
	Options    DieOptions
}

// NewDieSpec resolves the faces for a group of multiplier dice of the given
// size.
func NewDieSpec(multiplier, size, modifier int, opts DieOptions) (DieSpec, error) {
	if multiplier < 1 {
		return DieSpec{}, fmt.Errorf("%w: multiplier must be positive", ErrMalformedExpression)
	}
	if err := CheckShift("modifier", modifier); err != nil {
		return DieSpec{}, err
	}
	faces, err := ResolveFaces(size, opts.RerollDie, opts.SubAll, opts.AddAll)
	if err != nil {
		return DieSpec{}, err
	}
	return DieSpec{
		Multiplier: multiplier,
		Size:       size,
		Modifier:   modifier,
		Faces:      faces,
		Options:    opts,
	}, nil
}

// ParseDieString builds a group from a single die string like "2d6" and a
// separate modifier string like "+2". Anything after the die term in
// dString is ignored.
func ParseDieString(dString, modifier string, opts DieOptions) (DieSpec, error) {
	s := strings.TrimLeft(strings.ToLower(strings.TrimSpace(dString)), "+-")
	if i := strings.IndexAny(s, "+-"); i >= 0 {
		s = s[:i]
	}
	term, err := parseDieTerm(s)
	if err != nil {
		return DieSpec{}, err
	}
	mod, err := FoldModifier(modifier)
	if err != nil {
		return DieSpec{}, err
	}
	return NewDieSpec(term.multiplier, term.size, mod, opts)
}

// Chunks splits the multiplier for table lookups.
func (ds DieSpec) Chunks() []int {
	return Reduce(ds.Multiplier)
}

func (ds DieSpec) kept() int {
	return ds.Multiplier - ds.Options.DropLowest
}

// maxRoll is the highest total the dice can show before the modifier.
func (ds DieSpec) maxRoll() int {
	return ds.Faces.Max() * ds.kept()
}

// Range returns the lowest and highest totals the group can produce,
// modifier included.
func (ds DieSpec) Range() (int, int) {
	lo := ds.Faces.Min() * ds.kept()
	hi := ds.maxRoll()
	if ds.Options.RerollTotal != nil {
		lo = max(lo, *ds.Options.RerollTotal+1)
	}
	return lo + ds.Modifier, hi + ds.Modifier
}

func (ds DieSpec) String() string {
	var builder strings.Builder
	base := fmt.Sprintf("%dd%d", ds.Multiplier, ds.Size)
	builder.WriteString(base)
	builder.WriteString(FormatModifier(ds.Modifier))
	return builder.String()
}

// FormatModifier renders a modifier as "+5", "-1", or "" for zero.
func FormatModifier(mod int) string {
	switch {
	case mod > 0:
		return "+" + strconv.Itoa(mod)
	case mod < 0:
		return strconv.Itoa(mod)
	default:
		return ""
	}
}

// Range returns the lowest and highest combined totals of groups joined by
// connectors.
func Range(groups []DieSpec, connectors []Connector) (int, int, error) {
	if len(groups) == 0 {
		return 0, 0, fmt.Errorf("%w: no dice", ErrMalformedExpression)
	}
	if err := validateConnectors(len(groups), connectors); err != nil {
		return 0, 0, err
	}
	lo, hi := groups[0].Range()
	for i, c := range connectors {
		glo, ghi := groups[i+1].Range()
		if c == Minus {
			lo, hi = lo-ghi, hi-glo
		} else {
			lo, hi = lo+glo, hi+ghi
		}
	}
	return lo, hi, nil
}
