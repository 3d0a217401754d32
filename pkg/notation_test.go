package pkg

import (
	"strings"
	"testing"

	"github.com/shoenig/test/must"
)

func TestParse_SingleGroup(t *testing.T) {
	groups, connectors, opts, err := Parse("2d4+2", DieOptions{DropLowest: 1})
	must.NoError(t, err)
	must.Len(t, 1, groups)
	must.SliceEmpty(t, connectors)
	must.True(t, opts.IsZero())

	g := groups[0]
	must.EqOp(t, 4, g.Size)
	must.EqOp(t, 2, g.Multiplier)
	must.EqOp(t, 2, g.Modifier)
	must.EqOp(t, "+2", FormatModifier(g.Modifier))
	must.EqOp(t, 1, g.Options.DropLowest)
	must.EqOp(t, "2d4+2", g.String())
}

func TestParse_MultiGroup(t *testing.T) {
	groups, connectors, opts, err := Parse("1d20+1d4-3", DieOptions{AddAll: 1})
	must.NoError(t, err)
	must.Len(t, 2, groups)
	must.Eq(t, []Connector{Plus}, connectors)
	must.EqOp(t, 1, opts.AddAll)

	must.EqOp(t, 20, groups[0].Size)
	must.EqOp(t, 0, groups[0].Modifier)
	must.EqOp(t, 4, groups[1].Size)
	must.EqOp(t, -3, groups[1].Modifier)
	// group level options are not pushed onto the groups
	must.EqOp(t, 20, groups[0].Faces.Max())

	lo, hi, err := Range(groups, connectors)
	must.NoError(t, err)
	must.EqOp(t, -1, lo)
	must.EqOp(t, 21, hi)
}

func TestParse_Forms(t *testing.T) {
	cases := []struct {
		expr       string
		multiplier []int
		sizes      []int
		modifiers  []int
		connectors []Connector
	}{
		{"d20", []int{1}, []int{20}, []int{0}, nil},
		{"D6", []int{1}, []int{6}, []int{0}, nil},
		{"+3d6", []int{3}, []int{6}, []int{0}, nil},
		{"-1d8+1", []int{1}, []int{8}, []int{1}, nil},
		{"3d6+2+3", []int{3}, []int{6}, []int{5}, nil},
		{"3d6+2-2", []int{3}, []int{6}, []int{0}, nil},
		{"1d20-1d4", []int{1, 1}, []int{20, 4}, []int{0, 0}, []Connector{Minus}},
		{"2d6+1-1d4+2+d100", []int{2, 1, 1}, []int{6, 4, 100}, []int{1, 2, 0}, []Connector{Minus, Plus}},
		{" 12d10 ", []int{12}, []int{10}, []int{0}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			groups, connectors, _, err := Parse(tc.expr, DieOptions{})
			must.NoError(t, err)
			must.Len(t, len(tc.sizes), groups)
			for i, g := range groups {
				must.EqOp(t, tc.multiplier[i], g.Multiplier)
				must.EqOp(t, tc.sizes[i], g.Size)
				must.EqOp(t, tc.modifiers[i], g.Modifier)
			}
			must.Eq(t, len(tc.connectors), len(connectors))
			for i, c := range connectors {
				must.EqOp(t, tc.connectors[i], c)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		expr string
		err  error
	}{
		{"", ErrMalformedExpression},
		{"cantaloupe", ErrMalformedExpression},
		{"42", ErrMalformedExpression},
		{"2+1d6", ErrMalformedExpression},
		{"1d6+", ErrMalformedExpression},
		{"1d6++2", ErrMalformedExpression},
		{"1d6+100", ErrMalformedExpression},
		{"1000d6", ErrMalformedExpression},
		{"0d6", ErrMalformedExpression},
		{"1dd6", ErrMalformedExpression},
		{"1d", ErrMalformedExpression},
		{"1d6x", ErrMalformedExpression},
		{"1d7", ErrUnknownDieSize},
		{"1d20+1d13", ErrUnknownDieSize},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			_, _, _, err := Parse(tc.expr, DieOptions{})
			must.ErrorIs(t, err, tc.err)
		})
	}
}

func TestParse_OptionsResolveFaces(t *testing.T) {
	groups, _, _, err := Parse("1d6", DieOptions{RerollDie: []int{1}, AddAll: 1})
	must.NoError(t, err)
	must.Eq(t, FaceSet{3, 4, 5, 6, 7}, groups[0].Faces)

	_, _, _, err = Parse("1d4", DieOptions{RerollDie: []int{9}})
	must.ErrorIs(t, err, ErrFaceNotPresent)
}

func TestFoldModifier(t *testing.T) {
	cases := map[string]int{
		"":       0,
		"+2":     2,
		"-1":     -1,
		"2":      2,
		"+2+3":   5,
		"-10+4":  -6,
		"+1-1":   0,
		" +7 ":   7,
		"+99-99": 0,
	}
	for in, want := range cases {
		got, err := FoldModifier(in)
		must.NoError(t, err, must.Sprintf("input %q", in))
		must.EqOp(t, want, got, must.Sprintf("input %q", in))
	}

	for _, bad := range []string{"+", "+a", "++1", "+100", "1-"} {
		_, err := FoldModifier(bad)
		must.ErrorIs(t, err, ErrMalformedExpression, must.Sprintf("input %q", bad))
	}
}

func TestFormatModifier(t *testing.T) {
	must.EqOp(t, "+5", FormatModifier(5))
	must.EqOp(t, "-1", FormatModifier(-1))
	must.EqOp(t, "", FormatModifier(0))
}

func TestParseDieString(t *testing.T) {
	g, err := ParseDieString("4d6+9", "+2", DieOptions{})
	must.NoError(t, err)
	must.EqOp(t, "4d6+2", g.String())

	_, err = ParseDieString("4x6", "", DieOptions{})
	must.ErrorIs(t, err, ErrMalformedExpression)

	_, err = ParseDieString("1d6", "+x", DieOptions{})
	must.ErrorIs(t, err, ErrMalformedExpression)
}

func TestFoldModifier_Bounds(t *testing.T) {
	_, err := FoldModifier(strings.Repeat("+99", 10))
	must.NoError(t, err)

	_, err = FoldModifier(strings.Repeat("+99", 11))
	must.ErrorIs(t, err, ErrOutOfRange)

	_, _, _, err = Parse("1d6"+strings.Repeat("-99", 11), DieOptions{})
	must.ErrorIs(t, err, ErrOutOfRange)
}
