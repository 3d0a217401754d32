package pkg

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	maxMultiplierDigits = 3
	maxSizeDigits       = 3
	maxModifierDigits   = 2
)

type tokenKind int

const (
	termToken tokenKind = iota
	signToken
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits s on every '+' and '-', keeping the signs as tokens. Two
// signs in a row, or a trailing sign, produce an empty term.
func tokenize(s string) []token {
	var tokens []token
	start := 0
	for i, r := range s {
		if r != '+' && r != '-' {
			continue
		}
		tokens = append(tokens,
			token{kind: termToken, text: s[start:i]},
			token{kind: signToken, text: string(r)},
		)
		start = i + 1
	}
	return append(tokens, token{kind: termToken, text: s[start:]})
}

type scanState int

const (
	// stateIdle: no die group open yet.
	stateIdle scanState = iota
	// stateDieTokenSeen: a group is open and its last term was the die term.
	stateDieTokenSeen
	// stateAccumulating: a group is open and modifier terms are being added.
	stateAccumulating
)

type dieTerm struct {
	multiplier int
	size       int
}

type rawGroup struct {
	die      dieTerm
	modifier int
}

type scanner struct {
	state      scanState
	sign       Connector
	current    rawGroup
	groups     []rawGroup
	connectors []Connector
}

func (sc *scanner) feed(tok token) error {
	if tok.kind == signToken {
		sc.sign = Connector(tok.text)
		return nil
	}
	if tok.text == "" {
		return fmt.Errorf("%w: empty term", ErrMalformedExpression)
	}

	if strings.Contains(tok.text, "d") {
		die, err := parseDieTerm(tok.text)
		if err != nil {
			return err
		}
		if sc.state != stateIdle {
			sc.groups = append(sc.groups, sc.current)
			sc.connectors = append(sc.connectors, sc.sign)
		}
		sc.current = rawGroup{die: die}
		sc.state = stateDieTokenSeen
		return nil
	}

	if sc.state == stateIdle {
		return fmt.Errorf("%w: modifier %q before any die", ErrMalformedExpression, tok.text)
	}
	mod, err := parseModifierTerm(sc.sign, tok.text)
	if err != nil {
		return err
	}
	sc.current.modifier += mod
	sc.state = stateAccumulating
	return nil
}

func (sc *scanner) finish() ([]rawGroup, []Connector, error) {
	if sc.state == stateIdle {
		return nil, nil, fmt.Errorf("%w: no dice", ErrMalformedExpression)
	}
	return append(sc.groups, sc.current), sc.connectors, nil
}

// Parse turns notation such as "1d20+1d4-3" into die groups and the
// connectors between them.
//
// With a single group the options are attached to that group and the
// returned options are zero. With several groups every group is built
// without options and the options are returned for the caller to place.
func Parse(expr string, opts DieOptions) ([]DieSpec, []Connector, DieOptions, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if !strings.Contains(s, "d") {
		return nil, nil, opts, fmt.Errorf("%w: missing 'd' in %q", ErrMalformedExpression, expr)
	}
	s = strings.TrimLeft(s, "+-")

	sc := &scanner{}
	for _, tok := range tokenize(s) {
		if err := sc.feed(tok); err != nil {
			return nil, nil, opts, err
		}
	}
	raws, connectors, err := sc.finish()
	if err != nil {
		return nil, nil, opts, err
	}

	groupOpts := DieOptions{}
	if len(raws) == 1 {
		groupOpts = opts
	}
	groups := make([]DieSpec, len(raws))
	for i, raw := range raws {
		groups[i], err = NewDieSpec(raw.die.multiplier, raw.die.size, raw.modifier, groupOpts)
		if err != nil {
			return nil, nil, opts, err
		}
	}
	if len(groups) == 1 {
		return groups, connectors, DieOptions{}, nil
	}
	return groups, connectors, opts, nil
}

var dieTermCache = newMemo[string, dieTerm]()

// parseDieTerm reads "<multiplier>d<size>" where the multiplier is optional.
func parseDieTerm(s string) (dieTerm, error) {
	return dieTermCache.getOrCompute(s, func() (dieTerm, error) {
		prefix, suffix, ok := strings.Cut(s, "d")
		if !ok || strings.Contains(suffix, "d") {
			return dieTerm{}, fmt.Errorf("%w: bad die term %q", ErrMalformedExpression, s)
		}
		multiplier := 1
		if prefix != "" {
			m, err := parseDigits(prefix, maxMultiplierDigits)
			if err != nil {
				return dieTerm{}, err
			}
			if m == 0 {
				return dieTerm{}, fmt.Errorf("%w: zero dice in %q", ErrMalformedExpression, s)
			}
			multiplier = m
		}
		size, err := parseDigits(suffix, maxSizeDigits)
		if err != nil {
			return dieTerm{}, err
		}
		if !IsSupportedSize(size) {
			return dieTerm{}, fmt.Errorf("%w: d%d", ErrUnknownDieSize, size)
		}
		return dieTerm{multiplier: multiplier, size: size}, nil
	})
}

func parseDigits(s string, maxDigits int) (int, error) {
	if s == "" || len(s) > maxDigits {
		return 0, fmt.Errorf("%w: expected 1-%d digits, got %q", ErrMalformedExpression, maxDigits, s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: unexpected %q in %q", ErrMalformedExpression, r, s)
		}
	}
	return strconv.Atoi(s)
}

func parseModifierTerm(sign Connector, s string) (int, error) {
	v, err := parseDigits(s, maxModifierDigits)
	if err != nil {
		return 0, err
	}
	if sign == Minus {
		return -v, nil
	}
	return v, nil
}

// FoldModifier evaluates a modifier string such as "+2+3" or "-1". An
// unsigned leading term counts as positive and the empty string is zero.
func FoldModifier(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	sign := Plus
	total := 0
	for i, tok := range tokenize(s) {
		if tok.kind == signToken {
			sign = Connector(tok.text)
			continue
		}
		// The leading term is empty when s starts with a sign.
		if i == 0 && tok.text == "" {
			continue
		}
		v, err := parseModifierTerm(sign, tok.text)
		if err != nil {
			return 0, err
		}
		total += v
	}
	if err := CheckShift("modifier", total); err != nil {
		return 0, err
	}
	return total, nil
}
