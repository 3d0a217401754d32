// Package request turns loosely typed roll requests into die groups the
// roller can execute.
package request

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/abennett/ttt/pkg"
)

var (
	ErrNotAnObject = errors.New("payload is not an object")
	ErrNoDice      = errors.New("no dice in payload")
)

// Normalized is a request ready for pkg.Roller.Execute.
type Normalized struct {
	Groups     []pkg.DieSpec
	Connectors []pkg.Connector
	Batch      pkg.BatchOptions
}

// Normalize decodes a JSON payload, coercing string booleans and nulls, and
// normalizes it. The payload is either a single die object with dString,
// modifier and dieOptions, or an object with a dice list and diceOptions.
func Normalize(payload []byte) (*Normalized, error) {
	m, err := Decode(payload)
	if err != nil {
		return nil, fail(err)
	}
	return NormalizeMap(m)
}

// Decode reads a JSON object and applies Coerce to every value in it.
func Decode(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(payload)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	m, ok := Coerce(v).(map[string]any)
	if !ok {
		return nil, ErrNotAnObject
	}
	return m, nil
}

// Coerce walks a decoded value and replaces the strings "true", "false",
// "none" and "null" (in any case) with true, false, nil and nil.
func Coerce(v any) any {
	switch v := v.(type) {
	case string:
		switch strings.ToLower(v) {
		case "true":
			return true
		case "false":
			return false
		case "none", "null":
			return nil
		}
		return v
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Coerce(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Coerce(item)
		}
		return out
	default:
		return v
	}
}

type item struct {
	id        int
	dString   string
	modifier  int
	connector *pkg.Connector
	opts      pkg.DieOptions
}

// NormalizeMap normalizes an already decoded request.
func NormalizeMap(m map[string]any) (*Normalized, error) {
	n, err := normalize(m)
	if err != nil {
		return nil, fail(err)
	}
	return n, nil
}

func fail(err error) error {
	return fmt.Errorf("%w: %w", pkg.ErrNormalization, err)
}

func normalize(m map[string]any) (*Normalized, error) {
	rawDice, err := asList(m["dice"], "dice")
	if err != nil {
		return nil, err
	}
	if len(rawDice) == 0 && m["dString"] != nil {
		rawDice = []any{m}
	}
	if len(rawDice) == 0 {
		return nil, ErrNoDice
	}

	items := make([]item, len(rawDice))
	for i, raw := range rawDice {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dice[%d]: %w", i, ErrNotAnObject)
		}
		items[i], err = parseItem(obj)
		if err != nil {
			return nil, fmt.Errorf("dice[%d]: %w", i, err)
		}
	}
	slices.SortStableFunc(items, func(a, b item) int {
		return cmp.Compare(a.id, b.id)
	})

	n := &Normalized{}
	for i, it := range items {
		g, err := pkg.ParseDieString(it.dString, "", it.opts)
		if err != nil {
			return nil, fmt.Errorf("dice id %d: %w", it.id, err)
		}
		if err := pkg.CheckShift("modifier", it.modifier); err != nil {
			return nil, fmt.Errorf("dice id %d: %w", it.id, err)
		}
		g.Modifier = it.modifier
		n.Groups = append(n.Groups, g)
		if i < len(items)-1 && it.connector != nil {
			n.Connectors = append(n.Connectors, *it.connector)
		}
	}

	batchOpts, err := asObject(m["diceOptions"], "diceOptions")
	if err != nil {
		return nil, err
	}
	n.Batch, err = ParseBatchOptions(batchOpts)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func parseItem(obj map[string]any) (item, error) {
	var it item
	var err error
	if it.id, err = coerceInt(obj["id"]); err != nil {
		return it, fmt.Errorf("id: %w", err)
	}
	dString, ok := obj["dString"].(string)
	if !ok {
		return it, fmt.Errorf("dString must be a string, got %T", obj["dString"])
	}
	it.dString = dString

	switch mod := obj["modifier"].(type) {
	case nil:
	case string:
		if it.modifier, err = pkg.FoldModifier(mod); err != nil {
			return it, fmt.Errorf("modifier: %w", err)
		}
	default:
		if it.modifier, err = coerceInt(mod); err != nil {
			return it, fmt.Errorf("modifier: %w", err)
		}
	}

	switch c := obj["connectorString"].(type) {
	case nil:
	case string:
		conn := pkg.Connector(strings.TrimSpace(c))
		it.connector = &conn
	default:
		// left for the roller to reject
		conn := pkg.Connector(fmt.Sprint(c))
		it.connector = &conn
	}

	dieOpts, err := asObject(obj["dieOptions"], "dieOptions")
	if err != nil {
		return it, err
	}
	it.opts, err = ParseDieOptions(dieOpts)
	return it, err
}

func asList(v any, field string) ([]any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	default:
		return nil, fmt.Errorf("%s must be a list, got %T", field, v)
	}
}

func asObject(v any, field string) (map[string]any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("%s must be an object, got %T", field, v)
	}
}
