package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/abennett/ttt/pkg"
)

var ErrNegativeOption = errors.New("option must not be negative")

// coerceInt is the one place loosely typed option values become ints.
// nil and false are 0, true is 1, and numbers or digit strings are read as
// integers.
func coerceInt(v any) (int, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not a whole number", v)
		}
		return int(v), nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s is not a whole number", v)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}

func coerceCount(v any, name string) (int, error) {
	i, err := coerceInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if i < 0 {
		return 0, fmt.Errorf("%s: %w", name, ErrNegativeOption)
	}
	return i, nil
}

// coerceShift reads subAll or addAll, which also shift faces.
func coerceShift(v any, name string) (int, error) {
	i, err := coerceCount(v, name)
	if err != nil {
		return 0, err
	}
	return i, pkg.CheckShift(name, i)
}

// ParseDieOptions reads dropLowest, rerollTotal, rerollDie, subAll and
// addAll. Unknown keys are ignored.
func ParseDieOptions(m map[string]any) (pkg.DieOptions, error) {
	var opts pkg.DieOptions
	var err error
	if opts.DropLowest, err = coerceCount(m["dropLowest"], "dropLowest"); err != nil {
		return opts, err
	}
	if opts.SubAll, err = coerceShift(m["subAll"], "subAll"); err != nil {
		return opts, err
	}
	if opts.AddAll, err = coerceShift(m["addAll"], "addAll"); err != nil {
		return opts, err
	}

	switch v := m["rerollTotal"].(type) {
	case nil:
	case bool:
		if v {
			return opts, errors.New("rerollTotal: true is not a threshold")
		}
	default:
		threshold, err := coerceInt(v)
		if err != nil {
			return opts, fmt.Errorf("rerollTotal: %w", err)
		}
		opts.RerollTotal = &threshold
	}

	switch v := m["rerollDie"].(type) {
	case nil:
	case bool:
		if v {
			opts.RerollDie = []int{1}
		}
	case []any:
		for _, face := range v {
			f, err := coerceInt(face)
			if err != nil {
				return opts, fmt.Errorf("rerollDie: %w", err)
			}
			opts.RerollDie = append(opts.RerollDie, f)
		}
	default:
		f, err := coerceInt(v)
		if err != nil {
			return opts, fmt.Errorf("rerollDie: %w", err)
		}
		opts.RerollDie = []int{f}
	}
	return opts, nil
}

// ParseBatchOptions reads the request wide options. The die scoped
// rerollTotal and rerollDie are not accepted here and are ignored.
func ParseBatchOptions(m map[string]any) (pkg.BatchOptions, error) {
	var batch pkg.BatchOptions
	var err error
	if batch.RepeatRoll, err = coerceCount(m["repeatRoll"], "repeatRoll"); err != nil {
		return batch, err
	}
	if batch.RepeatRoll > pkg.MaxRepeatRoll {
		return batch, fmt.Errorf("repeatRoll: %w", pkg.ErrRepeatLimit)
	}
	if batch.DropLowest, err = coerceCount(m["dropLowest"], "dropLowest"); err != nil {
		return batch, err
	}
	if batch.SubAll, err = coerceShift(m["subAll"], "subAll"); err != nil {
		return batch, err
	}
	if batch.AddAll, err = coerceShift(m["addAll"], "addAll"); err != nil {
		return batch, err
	}
	return batch, nil
}

// OptionsFromQuery reads die options from query parameters. rerollDie may
// hold a comma separated list of faces.
func OptionsFromQuery(q url.Values) (pkg.DieOptions, error) {
	m := map[string]any{}
	for _, key := range []string{"dropLowest", "rerollTotal", "subAll", "addAll"} {
		if q.Has(key) {
			m[key] = Coerce(q.Get(key))
		}
	}
	if q.Has("rerollDie") {
		raw := q.Get("rerollDie")
		if strings.Contains(raw, ",") {
			var faces []any
			for _, f := range strings.Split(raw, ",") {
				faces = append(faces, f)
			}
			m["rerollDie"] = faces
		} else {
			m["rerollDie"] = Coerce(raw)
		}
	}
	opts, err := ParseDieOptions(m)
	if err != nil {
		return opts, fail(err)
	}
	return opts, nil
}
