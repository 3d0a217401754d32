package pkg

import (
	"fmt"
	"strings"
)

const (
	// MaxRepeatRoll bounds BatchOptions.RepeatRoll.
	MaxRepeatRoll = 10
	// MaxShift bounds modifiers and the SubAll and AddAll shifts.
	MaxShift = 1000
)

// CheckShift rejects a modifier or face shift outside ±MaxShift.
func CheckShift(name string, v int) error {
	if v < -MaxShift || v > MaxShift {
		return fmt.Errorf("%w: %s %d is outside ±%d", ErrOutOfRange, name, v, MaxShift)
	}
	return nil
}

// DieOptions shape a single die group.
type DieOptions struct {
	// DropLowest discards the N lowest single-die draws of the group.
	DropLowest int
	// RerollTotal redraws the group until its total exceeds the threshold.
	RerollTotal *int
	// RerollDie removes each listed face once from the die.
	RerollDie []int
	SubAll    int
	AddAll    int
}

func (o DieOptions) IsZero() bool {
	return o.DropLowest == 0 && o.RerollTotal == nil && len(o.RerollDie) == 0 &&
		o.SubAll == 0 && o.AddAll == 0
}

// BatchOptions apply across every die group of a request.
type BatchOptions struct {
	// RepeatRoll draws the whole set of groups this many times. Zero means once.
	RepeatRoll int
	// DropLowest discards the N repeats with the lowest totals.
	DropLowest int
	// SubAll and AddAll shift every die group value of the surviving repeats.
	SubAll int
	AddAll int
}

func (b BatchOptions) repeats() int {
	return max(1, b.RepeatRoll)
}

func (b BatchOptions) validate() error {
	if b.RepeatRoll > MaxRepeatRoll {
		return fmt.Errorf("%w: %d > %d", ErrRepeatLimit, b.RepeatRoll, MaxRepeatRoll)
	}
	if err := CheckShift("subAll", b.SubAll); err != nil {
		return err
	}
	if err := CheckShift("addAll", b.AddAll); err != nil {
		return err
	}
	if b.DropLowest > 0 && b.repeats() <= b.DropLowest {
		return fmt.Errorf("%w: dropping %d of %d repeats", ErrDropCountExceedsRolls, b.DropLowest, b.repeats())
	}
	return nil
}

// Connector joins the totals of two neighbouring die groups.
type Connector string

const (
	Plus  Connector = "+"
	Minus Connector = "-"
)

func (c Connector) Valid() bool {
	return c == Plus || c == Minus
}

func (c Connector) Apply(a, b int) int {
	if c == Minus {
		return a - b
	}
	return a + b
}

func validateConnectors(groups int, connectors []Connector) error {
	if len(connectors) != groups-1 {
		return fmt.Errorf("%w: %d groups need %d connectors, got %d",
			ErrInvalidConnectors, groups, groups-1, len(connectors))
	}
	var bad []string
	for _, c := range connectors {
		if !c.Valid() {
			bad = append(bad, fmt.Sprintf("%q", string(c)))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConnectors, strings.Join(bad, ", "))
	}
	return nil
}
