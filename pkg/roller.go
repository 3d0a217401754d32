package pkg

import (
	"fmt"
	"log/slog"
	"slices"
)

// MaxRerollAttempts is the number of draws a RerollTotal group gets before
// giving up.
const MaxRerollAttempts = 11

// Repeat is one pass over every die group of a request.
type Repeat struct {
	Total int   `json:"Total" msgpack:"total"`
	Dice  []int `json:"Dice" msgpack:"dice"`
}

// Result holds one Repeat per surviving repeat roll.
type Result struct {
	Rolls []Repeat `json:"Rolls" msgpack:"rolls"`
}

var defaultTables = NewTableCache()

type Roller struct {
	logger  *slog.Logger
	sampler Sampler
	tables  *TableCache
}

type Option func(*Roller)

func WithSampler(s Sampler) Option {
	return func(r *Roller) {
		r.sampler = s
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Roller) {
		r.logger = l
	}
}

func WithTables(c *TableCache) Option {
	return func(r *Roller) {
		r.tables = c
	}
}

// NewRoller returns a Roller drawing from DefaultSampler and the process
// wide table cache unless overridden.
func NewRoller(opts ...Option) *Roller {
	r := &Roller{
		logger:  slog.Default(),
		sampler: DefaultSampler,
		tables:  defaultTables,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Roller) Tables() *TableCache {
	return r.tables
}

// RollNotation parses expr and rolls it once. Options only apply to a single
// die group; with several groups they are ignored.
func (r *Roller) RollNotation(expr string, opts DieOptions) (Result, error) {
	groups, connectors, groupOpts, err := Parse(expr, opts)
	if err != nil {
		return Result{}, err
	}
	if !groupOpts.IsZero() {
		r.logger.Debug("ignoring options for multi-die expression", "expression", expr, "groups", len(groups))
	}
	return r.Execute(groups, connectors, BatchOptions{})
}

// Execute rolls every group, batch.RepeatRoll times when set, drops the
// lowest repeats, shifts the surviving values and combines each repeat
// through the connectors. Any failure aborts the whole roll.
func (r *Roller) Execute(groups []DieSpec, connectors []Connector, batch BatchOptions) (Result, error) {
	if len(groups) == 0 {
		return Result{}, fmt.Errorf("%w: no dice", ErrMalformedExpression)
	}
	if err := validateConnectors(len(groups), connectors); err != nil {
		return Result{}, err
	}
	if err := batch.validate(); err != nil {
		return Result{}, err
	}
	for _, g := range groups {
		if err := g.validate(); err != nil {
			return Result{}, err
		}
	}

	repeats := make([][]int, batch.repeats())
	for i := range repeats {
		values := make([]int, len(groups))
		for j, g := range groups {
			v, err := r.rollGroup(g)
			if err != nil {
				return Result{}, err
			}
			values[j] = v
		}
		repeats[i] = values
	}

	repeats = dropLowestRepeats(repeats, batch.DropLowest)

	shift := batch.AddAll - batch.SubAll
	result := Result{Rolls: make([]Repeat, len(repeats))}
	for i, values := range repeats {
		for j := range values {
			values[j] += shift
		}
		total := values[0]
		for j, c := range connectors {
			total = c.Apply(total, values[j+1])
		}
		result.Rolls[i] = Repeat{Total: total, Dice: values}
	}
	r.logger.Debug("rolled", "groups", len(groups), "repeats", len(result.Rolls))
	return result, nil
}

func (g DieSpec) validate() error {
	if err := CheckShift("modifier", g.Modifier); err != nil {
		return err
	}
	if g.Options.DropLowest > 0 && g.Multiplier <= g.Options.DropLowest {
		return fmt.Errorf("%w: dropping %d of %s", ErrDropCountExceedsRolls, g.Options.DropLowest, g)
	}
	if g.Options.RerollTotal != nil && *g.Options.RerollTotal >= g.maxRoll() {
		return fmt.Errorf("%w: %d >= %d for %s", ErrThresholdUnreachable, *g.Options.RerollTotal, g.maxRoll(), g)
	}
	return nil
}

func (r *Roller) rollGroup(g DieSpec) (int, error) {
	draw := r.drawChunks
	if g.Options.DropLowest > 0 {
		draw = r.drawDropLowest
	}
	var total int
	if g.Options.RerollTotal == nil {
		total = draw(g)
	} else {
		var err error
		total, err = r.rerollTotal(g, draw)
		if err != nil {
			return 0, err
		}
	}
	return total + g.Modifier, nil
}

// drawChunks draws one sum per multiplier chunk and adds them up.
func (r *Roller) drawChunks(g DieSpec) int {
	var total int
	for _, chunk := range g.Chunks() {
		total += r.sampler.Sample(r.tables.Distribution(g.Faces, chunk))
	}
	return total
}

// drawDropLowest draws every die on its own and discards the lowest ones.
func (r *Roller) drawDropLowest(g DieSpec) int {
	single := r.tables.Distribution(g.Faces, 1)
	draws := make([]int, g.Multiplier)
	for i := range draws {
		draws[i] = r.sampler.Sample(single)
	}
	slices.Sort(draws)
	var total int
	for _, v := range draws[g.Options.DropLowest:] {
		total += v
	}
	return total
}

func (r *Roller) rerollTotal(g DieSpec, draw func(DieSpec) int) (int, error) {
	threshold := *g.Options.RerollTotal
	for attempt := range MaxRerollAttempts {
		total := draw(g)
		if total > threshold {
			return total, nil
		}
		r.logger.Debug("rerolling", "group", g.String(), "total", total, "threshold", threshold, "attempt", attempt+1)
	}
	return 0, fmt.Errorf("%w: %s never exceeded %d in %d attempts", ErrRerollAttemptsExceeded, g, threshold, MaxRerollAttempts)
}

// dropLowestRepeats removes the n repeats whose summed values are lowest,
// keeping the order of the rest.
func dropLowestRepeats(repeats [][]int, n int) [][]int {
	for range n {
		lowest := 0
		for i := range repeats {
			if sum(repeats[i]) < sum(repeats[lowest]) {
				lowest = i
			}
		}
		repeats = slices.Delete(repeats, lowest, lowest+1)
	}
	return repeats
}

func sum(values []int) int {
	var total int
	for _, v := range values {
		total += v
	}
	return total
}
