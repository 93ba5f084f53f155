// Package irr finds the internal rate of return of a dated cash-flow sequence.
//
// Cash flows are discounted on elapsed years from the earliest entry under a
// day-count convention, so the rate found is an annual effective rate:
//
//	NPV(r) = Σ amount_i / (1+r)^t_i
//
// Newton-Raphson runs first from a money-weighted initial guess. If it fails
// to converge, bisection runs on the sign-changing bracket of a coarse rate
// grid that lies nearest the initial guess.
//
// When the sequence changes sign more than once (for example tranches
// disbursed after repayments have begun) NPV may have several roots. Only the
// root nearest the initial guess is returned and the Solution is marked
// Approximate.
package irr

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/loan-eir/pkg/cashflow"
	"github.com/iwvelando/loan-eir/pkg/constants"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/iwvelando/loan-eir/pkg/mathutil"
	"go.uber.org/zap"
)

const (
	coarseStep = 0.05
	wideStep   = 0.25
	wideFrom   = 1.0
)

// Strategy names the root-finding method that produced a Solution.
type Strategy string

// Root-finding strategies.
const (
	StrategyNewton    Strategy = "newton"
	StrategyBisection Strategy = "bisection"
)

// Options bound the solver. Zero fields take the package defaults.
type Options struct {
	ToleranceFactor     float64
	MaxIterations       int
	BisectionIterations int
	MinRate             float64
	MaxRate             float64
}

// DefaultOptions returns the solver defaults.
func DefaultOptions() Options {
	return Options{
		ToleranceFactor:     constants.DefaultToleranceFactor,
		MaxIterations:       constants.DefaultMaxIterations,
		BisectionIterations: constants.DefaultBisectionIterations,
		MinRate:             constants.DefaultMinRate,
		MaxRate:             constants.DefaultMaxRate,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.ToleranceFactor <= 0 {
		o.ToleranceFactor = defaults.ToleranceFactor
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaults.MaxIterations
	}
	if o.BisectionIterations <= 0 {
		o.BisectionIterations = defaults.BisectionIterations
	}
	if o.MinRate == 0 && o.MaxRate == 0 {
		o.MinRate = defaults.MinRate
		o.MaxRate = defaults.MaxRate
	}
	if o.MinRate <= -1 {
		o.MinRate = defaults.MinRate
	}
	if o.MaxRate <= o.MinRate {
		o.MaxRate = defaults.MaxRate
	}
	return o
}

// Solution is a rate found by the solver.
type Solution struct {
	// Rate is the annual effective rate as a fraction (0.12 = 12%).
	Rate         float64
	InitialGuess float64
	Iterations   int
	Strategy     Strategy
	// Approximate is set when the cash flows change sign more than once.
	Approximate bool
	// Tolerance is the NPV magnitude accepted as zero.
	Tolerance float64
	// Residual is NPV evaluated at Rate.
	Residual float64
}

// Solver finds internal rates of return. It holds no mutable state and is
// safe for concurrent use.
type Solver struct {
	logger *zap.Logger
	opts   Options
}

// NewSolver creates a solver with the given options.
func NewSolver(logger *zap.Logger, opts Options) *Solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{logger: logger, opts: opts.withDefaults()}
}

// Options returns the effective solver options.
func (s *Solver) Options() Options {
	return s.opts
}

// Solve returns the rate at which the net present value of entries is zero.
// Entries need not be sorted; same-day entries are merged first.
func (s *Solver) Solve(entries []cashflow.Entry, convention datetime.DayCount) (Solution, error) {
	flows, err := newSeries(entries, convention)
	if err != nil {
		return Solution{}, err
	}

	tolerance := s.opts.ToleranceFactor * flows.magnitude
	guess := mathutil.Clamp(flows.initialGuess(), s.opts.MinRate, s.opts.MaxRate)
	approximate := flows.signChanges > 1

	rate, iterations, ok := s.newton(flows, guess, tolerance)
	if ok {
		return Solution{
			Rate:         rate,
			InitialGuess: guess,
			Iterations:   iterations,
			Strategy:     StrategyNewton,
			Approximate:  approximate,
			Tolerance:    tolerance,
			Residual:     flows.npv(rate),
		}, nil
	}

	s.logger.Debug("newton-raphson did not converge, falling back to bisection",
		zap.String("op", "irr.Solve"),
		zap.Float64("initialGuess", guess),
		zap.Float64("lastRate", rate),
		zap.Int("iterations", iterations),
	)

	rate, bisections, err := s.bisect(flows, guess, tolerance)
	iterations += bisections
	if err != nil {
		var nc *NonConvergenceError
		if errors.As(err, &nc) {
			nc.Iterations = iterations
		}
		return Solution{}, err
	}

	return Solution{
		Rate:         rate,
		InitialGuess: guess,
		Iterations:   iterations,
		Strategy:     StrategyBisection,
		Approximate:  approximate,
		Tolerance:    tolerance,
		Residual:     flows.npv(rate),
	}, nil
}

// newton returns the last rate tried, the number of NPV evaluations and
// whether the tolerance was met.
func (s *Solver) newton(flows series, guess, tolerance float64) (float64, int, bool) {
	rate := guess
	for i := 1; i <= s.opts.MaxIterations; i++ {
		value := flows.npv(rate)
		if !mathutil.IsFinite(value) {
			return rate, i, false
		}
		if math.Abs(value) < tolerance {
			return rate, i, true
		}

		slope := flows.derivative(rate)
		if !mathutil.IsFinite(slope) || math.Abs(slope) < constants.DerivativeThreshold {
			return rate, i, false
		}

		next := mathutil.Clamp(rate-value/slope, s.opts.MinRate, s.opts.MaxRate)
		if next == rate {
			return rate, i, false
		}
		rate = next
	}
	return rate, s.opts.MaxIterations, false
}

type bracket struct {
	lo, hi    float64
	fLo       float64
	exactRoot bool
}

// bisect scans the rate grid for sign changes and bisects the bracket
// nearest guess.
func (s *Solver) bisect(flows series, guess, tolerance float64) (float64, int, error) {
	grid := rateGrid(s.opts.MinRate, s.opts.MaxRate)
	values := make([]float64, len(grid))
	finite := 0
	for i, rate := range grid {
		values[i] = flows.npv(rate)
		if mathutil.IsFinite(values[i]) {
			finite++
		}
	}
	if finite == 0 {
		return 0, 0, &NonConvergenceError{
			LastRate: guess,
			Reason:   "net present value is not finite anywhere in the scanned rate range",
		}
	}

	var best *bracket
	bestDistance := math.Inf(1)
	consider := func(b bracket) {
		distance := math.Abs((b.lo+b.hi)/2 - guess)
		if distance < bestDistance {
			bestDistance = distance
			candidate := b
			best = &candidate
		}
	}

	for i := 0; i < len(grid); i++ {
		if !mathutil.IsFinite(values[i]) {
			continue
		}
		if math.Abs(values[i]) < tolerance {
			consider(bracket{lo: grid[i], hi: grid[i], fLo: values[i], exactRoot: true})
			continue
		}
		if i+1 < len(grid) && mathutil.IsFinite(values[i+1]) && !mathutil.SameSign(values[i], values[i+1]) &&
			math.Abs(values[i+1]) >= tolerance {
			consider(bracket{lo: grid[i], hi: grid[i+1], fLo: values[i]})
		}
	}

	if best == nil {
		return 0, 0, &NonConvergenceError{
			LastRate: guess,
			Reason: fmt.Sprintf("no sign change in net present value between %.2f%% and %.2f%%",
				mathutil.ToPercentage(s.opts.MinRate), mathutil.ToPercentage(s.opts.MaxRate)),
		}
	}
	if best.exactRoot {
		return best.lo, 0, nil
	}

	lo, hi, fLo := best.lo, best.hi, best.fLo
	mid := lo
	for i := 1; i <= s.opts.BisectionIterations; i++ {
		mid = (lo + hi) / 2
		fMid := flows.npv(mid)
		if math.Abs(fMid) < tolerance {
			return mid, i, nil
		}
		if mathutil.SameSign(fMid, fLo) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}

	return 0, s.opts.BisectionIterations, &NonConvergenceError{
		LastRate: mid,
		Reason:   fmt.Sprintf("bisection between %g and %g did not reach tolerance %g", best.lo, best.hi, tolerance),
	}
}

// rateGrid returns candidate rates from min to max, finer below wideFrom.
func rateGrid(min, max float64) []float64 {
	grid := []float64{min}
	for i := 1; ; i++ {
		rate := min + float64(i)*coarseStep
		if rate >= wideFrom || rate >= max {
			break
		}
		grid = append(grid, rate)
	}
	start := math.Max(wideFrom, min)
	for i := 0; ; i++ {
		rate := start + float64(i)*wideStep
		if rate >= max {
			break
		}
		if rate > grid[len(grid)-1] {
			grid = append(grid, rate)
		}
	}
	return append(grid, max)
}

// NPV returns the net present value of entries at rate, discounting each entry
// by the elapsed years from the earliest entry under convention.
func NPV(entries []cashflow.Entry, rate float64, convention datetime.DayCount) float64 {
	normalized := cashflow.Normalize(entries)
	if len(normalized) == 0 {
		return 0
	}
	flows := seriesFrom(normalized, convention)
	return flows.npv(rate)
}
