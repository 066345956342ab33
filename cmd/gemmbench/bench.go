package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"

	"github.com/gomlx/gemm"
)

// benchCase is one problem size to measure: C (m x n) += A (m x k) · B (k x n).
type benchCase struct {
	name    string
	m, n, k int
}

// flopsPerRun counts one multiply and one add per inner-product term.
func (bc benchCase) flopsPerRun() int64 {
	return 2 * int64(bc.m) * int64(bc.n) * int64(bc.k)
}

// result is one measured case.
type result struct {
	benchCase
	runs     int
	avgPerOp time.Duration
	gflops   float64
}

// parseSizes expands a -sizes value into cases: "S" means SxSxS, "MxNxK"
// is explicit.
func parseSizes(spec string) ([]benchCase, error) {
	var cases []benchCase
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dims := strings.Split(part, "x")
		var m, n, k int
		switch len(dims) {
		case 1:
			s, err := parseDim(dims[0])
			if err != nil {
				return nil, errors.WithMessagef(err, "size %q", part)
			}
			m, n, k = s, s, s
		case 3:
			var err error
			if m, err = parseDim(dims[0]); err == nil {
				if n, err = parseDim(dims[1]); err == nil {
					k, err = parseDim(dims[2])
				}
			}
			if err != nil {
				return nil, errors.WithMessagef(err, "size %q", part)
			}
		default:
			return nil, errors.Errorf("size %q must be S or MxNxK", part)
		}
		cases = append(cases, benchCase{name: part, m: m, n: n, k: k})
	}
	if len(cases) == 0 {
		return nil, errors.Errorf("no sizes given in %q", spec)
	}
	return cases, nil
}

func parseDim(s string) (int, error) {
	// "_" works as a thousands separator, as in Go literals: 1_024.
	v, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	if err != nil {
		return 0, errors.Wrapf(err, "parsing dimension %q", s)
	}
	if v <= 0 {
		return 0, errors.Errorf("dimension %q must be positive", s)
	}
	return v, nil
}

// applyParamsSettings overrides fields of p from a settings string in the
// usual "key=value;key=value" format, keys being mr, nr, mc, kc and nc.
func applyParamsSettings(p gemm.Params, settings string) (gemm.Params, error) {
	if settings == "" {
		return p, nil
	}
	for _, setting := range strings.Split(settings, ";") {
		if setting == "" {
			continue
		}
		key, value, ok := strings.Cut(setting, "=")
		if !ok {
			return p, errors.Errorf("each setting requires the format \"<param>=<value>\", got %q", setting)
		}
		// Like Go literals, "_" may separate digit groups: kc=1_024.
		n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(value), "_", ""))
		if err != nil {
			return p, errors.Wrapf(err, "parsing setting %q", setting)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "mr":
			p.MR = n
		case "nr":
			p.NR = n
		case "mc":
			p.MC = n
		case "kc":
			p.KC = n
		case "nc":
			p.NC = n
		default:
			return p, errors.Errorf("unknown blocking parameter %q in %q (valid: mr, nr, mc, kc, nc)", key, setting)
		}
	}
	return p, nil
}

// measure times every case, with an optional pre-timing verification
// against the naive reference. The progress bar owns the cursor while
// measuring; it is restored on every exit path.
func measure(engine *gemm.Engine, cases []benchCase) ([]result, error) {
	rng := rand.New(rand.NewSource(*flagSeed))
	out := termenv.NewOutput(os.Stdout)
	out.HideCursor()
	defer out.ShowCursor()
	bar := progressbar.NewOptions(len(cases),
		progressbar.OptionSetDescription("measuring"),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
	)

	results := make([]result, 0, len(cases))
	for _, bc := range cases {
		a := randomMatrix(rng, bc.m, bc.k)
		b := randomMatrix(rng, bc.k, bc.n)
		c := randomMatrix(rng, bc.m, bc.n)

		if *flagVerify {
			if err := verifyCase(engine, bc, a, b, c); err != nil {
				return nil, err
			}
		}

		// Warm-up run, also surfaces errors before the timed loop.
		if err := engine.MulAdd(c, a, b); err != nil {
			return nil, errors.WithMessagef(err, "case %s", bc.name)
		}

		start := time.Now()
		runs := 0
		for runs < *flagMinRuns || time.Since(start) < *flagDuration {
			if err := engine.MulAdd(c, a, b); err != nil {
				return nil, errors.WithMessagef(err, "case %s", bc.name)
			}
			runs++
		}
		avg := time.Since(start) / time.Duration(runs)
		results = append(results, result{
			benchCase: bc,
			runs:      runs,
			avgPerOp:  avg,
			gflops:    float64(bc.flopsPerRun()) / avg.Seconds() / 1e9,
		})
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Println()
	return results, nil
}

// verifyCase runs the engine and the naive triple loop on fresh copies of
// the operands and compares them within a tolerance that grows with the
// contracting size.
func verifyCase(engine *gemm.Engine, bc benchCase, a, b, c gemm.Matrix) error {
	got := cloneMatrix(c)
	want := cloneMatrix(c)
	if err := engine.MulAdd(got, a, b); err != nil {
		return errors.WithMessagef(err, "verifying case %s", bc.name)
	}
	naiveMulAdd(want, a, b)
	tolerance := 1e-10 * float64(bc.k+1)
	for i := 0; i < want.Rows; i++ {
		for j := 0; j < want.Cols; j++ {
			diff := math.Abs(want.At(i, j) - got.At(i, j))
			if diff > tolerance || math.IsNaN(diff) {
				return errors.Errorf("case %s failed verification: C[%d,%d] = %g, reference %g (|diff| %g > %g)",
					bc.name, i, j, got.At(i, j), want.At(i, j), diff, tolerance)
			}
		}
	}
	return nil
}

// naiveMulAdd is the reference implementation: the plain triple loop.
func naiveMulAdd(c, a, b gemm.Matrix) {
	for i := 0; i < c.Rows; i++ {
		for j := 0; j < c.Cols; j++ {
			sum := c.At(i, j)
			for k := 0; k < a.Cols; k++ {
				sum += a.At(i, k) * b.At(k, j)
			}
			c.Set(i, j, sum)
		}
	}
}

func randomMatrix(rng *rand.Rand, rows, cols int) gemm.Matrix {
	m := gemm.NewMatrix(rows, cols)
	for i := range m.Data {
		m.Data[i] = rng.NormFloat64()
	}
	return m
}

func cloneMatrix(m gemm.Matrix) gemm.Matrix {
	clone := gemm.NewMatrix(m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			clone.Set(i, j, m.At(i, j))
		}
	}
	return clone
}
