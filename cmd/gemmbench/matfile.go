package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/daniellowtw/matlab"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/gomlx/gemm"
)

// runMatCase times one multiply whose operands come from a MATLAB (level 5)
// .mat file instead of random data. MATLAB stores matrices column-major, so
// each variable is wrapped as the transpose of a row-major view over the
// same values, which exercises the engine's strided paths for real.
func runMatCase(engine *gemm.Engine, bc benchCase) {
	f := must.M1(os.Open(*flagMat))
	defer func() { _ = f.Close() }()
	matFile := must.M1(matlab.NewFileFromReader(f))

	loadVar := func(name string, rows, cols int) gemm.Matrix {
		matVar, found := matFile.GetVar(name)
		if !found {
			klog.Exitf("Variable %q not found in %q.", name, *flagMat)
		}
		values := matVar.Value()
		if len(values) != rows*cols {
			klog.Exitf("Variable %q in %q holds %d values, case %s needs it to be %dx%d (%d values).",
				name, *flagMat, len(values), bc.name, rows, cols, rows*cols)
		}
		data := make([]float64, len(values))
		for ii, value := range values {
			switch v := value.(type) {
			case float64:
				data[ii] = v
			case float32:
				data[ii] = float64(v)
			case int64:
				data[ii] = float64(v)
			case int32:
				data[ii] = float64(v)
			case int16:
				data[ii] = float64(v)
			case int8:
				data[ii] = float64(v)
			case uint8:
				data[ii] = float64(v)
			default:
				klog.Exitf("Variable %q in %q has unsupported element type %T.", name, *flagMat, value)
			}
		}
		// Column-major rows x cols is the transpose of row-major cols x rows.
		return must.M1(gemm.FromFlatData(data, cols, rows)).T()
	}

	a := loadVar(*flagMatA, bc.m, bc.k)
	b := loadVar(*flagMatB, bc.k, bc.n)
	c := gemm.NewMatrix(bc.m, bc.n)
	if *flagMatC != "" {
		c = loadVar(*flagMatC, bc.m, bc.n)
	}

	want := cloneMatrix(c)
	naiveMulAdd(want, a, b)

	start := time.Now()
	must.M(engine.MulAdd(c, a, b))
	elapsed := time.Since(start)

	tolerance := 1e-10 * float64(bc.k+1)
	maxDiff := 0.0
	for i := 0; i < c.Rows; i++ {
		for j := 0; j < c.Cols; j++ {
			maxDiff = math.Max(maxDiff, math.Abs(c.At(i, j)-want.At(i, j)))
		}
	}
	if maxDiff > tolerance || math.IsNaN(maxDiff) {
		klog.Exitf("Result disagrees with the naive reference: max |diff| %g > %g.", maxDiff, tolerance)
	}
	fmt.Printf("max |diff| vs naive reference: %g\n", maxDiff)

	report(engine, []result{{
		benchCase: bc,
		runs:      1,
		avgPerOp:  elapsed,
		gflops:    float64(bc.flopsPerRun()) / elapsed.Seconds() / 1e9,
	}})
}
