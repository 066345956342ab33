package main

import (
	"flag"
	"os"
	"time"

	"k8s.io/klog/v2"

	"github.com/gomlx/gemm"
	"github.com/gomlx/gemm/scratch"
)

var (
	flagSizes = flag.String("sizes", "128,256,512", "Comma-separated problem sizes to measure. "+
		"Each entry is either S (meaning SxSxS) or MxNxK, e.g. \"128,512,1024x768x512\".")
	flagParams = flag.String("params", "", "Semicolon-separated overrides of the default blocking "+
		"parameters, e.g. \"mc=96;kc=256;nc=2048;mr=4;nr=4\". Unset keys keep their detected defaults.")
	flagKernel = flag.String("kernel", "", "Force a registered microkernel by name instead of the "+
		"best match for the blocking parameters. Leave empty for automatic selection.")
	flagMmap = flag.Bool("mmap", false, "Use the anonymous-mmap scratch allocator for packing buffers "+
		"instead of the pooled one. Useful for very large panels that should not grow the Go heap.")
	flagDuration = flag.Duration("duration", time.Second, "Minimum measuring time per case.")
	flagMinRuns  = flag.Int("min_runs", 3, "Minimum number of timed runs per case.")
	flagSeed     = flag.Int64("seed", 42, "Seed for the random operand data.")
	flagVerify   = flag.Bool("verify", false, "Check each case against a naive reference multiply "+
		"before timing it.")

	flagMat = flag.String("mat", "", "MATLAB .mat file to load operands from instead of random data. "+
		"Requires -sizes with exactly one MxNxK case giving the variable shapes.")
	flagMatA = flag.String("a", "A", "Name of the A variable inside the -mat file.")
	flagMatB = flag.String("b", "B", "Name of the B variable inside the -mat file.")
	flagMatC = flag.String("c", "", "Name of the C variable inside the -mat file. "+
		"If empty, C starts as zeros.")

	flagCSV  = flag.String("csv", "", "Write the results table to this CSV file.")
	flagPlot = flag.String("plot", "", "Write a GFLOPS-vs-size chart to this PNG file.")
)

func main() {
	flag.Parse()
	if flag.NArg() > 0 {
		klog.Errorf("Unexpected arguments %q. See 'gemmbench -help'.", flag.Args())
		os.Exit(1)
	}

	params, err := applyParamsSettings(gemm.DefaultParams(), *flagParams)
	if err != nil {
		klog.Errorf("Invalid -params: %v", err)
		os.Exit(1)
	}
	opts := []gemm.Option{gemm.WithParams(params)}
	if *flagKernel != "" {
		opts = append(opts, gemm.WithKernel(*flagKernel))
	}
	if *flagMmap {
		opts = append(opts, gemm.WithAllocator(scratch.NewMmap()))
	}
	engine, err := gemm.New(opts...)
	if err != nil {
		klog.Errorf("Failed to configure engine: %v", err)
		os.Exit(1)
	}

	cases, err := parseSizes(*flagSizes)
	if err != nil {
		klog.Errorf("Invalid -sizes: %v", err)
		os.Exit(1)
	}

	if *flagMat != "" {
		if len(cases) != 1 {
			klog.Errorf("-mat requires exactly one MxNxK case in -sizes to shape the variables, got %d.", len(cases))
			os.Exit(1)
		}
		runMatCase(engine, cases[0])
		return
	}

	results, err := measure(engine, cases)
	if err != nil {
		klog.Errorf("%+v", err)
		os.Exit(1)
	}
	report(engine, results)
}
