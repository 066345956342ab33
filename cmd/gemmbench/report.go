package main

import (
	"cmp"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"github.com/janpfeifer/must"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gomlx/gemm"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == 1 {
				s = headerRowStyle
				return
			}
			switch {
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

func report(engine *gemm.Engine, results []result) {
	runID := uuid.NewString()
	fmt.Println(titleStyle.Render(fmt.Sprintf("gemmbench run %s", runID)))
	p := engine.Params()
	fmt.Printf("kernel=%q  mr=%d nr=%d mc=%d kc=%d nc=%d\n\n",
		engine.KernelName(), p.MR, p.NR, p.MC, p.KC, p.NC)

	table := newPlainTable(true)
	table.Row("Case", "M", "N", "K", "Runs", "ms/op", "GFLOPS", "FLOPs/run")
	for _, r := range results {
		table.Row(
			r.name,
			humanize.Comma(int64(r.m)),
			humanize.Comma(int64(r.n)),
			humanize.Comma(int64(r.k)),
			humanize.Comma(int64(r.runs)),
			fmt.Sprintf("%.3f", r.avgPerOp.Seconds()*1e3),
			fmt.Sprintf("%.2f", r.gflops),
			humanize.Comma(r.flopsPerRun()),
		)
	}
	fmt.Println(table.Render())

	if *flagCSV != "" {
		writeCSV(runID, results)
	}
	if *flagPlot != "" {
		writePlot(engine.KernelName(), results)
	}
}

// writeCSV exports the results as a dataframe, one row per case.
func writeCSV(runID string, results []result) {
	records := [][]string{
		{"run_id", "case", "m", "n", "k", "runs", "avg_ms", "gflops", "flops_per_run"},
	}
	for _, r := range results {
		records = append(records, []string{
			runID,
			r.name,
			strconv.Itoa(r.m),
			strconv.Itoa(r.n),
			strconv.Itoa(r.k),
			strconv.Itoa(r.runs),
			strconv.FormatFloat(r.avgPerOp.Seconds()*1e3, 'f', 6, 64),
			strconv.FormatFloat(r.gflops, 'f', 3, 64),
			strconv.FormatInt(r.flopsPerRun(), 10),
		})
	}
	df := dataframe.LoadRecords(records)
	must.M(df.Err)
	f := must.M1(os.Create(*flagCSV))
	defer func() { _ = f.Close() }()
	must.M(df.WriteCSV(f))
	fmt.Printf("results written to %s\n", *flagCSV)
}

// writePlot draws GFLOPS against the effective problem size, the cube
// root of m·n·k, so rectangular cases land where an equivalent cube would.
func writePlot(kernelName string, results []result) {
	pts := make(plotter.XYs, 0, len(results))
	for _, r := range results {
		pts = append(pts, plotter.XY{
			X: math.Cbrt(float64(r.m) * float64(r.n) * float64(r.k)),
			Y: r.gflops,
		})
	}
	slices.SortFunc(pts, func(a, b plotter.XY) int { return cmp.Compare(a.X, b.X) })

	p := plot.New()
	p.Title.Text = "MulAdd throughput"
	p.X.Label.Text = "effective size ∛(m·n·k)"
	p.Y.Label.Text = "GFLOPS"
	p.Y.Min = 0

	line := must.M1(plotter.NewLine(pts))
	dots := must.M1(plotter.NewScatter(pts))
	p.Add(line, dots)
	p.Legend.Add(kernelName, line)

	must.M(p.Save(8*vg.Inch, 5*vg.Inch, *flagPlot))
	fmt.Printf("plot written to %s\n", *flagPlot)
}
