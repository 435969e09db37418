package monitor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ReportFile is the name SaveReport writes inside the output directory.
const ReportFile = "report.html"

// WriteReport renders the recorded trends as an HTML page of line charts.
func (r *Recorder) WriteReport(w io.Writer, title string) error {
	stats := r.Stats()
	sum := r.Summary()

	x := make([]string, len(stats))
	for i, s := range stats {
		x[i] = strconv.Itoa(s.RTime)
	}
	subtitle := fmt.Sprintf("steps=%d snapshots=%d peak=%.3g@%d", sum.Steps, sum.Snapshots, sum.PeakMaxAbs, sum.PeakRTime)

	page := components.NewPage()
	page.PageTitle = title
	for _, tr := range trends {
		data := make([]opts.LineData, len(stats))
		for i, s := range stats {
			data[i] = opts.LineData{Value: tr.value(s)}
		}
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "420px"}),
			charts.WithTitleOpts(opts.Title{Title: tr.title, Subtitle: subtitle}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithXAxisOpts(opts.XAxis{Name: "rtime", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: tr.yAxis}),
		)
		line.SetXAxis(x).AddSeries(tr.yAxis, data)
		page.AddCharts(line)
	}
	return page.Render(w)
}

// SaveReport writes ReportFile into the output directory and returns its
// path.
func (r *Recorder) SaveReport(title string) (string, error) {
	dir := r.OutputDir()
	if dir == "" {
		return "", fmt.Errorf("no output directory configured")
	}
	path := filepath.Join(dir, ReportFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := r.WriteReport(f, title); err != nil {
		f.Close()
		return "", fmt.Errorf("render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
