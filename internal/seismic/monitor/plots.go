package monitor

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// trend is one PNG written by GeneratePlots.
type trend struct {
	file  string
	title string
	yAxis string
	value func(StepStat) float64
}

var trends = []trend{
	{"wavefield_maxabs.png", "Wavefield peak amplitude", "max |u|", func(s StepStat) float64 { return s.MaxAbs }},
	{"wavefield_rms.png", "Wavefield RMS amplitude", "rms(u)", func(s StepStat) float64 { return s.RMS }},
}

// GeneratePlots writes one trend PNG per statistic into the output
// directory and returns the number written.
func (r *Recorder) GeneratePlots() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if len(r.stats) == 0 {
		return 0, nil
	}

	colors := generateColors(len(trends))
	count := 0
	for i, tr := range trends {
		if err := r.generateTrendPlot(tr, colors[i]); err != nil {
			return count, fmt.Errorf("%s: %w", tr.file, err)
		}
		count++
	}
	return count, nil
}

func (r *Recorder) generateTrendPlot(tr trend, c color.Color) error {
	p := plot.New()
	p.Title.Text = tr.title
	p.X.Label.Text = "Reversed time index"
	p.Y.Label.Text = tr.yAxis

	pts := make(plotter.XYs, 0, len(r.stats))
	var marks plotter.XYs
	for _, s := range r.stats {
		pt := plotter.XY{X: float64(s.RTime), Y: tr.value(s)}
		pts = append(pts, pt)
		if s.Snapshot {
			marks = append(marks, pt)
		}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(tr.yAxis, line)

	if len(marks) > 0 {
		sc, err := plotter.NewScatter(marks)
		if err != nil {
			return err
		}
		sc.Color = c
		p.Add(sc)
		p.Legend.Add("snapshot", sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	file := filepath.Join(r.outputDir, tr.file)
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

// generateColors spreads n hues around the colour wheel.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
