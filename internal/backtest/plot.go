package backtest

import (
	"io"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"factor-backtest/internal/data"
	"factor-backtest/internal/model"
)

const (
	chartWidth  = 9 * vg.Inch
	chartHeight = 6 * vg.Inch
	chartDPI    = 100
)

// Plot renders one line chart per result table, one line per group, to
// png files under the output directory, replacing earlier files. Missing
// cells leave gaps in the line.
func (c *Context) Plot() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return ErrNotLoaded
	}
	if err := c.ensureOutputDir(); err != nil {
		return err
	}
	for _, t := range Tables {
		p, err := linePlot(t.Name, c.frame(t))
		if err != nil {
			return err
		}
		file := t.PNGPath(c.Path)
		if err := savePNG(p, file); err != nil {
			return err
		}
		c.logger().WithField("file", file).Info("chart saved")
	}
	return nil
}

func linePlot(title string, f *model.Frame) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())

	index := f.Index()
	_, cols := f.Shape()
	for col := 0; col < cols; col++ {
		for _, seg := range segments(index, f, col) {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return nil, err
			}
			line.Color = plotutil.Color(col)
			p.Add(line)
		}
	}
	return p, nil
}

// segments splits a column into runs of consecutive non-missing cells.
func segments(index []time.Time, f *model.Frame, col int) []plotter.XYs {
	var (
		out []plotter.XYs
		cur plotter.XYs
	)
	for row, d := range index {
		v := f.At(row, col)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(d.Unix()), Y: v})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func savePNG(p *plot.Plot, file string) error {
	img := vgimg.NewWith(vgimg.UseWH(chartWidth, chartHeight), vgimg.UseDPI(chartDPI))
	p.Draw(draw.New(img))
	return data.WriteFileAtomic(file, func(w io.Writer) error {
		_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)
		return err
	})
}
