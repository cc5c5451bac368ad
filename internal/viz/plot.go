package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
)

const (
	plotHeight = 12
	plotWidth  = 80
)

// Plot draws ys against their index. Histogram bins are evenly spaced in
// energy, so the index axis is proportional to E.
func Plot(ys []float64, caption string) string {
	if len(ys) == 0 {
		return Subtle.Render("no data to plot")
	}
	if len(ys) == 1 {
		ys = []float64{ys[0], ys[0]}
	}
	return asciigraph.Plot(ys,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(caption),
	)
}

// PlotSeries labels the caption with the x range of the series.
func PlotSeries(xs, ys []float64, name string) string {
	if len(xs) == 0 {
		return Plot(nil, name)
	}
	return Plot(ys, fmt.Sprintf("%s, x from %g to %g", name, xs[0], xs[len(xs)-1]))
}
