// Package viz renders run results for the terminal.
//
// Styles come from lipgloss and degrade to plain text when the output is
// not a terminal:
//
//   - [Table]: column-aligned listings of runs or densities of states
//   - [KeyValue]: aligned run summaries
//   - [ProgressBar], [SparklineChart]: epoch progress and visit histograms
//   - [Plot], [PlotSeries]: asciigraph line plots of ln g(E) or observables
//   - [SeriesToSVG]: the same series as a standalone SVG file
//   - [Monitor]: a bubbletea dashboard following a running Wang-Landau estimate
package viz
