package viz

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// SeriesToSVG draws ys against xs as a line plot with the data range written
// in the corners. It returns "" for fewer than two points or mismatched
// slices.
func SeriesToSVG(xs, ys []float64, width, height int, stroke, label string) string {
	if len(xs) < 2 || len(xs) != len(ys) {
		return ""
	}

	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)
	rangeX := max(maxX-minX, 1e-300)
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	// 10% padding on each side
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, stroke)

	for i := range xs {
		x := (xs[i] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[i]-minY)/rangeY*float64(height)
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
	}
	sb.WriteString("\"/>\n")

	text := `<text x="%d" y="%d" fill="#888899" font-family="monospace" font-size="12"%s>%s</text>` + "\n"
	fmt.Fprintf(&sb, text, 6, 16, "", escape(label))
	fmt.Fprintf(&sb, text, 6, height-6, "", fmt.Sprintf("x: %g .. %g", floats.Min(xs), floats.Max(xs)))
	fmt.Fprintf(&sb, text, width-6, 16, ` text-anchor="end"`, fmt.Sprintf("y: %g .. %g", floats.Min(ys), floats.Max(ys)))
	sb.WriteString("</svg>")
	return sb.String()
}

var svgEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return svgEscaper.Replace(s) }
