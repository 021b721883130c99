package canvas

import (
	"github.com/jung-kurt/gofpdf"
)

// pdfScale maps canvas pixels to millimeters on an A4 page.
const pdfScale = 3.0

// ExportPDF writes the applied draw strokes as vector lines. Erase records
// carry no vector representation and are skipped; the PDF is a trace of what
// was drawn, not a raster flatten.
func (b *Board) ExportPDF(path string) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	for i := 0; i <= b.cursor; i++ {
		stroke := b.strokes[i]
		if stroke.Kind != KindDraw {
			continue
		}
		pdf.SetDrawColor(int(stroke.Color.R), int(stroke.Color.G), int(stroke.Color.B))
		pdf.SetLineWidth(float64(stroke.Width) / pdfScale)
		for j := 1; j < len(stroke.Points); j++ {
			pdf.Line(
				float64(stroke.Points[j-1].X)/pdfScale, float64(stroke.Points[j-1].Y)/pdfScale,
				float64(stroke.Points[j].X)/pdfScale, float64(stroke.Points[j].Y)/pdfScale,
			)
		}
	}

	return pdf.OutputFileAndClose(path)
}
