package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/Mahanbrianj98/PDF-Restructure/internal/models"
)

// nativePage reads the embedded text layer: the page's plain text plus one
// layout feature per text row, in document order.
func (d *fitzDocument) nativePage(pageIndex int) (string, []models.LayoutFeature, error) {
	page := d.reader.Page(pageIndex + 1)
	if page.V.IsNull() {
		return "", nil, models.NewExtractionError(
			fmt.Sprintf("page %d of %s has no content", pageIndex, d.path), nil)
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", nil, models.NewExtractionError(
			fmt.Sprintf("read text of page %d of %s", pageIndex, d.path), err)
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return "", nil, models.NewExtractionError(
			fmt.Sprintf("read text rows of page %d of %s", pageIndex, d.path), err)
	}

	return text, rowFeatures(rows), nil
}

// rowFeatures folds each text row into one layout feature. The bounding box
// spans the row's glyphs: x from the leftmost start to the rightmost end,
// y from the baseline up by the largest font size on the row.
func rowFeatures(rows pdf.Rows) []models.LayoutFeature {
	features := make([]models.LayoutFeature, 0, len(rows))
	for _, row := range rows {
		if len(row.Content) == 0 {
			continue
		}

		var b strings.Builder
		x0, y0 := row.Content[0].X, row.Content[0].Y
		x1, y1 := x0, y0
		for _, t := range row.Content {
			b.WriteString(t.S)
			if t.X < x0 {
				x0 = t.X
			}
			if end := t.X + t.W; end > x1 {
				x1 = end
			}
			if t.Y < y0 {
				y0 = t.Y
			}
			if top := t.Y + t.FontSize; top > y1 {
				y1 = top
			}
		}

		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		features = append(features, models.LayoutFeature{
			Text: text,
			Box:  [4]float64{x0, y0, x1, y1},
		})
	}
	return features
}
