package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/Mahanbrianj98/PDF-Restructure/internal/models"
)

// ocrPage runs Tesseract over the rendered page. A fresh client per page
// keeps workers independent; Tesseract clients are not shareable across
// goroutines.
func (d *fitzDocument) ocrPage(ctx context.Context, img image.Image) (string, []models.LayoutFeature, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Join(d.opts.Languages, "+")); err != nil {
		return "", nil, models.NewExtractionError("set OCR language", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", nil, models.NewExtractionError("set OCR page segmentation mode", err)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, preprocess(img), &jpeg.Options{Quality: 100}); err != nil {
		return "", nil, models.NewExtractionError("encode page for OCR", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", nil, models.NewExtractionError("set OCR image", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", nil, models.NewExtractionError(
			fmt.Sprintf("OCR of page in %s", d.path), err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return "", nil, models.NewExtractionError(
			fmt.Sprintf("OCR bounding boxes of page in %s", d.path), err)
	}

	return text, blockFeatures(boxes), nil
}

// preprocess applies the OCR-facing cleanup chain before recognition.
func preprocess(img image.Image) image.Image {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 20)
	return imaging.Sharpen(out, 0.5)
}

// blockFeatures groups word boxes by (block, paragraph) into one layout
// feature per text block, preserving recognition order.
func blockFeatures(boxes []gosseract.BoundingBox) []models.LayoutFeature {
	type blockKey struct{ block, par int }

	var (
		features []models.LayoutFeature
		order    []blockKey
		words    = make(map[blockKey][]string)
		bounds   = make(map[blockKey]image.Rectangle)
	)

	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		key := blockKey{box.BlockNum, box.ParNum}
		if _, seen := words[key]; !seen {
			order = append(order, key)
			bounds[key] = box.Box
		} else {
			bounds[key] = bounds[key].Union(box.Box)
		}
		words[key] = append(words[key], word)
	}

	for _, key := range order {
		r := bounds[key]
		features = append(features, models.LayoutFeature{
			Text: strings.Join(words[key], " "),
			Box: [4]float64{
				float64(r.Min.X), float64(r.Min.Y),
				float64(r.Max.X), float64(r.Max.Y),
			},
		})
	}
	return features
}
