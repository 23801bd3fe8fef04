// Package imagecheck runs a lightweight quality preflight over receipt
// photos before they reach the OCR engine. It only produces warnings;
// a poor image is still scanned.
package imagecheck

import (
	"image"
	"image/draw"
)

// Thresholds tuned for phone photos of printed receipts.
const (
	darkThreshold   = 80.0
	brightThreshold = 220.0
	blurThreshold   = 100.0
	minPixels       = 300000
)

// Report holds the preflight metrics and the warnings derived from them.
type Report struct {
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	AvgLuminance      float64  `json:"averageLuminance"`
	LaplacianVariance float64  `json:"laplacianVariance"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Inspect computes average luminance and Laplacian blur variance over a
// grayscale rendering of the image and flags conditions known to hurt
// recognition quality.
func Inspect(img image.Image) Report {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)

	report := Report{
		Width:             bounds.Dx(),
		Height:            bounds.Dy(),
		AvgLuminance:      averageLuminance(gray),
		LaplacianVariance: laplacianVariance(gray),
	}

	if report.Width*report.Height < minPixels {
		report.Warnings = append(report.Warnings, "image resolution is low; small print may not be recognized")
	}
	if report.AvgLuminance < darkThreshold {
		report.Warnings = append(report.Warnings, "image is too dark")
	}
	if report.AvgLuminance > brightThreshold {
		report.Warnings = append(report.Warnings, "image is too bright or overexposed")
	}
	if report.LaplacianVariance < blurThreshold {
		report.Warnings = append(report.Warnings, "image appears blurry")
	}

	return report
}

func averageLuminance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	pixels := float64(bounds.Dx() * bounds.Dy())
	if pixels == 0 {
		return 0
	}

	var total float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			total += float64(gray.GrayAt(x, y).Y)
		}
	}
	return total / pixels
}

// laplacianVariance convolves a 3x3 Laplacian kernel over the image and
// returns the variance of the response. Low variance means few edges,
// which for a document photo means blur.
func laplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Max.X, bounds.Max.Y

	kernel := [3][3]int{{0, 1, 0}, {1, -4, 1}, {0, 1, 0}}
	var sum, sumSq float64

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			var val int
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					val += int(gray.GrayAt(x+kx, y+ky).Y) * kernel[ky+1][kx+1]
				}
			}
			fVal := float64(val)
			sum += fVal
			sumSq += fVal * fVal
		}
	}

	n := float64((width - 2) * (height - 2))
	if n <= 0 {
		return 0
	}
	mean := sum / n
	return (sumSq / n) - (mean * mean)
}
