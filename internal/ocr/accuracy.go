package ocr

import (
	"strings"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// AccuracyReport compares extracted text against a known transcript.
// It backs the scan endpoint's expected-text mode, used to calibrate
// capture conditions (lighting, resolution) against receipts whose
// content is known.
type AccuracyReport struct {
	WER        float64 `json:"wordErrorRate"`
	CER        float64 `json:"characterErrorRate"`
	MatchScore float64 `json:"matchScore"`
}

// ScoreAccuracy computes word and character error rates of extracted
// against expected, plus a 0-100 match score derived from the CER.
func ScoreAccuracy(extracted, expected string) AccuracyReport {
	report := AccuracyReport{}

	expectedWords := strings.Fields(expected)
	extractedWords := strings.Fields(extracted)
	if len(expectedWords) > 0 {
		rate, _ := wer.WER(expectedWords, extractedWords)
		report.WER = rate
	}

	if len(expected) > 0 {
		distance := levenshtein.Distance(expected, extracted)
		report.CER = float64(distance) / float64(len([]rune(expected)))
	}

	score := 100 * (1 - report.CER)
	if score < 0 {
		score = 0
	}
	report.MatchScore = score
	return report
}
