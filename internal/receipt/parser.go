package receipt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	totalPattern = regexp.MustCompile(`(?i)total[:\s]*\$?(\d+\.?\d*)`)
	taxPattern   = regexp.MustCompile(`(?i)tax[:\s]*\$?(\d+\.?\d*)`)
	datePattern  = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}|\d{1,2}-\d{1,2}-\d{2,4}`)
	pricePattern = regexp.MustCompile(`\$(\d+\.?\d*)`)
)

// Parse extracts a structured receipt record from raw OCR text. It is
// deterministic, performs no I/O and never fails: fields whose patterns
// do not match are simply left unset. Empty input yields a record with
// no optional fields, an empty item list and the Other category.
func Parse(text string) ExtractedReceiptData {
	data := ExtractedReceiptData{
		Items: []Item{},
	}

	// Merchant: first non-empty line, trimmed. No validation against a
	// known-merchant list.
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			data.MerchantName = &trimmed
			break
		}
	}

	if m := totalPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			data.Total = &v
		}
	}

	if m := datePattern.FindString(text); m != "" {
		// Taken verbatim: no day-first/month-first disambiguation and no
		// calendar validity check.
		data.Date = &m
	}

	// Subtotal is derived, never independently observed: it exists only
	// when both a total and a tax were found.
	if m := taxPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			data.Tax = &v
			if data.Total != nil {
				subtotal := *data.Total - v
				data.Subtotal = &subtotal
			}
		}
	}

	// Items: every dollar amount except the last, on the assumption that
	// the final amount on a receipt is the total.
	matches := pricePattern.FindAllStringSubmatch(text, -1)
	for i, m := range matches {
		if i == len(matches)-1 {
			break
		}
		price, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		data.Items = append(data.Items, Item{
			Name:       fmt.Sprintf("Item %d", i+1),
			Quantity:   1,
			TotalPrice: price,
		})
	}

	merchant := ""
	if data.MerchantName != nil {
		merchant = *data.MerchantName
	}
	data.Category = Categorize(merchant, text)
	deductible := IsDeductible(data.Category)
	data.IsTaxDeductible = deductible
	data.IsBusinessExpense = deductible

	return data
}
