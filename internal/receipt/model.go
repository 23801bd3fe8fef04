// Package receipt turns raw OCR text from a scanned purchase document
// into a structured receipt record. Parsing is a pure function over the
// text: every field degrades to "unset" when its pattern does not match,
// and no input can make it fail.
package receipt

// Category is one label from the fixed set used for display and for
// deduction-eligibility inference.
type Category string

const (
	CategoryFoodGroceries   Category = "Food & Groceries"
	CategoryTransportation  Category = "Transportation"
	CategoryOfficeSupplies  Category = "Office Supplies"
	CategoryCafeRestaurants Category = "Cafe & Restaurants"
	CategoryTravel          Category = "Travel"
	CategoryProfessional    Category = "Professional Services"
	CategoryOther           Category = "Other"
)

// Item is a single line item synthesized from a dollar amount found in
// the receipt text. Names are positional placeholders; the parser does
// not pair amounts with adjacent label text.
type Item struct {
	Name       string   `json:"name"`
	Quantity   int      `json:"quantity"`
	UnitPrice  *float64 `json:"unitPrice,omitempty"`
	TotalPrice float64  `json:"totalPrice"`
}

// ExtractedReceiptData is the structured record produced by Parse.
// Pointer fields distinguish "not found in the text" from a legitimate
// zero value; the user may edit any field before the record is handed
// to the transaction store.
type ExtractedReceiptData struct {
	MerchantName *string  `json:"merchantName,omitempty"`
	Date         *string  `json:"date,omitempty"`
	Total        *float64 `json:"total,omitempty"`
	Subtotal     *float64 `json:"subtotal,omitempty"`
	Tax          *float64 `json:"tax,omitempty"`
	Items        []Item   `json:"items"`
	Category     Category `json:"category"`

	IsTaxDeductible   bool `json:"isTaxDeductible"`
	IsBusinessExpense bool `json:"isBusinessExpense"`
}
