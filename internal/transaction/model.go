// Package transaction is the downstream collaborator of the scan
// pipeline: a flat-JSON-file store of the transactions a confirmed
// receipt record is committed to.
package transaction

import (
	"time"

	"go-receipt-scanner/internal/receipt"
)

// Type distinguishes money in, money out and internal moves.
type Type string

const (
	TypeIncome   Type = "income"
	TypeExpense  Type = "expense"
	TypeTransfer Type = "transfer"
)

// Transaction is one ledger entry, owned by a single user.
type Transaction struct {
	ID                string   `json:"id"`
	UserID            string   `json:"userId"`
	Type              Type     `json:"type"`
	Amount            float64  `json:"amount"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	Subcategory       string   `json:"subcategory"`
	Date              string   `json:"date"`
	PaymentMethod     string   `json:"paymentMethod"`
	Account           string   `json:"account"`
	Tags              []string `json:"tags"`
	ReceiptURL        string   `json:"receiptUrl"`
	IsRecurring       bool     `json:"isRecurring"`
	RecurringPattern  string   `json:"recurringPattern,omitempty"`
	IsTaxDeductible   bool     `json:"isTaxDeductible"`
	IsBusinessExpense bool     `json:"isBusinessExpense"`
	Notes             string   `json:"notes"`
	CreatedAt         string   `json:"createdAt"`
	UpdatedAt         string   `json:"updatedAt"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Category  string
	Type      Type
	StartDate string
	EndDate   string
}

// DraftFromScan maps an extracted receipt record onto a transaction
// draft for the user to confirm: total becomes the amount, the merchant
// name the description. Payment method and account are left for the
// user to fill in.
func DraftFromScan(data receipt.ExtractedReceiptData, receiptURL string) Transaction {
	tx := Transaction{
		Type:              TypeExpense,
		Category:          string(data.Category),
		Tags:              []string{},
		ReceiptURL:        receiptURL,
		IsTaxDeductible:   data.IsTaxDeductible,
		IsBusinessExpense: data.IsBusinessExpense,
	}
	if data.Total != nil {
		tx.Amount = *data.Total
	}
	if data.MerchantName != nil {
		tx.Description = *data.MerchantName
	}
	if data.Date != nil {
		tx.Date = *data.Date
	}
	return tx
}

// parseDate accepts the formats transactions carry in the JSON store.
func parseDate(value string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "01/02/2006", "1/2/2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
