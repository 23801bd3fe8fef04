package transaction

import (
	"path/filepath"
	"testing"

	"go-receipt-scanner/internal/receipt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "transactions.json"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create("user-1", Transaction{
		Type:        TypeExpense,
		Amount:      23.45,
		Description: "Joe's Diner",
		Category:    "Cafe & Restaurants",
		Date:        "2024-03-15",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Error("Create must assign an id")
	}
	if created.CreatedAt == "" || created.UpdatedAt == "" {
		t.Error("Create must set timestamps")
	}

	got, err := store.Get("user-1", created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Amount != 23.45 || got.Description != "Joe's Diner" {
		t.Errorf("Get returned %+v", got)
	}
}

func TestStore_OwnerScoping(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create("user-1", Transaction{Type: TypeExpense, Amount: 5, Date: "2024-01-01"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := store.Get("user-2", created.ID); err != ErrNotFound {
		t.Errorf("Get with wrong owner = %v, want ErrNotFound", err)
	}
	if err := store.Delete("user-2", created.ID); err != ErrNotFound {
		t.Errorf("Delete with wrong owner = %v, want ErrNotFound", err)
	}

	list, err := store.List("user-2", Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List for other owner returned %d transactions, want 0", len(list))
	}
}

func TestStore_ListFiltersAndSorts(t *testing.T) {
	store := newTestStore(t)

	seed := []Transaction{
		{Type: TypeExpense, Category: "Travel", Date: "2024-01-10", Description: "hotel"},
		{Type: TypeExpense, Category: "Office Supplies", Date: "2024-03-05", Description: "toner"},
		{Type: TypeIncome, Category: "Salary", Date: "2024-02-01", Description: "payroll"},
	}
	for _, tx := range seed {
		if _, err := store.Create("user-1", tx); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	all, err := store.List("user-1", Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	wantOrder := []string{"toner", "payroll", "hotel"}
	for i, want := range wantOrder {
		if all[i].Description != want {
			t.Errorf("position %d = %q, want %q (newest first)", i, all[i].Description, want)
		}
	}

	expenses, err := store.List("user-1", Filter{Type: TypeExpense})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(expenses) != 2 {
		t.Errorf("expense count = %d, want 2", len(expenses))
	}

	travel, err := store.List("user-1", Filter{Category: "Travel"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(travel) != 1 || travel[0].Description != "hotel" {
		t.Errorf("travel filter returned %+v", travel)
	}

	feb, err := store.List("user-1", Filter{StartDate: "2024-01-20", EndDate: "2024-02-15"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(feb) != 1 || feb[0].Description != "payroll" {
		t.Errorf("date range filter returned %+v", feb)
	}

	allCategory, err := store.List("user-1", Filter{Category: "All"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(allCategory) != 3 {
		t.Errorf("category=All returned %d, want 3", len(allCategory))
	}
}

func TestStore_ReplaceAndDelete(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create("user-1", Transaction{Type: TypeExpense, Amount: 10, Date: "2024-01-01"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	created.Amount = 12.50
	created.Notes = "corrected"
	updated, err := store.Replace("user-1", created)
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if updated.Amount != 12.50 || updated.Notes != "corrected" {
		t.Errorf("Replace returned %+v", updated)
	}
	if updated.CreatedAt != created.CreatedAt {
		t.Error("Replace must preserve CreatedAt")
	}

	if err := store.Delete("user-1", created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get("user-1", created.ID); err != ErrNotFound {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
}

func TestDraftFromScan(t *testing.T) {
	merchant := "OFFICE DEPOT"
	total := 20.50
	date := "03/15/2024"

	draft := DraftFromScan(receipt.ExtractedReceiptData{
		MerchantName:      &merchant,
		Total:             &total,
		Date:              &date,
		Category:          receipt.CategoryOfficeSupplies,
		IsTaxDeductible:   true,
		IsBusinessExpense: true,
	}, "receipt-1.png")

	if draft.Type != TypeExpense {
		t.Errorf("Type = %q, want expense", draft.Type)
	}
	if draft.Amount != 20.50 {
		t.Errorf("Amount = %v, want 20.50", draft.Amount)
	}
	if draft.Description != "OFFICE DEPOT" {
		t.Errorf("Description = %q", draft.Description)
	}
	if draft.Date != "03/15/2024" {
		t.Errorf("Date = %q", draft.Date)
	}
	if draft.ReceiptURL != "receipt-1.png" {
		t.Errorf("ReceiptURL = %q", draft.ReceiptURL)
	}
	if !draft.IsTaxDeductible || !draft.IsBusinessExpense {
		t.Error("deduction flags must carry over")
	}
}

func TestDraftFromScan_UnsetFields(t *testing.T) {
	draft := DraftFromScan(receipt.ExtractedReceiptData{Category: receipt.CategoryOther}, "")
	if draft.Amount != 0 || draft.Description != "" || draft.Date != "" {
		t.Errorf("unset scan fields must map to zero values, got %+v", draft)
	}
}
