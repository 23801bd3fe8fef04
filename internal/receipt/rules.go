package receipt

import "strings"

// categoryRule matches case-folded substrings of the merchant name
// and/or the full document text against one category label.
type categoryRule struct {
	merchantKeywords []string
	textKeywords     []string
	category         Category
}

// categoryRules is evaluated top to bottom, first match wins. The order
// is load-bearing: a merchant containing both "walmart" and "hotel"
// resolves to Food & Groceries, never Travel. Keep this a slice.
var categoryRules = []categoryRule{
	{
		merchantKeywords: []string{"walmart", "target", "grocery"},
		category:         CategoryFoodGroceries,
	},
	{
		merchantKeywords: []string{"gas", "shell", "exxon"},
		category:         CategoryTransportation,
	},
	{
		merchantKeywords: []string{"office"},
		textKeywords:     []string{"supplies", "paper"},
		category:         CategoryOfficeSupplies,
	},
	{
		merchantKeywords: []string{"restaurant", "cafe"},
		textKeywords:     []string{"food"},
		category:         CategoryCafeRestaurants,
	},
	{
		merchantKeywords: []string{"hotel"},
		textKeywords:     []string{"travel", "flight"},
		category:         CategoryTravel,
	},
}

// deductibleCategories is the fixed set driving both boolean flags.
// Professional Services is a member even though no rule above produces
// it: the user can set the category by hand before committing, and the
// flags are derived from whatever category the record carries.
var deductibleCategories = map[Category]bool{
	CategoryOfficeSupplies: true,
	CategoryTravel:         true,
	CategoryProfessional:   true,
}

// Categorize resolves a category from the merchant name and the full
// receipt text using the ordered rule table.
func Categorize(merchantName, text string) Category {
	merchant := strings.ToLower(merchantName)
	content := strings.ToLower(text)

	for _, rule := range categoryRules {
		if containsAny(merchant, rule.merchantKeywords) || containsAny(content, rule.textKeywords) {
			return rule.category
		}
	}
	return CategoryOther
}

// IsDeductible reports whether a category marks the expense as both
// tax-deductible and a business expense.
func IsDeductible(category Category) bool {
	return deductibleCategories[category]
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
