package model

import "strings"

// CredibilityKind is the closed classification of a credibility item's
// free-form type string.
type CredibilityKind int

const (
	CredibilityOther CredibilityKind = iota
	CredibilityRating
	CredibilityPrice
)

func (k CredibilityKind) String() string {
	switch k {
	case CredibilityRating:
		return "rating"
	case CredibilityPrice:
		return "price"
	default:
		return "other"
	}
}

// ClassifyCredibility maps a type string onto a kind by case-insensitive
// substring. Price wins when both "price" and "rating" appear.
func ClassifyCredibility(typ string) CredibilityKind {
	t := strings.ToLower(typ)
	switch {
	case strings.Contains(t, "price"):
		return CredibilityPrice
	case strings.Contains(t, "rating"):
		return CredibilityRating
	default:
		return CredibilityOther
	}
}
