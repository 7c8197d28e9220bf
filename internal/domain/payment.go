package domain

import "strings"

type PaymentMethod string

const (
	PaymentUPI        PaymentMethod = "upi"
	PaymentCard       PaymentMethod = "card"
	PaymentNetbanking PaymentMethod = "netbanking"
)

// PaymentDetails carries the method-specific fields collected from the payer.
// It is validated and discarded, never stored.
type PaymentDetails struct {
	UPIID      string
	CardNumber string
	CardName   string
	Expiry     string
	CVV        string
	Bank       string
	CustomerID string
}

// ValidatePaymentDetails checks the method-specific rules. Pure, no side
// effects; an unknown or empty method is invalid.
func ValidatePaymentDetails(method PaymentMethod, details PaymentDetails) bool {
	switch method {
	case PaymentUPI:
		return strings.Contains(details.UPIID, "@")
	case PaymentCard:
		return len(details.CardNumber) >= 12 && len(details.CVV) == 3 && len(details.CardName) > 2
	case PaymentNetbanking:
		return details.Bank != "" && len(details.CustomerID) > 3
	default:
		return false
	}
}
