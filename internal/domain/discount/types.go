package discount

import "strings"

type Type string

const (
	TypePercentage  Type = "percentage"
	TypeFixedAmount Type = "fixed_amount"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// NormalizeCode is applied on every lookup and on storage so a code matches
// regardless of case or surrounding whitespace.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
