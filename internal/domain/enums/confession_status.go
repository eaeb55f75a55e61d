package enums

import "strings"

type ConfessionStatus string

const (
	ConfessionStatusPending  ConfessionStatus = "pending"
	ConfessionStatusApproved ConfessionStatus = "approved"
	ConfessionStatusRejected ConfessionStatus = "rejected"
)

func ParseConfessionStatus(input string) (ConfessionStatus, bool) {
	switch ConfessionStatus(strings.ToLower(strings.TrimSpace(input))) {
	case ConfessionStatusPending:
		return ConfessionStatusPending, true
	case ConfessionStatusApproved:
		return ConfessionStatusApproved, true
	case ConfessionStatusRejected:
		return ConfessionStatusRejected, true
	default:
		return "", false
	}
}
