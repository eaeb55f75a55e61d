package enums

import "strings"

type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusReviewed ReportStatus = "reviewed"
	ReportStatusResolved ReportStatus = "resolved"
)

func ParseReportStatus(input string) (ReportStatus, bool) {
	switch ReportStatus(strings.ToLower(strings.TrimSpace(input))) {
	case ReportStatusPending:
		return ReportStatusPending, true
	case ReportStatusReviewed:
		return ReportStatusReviewed, true
	case ReportStatusResolved:
		return ReportStatusResolved, true
	default:
		return "", false
	}
}
