package models

import "time"

// CycleStats summarizes one run of the daily billing cycle
type CycleStats struct {
	AsOf              time.Time `json:"as_of"`
	InvoicesGenerated int       `json:"invoices_generated"`
	FeesApplied       int       `json:"fees_applied"`
	RemindersSent     int       `json:"reminders_sent"`
	MarkedOverdue     int       `json:"marked_overdue"`
	Errors            int       `json:"errors"`
}
