package services

import (
	"time"

	"github.com/diewo77/invoice-api/internal/models"
)

// StatusAction names a requested status change.
type StatusAction string

const (
	ActionMarkSent     StatusAction = "mark_sent"
	ActionMarkPaid     StatusAction = "mark_paid"
	ActionMarkOverdue  StatusAction = "mark_overdue"
	ActionMarkCanceled StatusAction = "mark_canceled"
)

// DefaultDueDateExtension is applied when no explicit day count is given.
const DefaultDueDateExtension = 7

// transitions maps each action to its required source state. mark_canceled
// is handled separately: it is allowed from every non-terminal state.
var transitions = map[StatusAction]struct {
	from models.InvoiceStatus
	to   models.InvoiceStatus
}{
	ActionMarkSent:    {from: models.InvoiceStatusDraft, to: models.InvoiceStatusSent},
	ActionMarkPaid:    {from: models.InvoiceStatusSent, to: models.InvoiceStatusPaid},
	ActionMarkOverdue: {from: models.InvoiceStatusPaid, to: models.InvoiceStatusOverdue},
}

// ParseStatusAction validates an externally supplied action name.
func ParseStatusAction(s string) (StatusAction, bool) {
	switch a := StatusAction(s); a {
	case ActionMarkSent, ActionMarkPaid, ActionMarkOverdue, ActionMarkCanceled:
		return a, true
	}
	return "", false
}

// NextStatus returns the state resulting from applying action to current.
// An action attempted from a disallowed source state fails with an
// InvalidTransition error and leaves the invoice untouched.
func NextStatus(current models.InvoiceStatus, action StatusAction) (models.InvoiceStatus, error) {
	if action == ActionMarkCanceled {
		// canceled is terminal, so canceling twice is also rejected
		if current == models.InvoiceStatusCanceled {
			return "", &Error{Kind: KindInvalidTransition, Entity: "invoice", Action: string(action), Status: string(current)}
		}
		return models.InvoiceStatusCanceled, nil
	}
	t, ok := transitions[action]
	if !ok || current != t.from {
		return "", &Error{Kind: KindInvalidTransition, Entity: "invoice", Action: string(action), Status: string(current)}
	}
	return t.to, nil
}

// ParseDueDate converts a textual due date (YYYY-MM-DD) into a date value.
func ParseDueDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, &Error{Kind: KindMalformedDate, Entity: "due_date", Err: err}
	}
	return d, nil
}
