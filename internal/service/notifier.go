package service

import "github.com/google/uuid"

// Event names pushed to dashboard clients.
const (
	EventBulkSubmitted = "bulk_request_submitted"
	EventBulkDecided   = "bulk_request_decided"
	EventCodeStatus    = "qr_code_status_changed"
)

// Notifier fans out queue events; *ws.Hub implements it. companyID is the
// company the event belongs to, so subscribers outside it never see it.
type Notifier interface {
	Publish(event string, companyID uuid.UUID, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, uuid.UUID, interface{}) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
