package service

// Workflow event types pushed to connected back-office clients after commit.
const (
	EventSubmissionAssigned  = "submission.assigned"
	EventSubmissionApproved  = "submission.approved"
	EventSubmissionRejected  = "submission.rejected"
	EventApplicationApproved = "lease_application.approved"
	EventApplicationRejected = "lease_application.rejected"
	EventListingOccupied     = "listing.occupied"
)

// EventPublisher fans committed workflow transitions out to listeners.
// Publish must not block the caller.
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
