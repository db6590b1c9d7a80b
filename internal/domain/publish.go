package domain

import "time"

// PublishStatus is the locally tracked state of a publish job.
type PublishStatus string

const (
	PublishScheduled PublishStatus = "scheduled"
	PublishPosting   PublishStatus = "posting"
	PublishPublished PublishStatus = "published"
	PublishFailed    PublishStatus = "failed"
)

// PublishJob tracks one platform post handed to the external publishing
// provider. The remote side is authoritative; the reconciliation poller
// merges its status into this record.
type PublishJob struct {
	ID          string
	HistoryID   string
	Platform    string
	RemoteJobID string

	Status       PublishStatus
	PublicURL    string
	ErrorMessage string
	PublishedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InFlight reports whether the job still awaits an authoritative remote
// answer and should be reconciled.
func (p *PublishJob) InFlight() bool {
	return p.Status == PublishScheduled || p.Status == PublishPosting
}
