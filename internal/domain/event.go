package domain

import "time"

type LifecycleEventType string

const (
	EventRegistered LifecycleEventType = "registered"
	EventDeleted    LifecycleEventType = "deleted"
)

// LifecycleEvent carries a snapshot of the account as it was when the
// structural change happened.
type LifecycleEvent struct {
	Type      LifecycleEventType
	Account   Account
	Timestamp time.Time
}
