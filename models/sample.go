package models

import "time"

// ServiceTimeSample is one completed service duration, appended when a ticket
// or booking completes. Append-only history; only the most recent window is
// ever read back.
type ServiceTimeSample struct {
	ShopID       string        `bson:"shopId" json:"shopId"`
	SpecialistID string        `bson:"specialistId" json:"specialistId"`
	ServiceID    string        `bson:"serviceId" json:"serviceId"`
	Duration     time.Duration `bson:"duration" json:"duration"`
	CompletedAt  time.Time     `bson:"completedAt" json:"completedAt"`
}
