// Package domain holds DTOs for stats http and service contracts
package domain

import "github.com/google/uuid"

// Bucket is one grouped count
type Bucket struct {
	Key   string `json:"key" example:"rule-grammar"`
	Label string `json:"label,omitempty" example:"Sentimentos"`
	Count int64  `json:"count" example:"42"`
}

// Breakdown groups the annotated tokens of one job
type Breakdown struct {
	JobID  uuid.UUID `json:"job_id"`
	Tokens int64     `json:"tokens" example:"237"`
	// Sources counts by the layer that served each token, cache included
	Sources []Bucket `json:"sources"`
	// Origins counts by the layer that first produced each token
	Origins []Bucket `json:"origins"`
	Domains []Bucket `json:"domains"`
	POS     []Bucket `json:"pos"`
}

// KindTotal is the units processed for one job kind, read from the analytics mirror
type KindTotal struct {
	Kind  string `json:"kind" example:"artist"`
	Units int64  `json:"units" example:"12000"`
}

// EventsInput filters the analytics totals
type EventsInput struct {
	Kind string `json:"kind,omitempty" validate:"omitempty,oneof=artist corpus words" example:"artist"`
}
