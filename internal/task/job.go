package task

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of work a job performs.
type Type string

// Job types
const (
	TypeClassifyNote Type = "classify_note"
	TypeEmbedNote    Type = "embed_note"
	TypeCaptionInk   Type = "caption_ink"
	TypeGeneratePack Type = "generate_pack"
)

// Types lists every job type the queue accepts.
var Types = []Type{TypeClassifyNote, TypeEmbedNote, TypeCaptionInk, TypeGeneratePack}

// Valid reports whether t is a known job type.
func (t Type) Valid() bool {
	switch t {
	case TypeClassifyNote, TypeEmbedNote, TypeCaptionInk, TypeGeneratePack:
		return true
	}
	return false
}

// Status is the lifecycle state of a job.
type Status string

// Possible job status values
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Statuses lists every job status.
var Statuses = []Status{StatusQueued, StatusRunning, StatusSucceeded, StatusFailed}

// Terminal reports whether a job in this status will never run again.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Pending reports whether a job in this status has not started executing
// and so will read the resource's content when it runs. Only pending jobs
// absorb duplicate enqueues; a running job may already hold stale content.
func (s Status) Pending() bool {
	return s == StatusQueued
}

// Job is one persisted unit of background work.
type Job struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	Type        Type            `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	DedupeKey   string          `json:"dedupe_key"`
	Status      Status          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	RunAfter    time.Time       `json:"run_after"`

	// Lease. Both are empty unless Status is StatusRunning.
	LockedAt *time.Time `json:"locked_at,omitempty"`
	LockedBy string     `json:"locked_by,omitempty"`

	StartedAt      *time.Time    `json:"started_at,omitempty"`
	FinishedAt     *time.Time    `json:"finished_at,omitempty"`
	Duration       time.Duration `json:"duration,omitempty"`
	LastError      string        `json:"last_error,omitempty"`
	TokensEstimate *int          `json:"tokens_estimate,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// DecodePayload decodes the job's payload into the variant for its type.
func (j *Job) DecodePayload() (Payload, error) {
	return DecodePayload(j.Type, j.Payload)
}

// Stale reports whether a running job's lease is older than staleAfter.
func (j *Job) Stale(now time.Time, staleAfter time.Duration) bool {
	return j.Status == StatusRunning && j.LockedAt != nil && j.LockedAt.Before(now.Add(-staleAfter))
}

// Claimable reports whether ClaimNext may hand this job out at now.
func (j *Job) Claimable(now time.Time, staleAfter time.Duration) bool {
	if j.Status == StatusQueued {
		return !j.RunAfter.After(now)
	}
	return j.Stale(now, staleAfter)
}
