package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/domain"
)

// ErrInvalidPayload is returned when a job payload is malformed or does not
// match the job type. Such jobs are rejected before they reach the store.
var ErrInvalidPayload = errors.New("invalid job payload")

var validate = validator.New()

// Payload is the typed body of a job. The concrete variants are NotePayload
// and PackPayload.
type Payload interface {
	// Validate checks the payload beyond its struct tags.
	Validate() error

	// DedupeKey identifies the resource the payload targets. Two active jobs
	// with the same owner, type and key are duplicates.
	DedupeKey() string

	isPayload()
}

// NotePayload targets a single note. It is the payload of classify_note,
// embed_note and caption_ink.
type NotePayload struct {
	NoteID uuid.UUID `json:"note_id" validate:"required"`
}

// Validate implements Payload.
func (p NotePayload) Validate() error {
	if p.NoteID == uuid.Nil {
		return fmt.Errorf("%w: note_id is required", ErrInvalidPayload)
	}
	return nil
}

// DedupeKey implements Payload.
func (p NotePayload) DedupeKey() string {
	return "note:" + p.NoteID.String()
}

func (NotePayload) isPayload() {}

// PackPayload asks for a digest of an owner's notes over a date range.
type PackPayload struct {
	RangeStart string          `json:"range_start" validate:"required,datetime=2006-01-02"`
	RangeEnd   string          `json:"range_end"   validate:"required,datetime=2006-01-02"`
	Mode       domain.PackMode `json:"mode"        validate:"required,oneof=skip overwrite"`
}

// NewPackPayload builds a PackPayload for r.
func NewPackPayload(r domain.DateRange, mode domain.PackMode) PackPayload {
	return PackPayload{
		RangeStart: r.Start.Format(domain.DateLayout),
		RangeEnd:   r.End.Format(domain.DateLayout),
		Mode:       mode,
	}
}

// Range parses the payload's bounds.
func (p PackPayload) Range() (domain.DateRange, error) {
	r, err := domain.NewDateRange(p.RangeStart, p.RangeEnd)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return r, nil
}

// Validate implements Payload.
func (p PackPayload) Validate() error {
	if !p.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidPayload, p.Mode)
	}
	_, err := p.Range()
	return err
}

// DedupeKey implements Payload. The mode is part of the key so that an
// overwrite request is not swallowed by a pending skip request.
func (p PackPayload) DedupeKey() string {
	return fmt.Sprintf("pack:%s..%s:%s", p.RangeStart, p.RangeEnd, p.Mode)
}

func (PackPayload) isPayload() {}

// CheckPayload validates p's struct tags and its own Validate rules, and
// checks that p is the variant job type t expects.
func CheckPayload(t Type, p Payload) error {
	if p == nil {
		return fmt.Errorf("%w: missing payload", ErrInvalidPayload)
	}
	switch p.(type) {
	case NotePayload:
		if t != TypeClassifyNote && t != TypeEmbedNote && t != TypeCaptionInk {
			return fmt.Errorf("%w: note payload for job type %q", ErrInvalidPayload, t)
		}
	case PackPayload:
		if t != TypeGeneratePack {
			return fmt.Errorf("%w: pack payload for job type %q", ErrInvalidPayload, t)
		}
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p.Validate()
}

// DecodePayload decodes raw into the payload variant for job type t and
// validates it.
func DecodePayload(t Type, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch t {
	case TypeClassifyNote, TypeEmbedNote, TypeCaptionInk:
		var np NotePayload
		if err := json.Unmarshal(raw, &np); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		p = np
	case TypeGeneratePack:
		var pp PackPayload
		if err := json.Unmarshal(raw, &pp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		p = pp
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if err := CheckPayload(t, p); err != nil {
		return nil, err
	}
	return p, nil
}

// EnqueueParams describes a job to insert.
type EnqueueParams struct {
	Owner   uuid.UUID
	Type    Type
	Payload Payload

	// RunAfter defaults to the insert time when zero.
	RunAfter time.Time

	// MaxAttempts defaults to the store's configured value when zero.
	MaxAttempts int
}

// NoteJob returns the params for a note-targeted job of type t.
func NoteJob(t Type, owner, noteID uuid.UUID) EnqueueParams {
	return EnqueueParams{Owner: owner, Type: t, Payload: NotePayload{NoteID: noteID}}
}

// PackJob returns the params for a generate_pack job.
func PackJob(owner uuid.UUID, r domain.DateRange, mode domain.PackMode) EnqueueParams {
	return EnqueueParams{Owner: owner, Type: TypeGeneratePack, Payload: NewPackPayload(r, mode)}
}

// NewJob validates params and builds the queued row a store inserts.
// Stores call it so that every implementation applies the same defaults.
func NewJob(params EnqueueParams, now time.Time, defaultMaxAttempts int) (*Job, error) {
	if params.Owner == uuid.Nil {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidPayload)
	}
	if !params.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, params.Type)
	}
	if err := CheckPayload(params.Type, params.Payload); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(params.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if params.MaxAttempts < 0 {
		return nil, fmt.Errorf("%w: max attempts must not be negative", ErrInvalidPayload)
	}

	maxAttempts := params.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	runAfter := params.RunAfter
	if runAfter.IsZero() {
		runAfter = now
	}

	return &Job{
		ID:          uuid.New(),
		OwnerID:     params.Owner,
		Type:        params.Type,
		Payload:     raw,
		DedupeKey:   params.Payload.DedupeKey(),
		Status:      StatusQueued,
		MaxAttempts: maxAttempts,
		RunAfter:    runAfter.UTC(),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}
