package resource

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptySerial   = errors.New("resource serial cannot be empty")
	ErrSerialTooLong = errors.New("resource serial is too long (max 64 characters)")
	ErrNilResourceID = errors.New("resource id cannot be nil")
)

const (
	MaxSerialLength = 64
)

// Resource is one bookable lounge station. The maintenance flag is owned by the
// station management surface and only read by the booking engine.
type Resource struct {
	id          uuid.UUID
	category    Category
	serial      string
	maintenance bool
	createdAt   time.Time
	updatedAt   time.Time
}

func NewResource(id uuid.UUID, category Category, serial string, now time.Time) (*Resource, error) {
	if id == uuid.Nil {
		return nil, ErrNilResourceID
	}
	if !category.IsValid() {
		return nil, ErrInvalidCategory
	}
	if err := validateSerial(serial); err != nil {
		return nil, err
	}

	return &Resource{
		id:        id,
		category:  category,
		serial:    strings.TrimSpace(serial),
		createdAt: now,
		updatedAt: now,
	}, nil
}

func ReconstructResource(
	id uuid.UUID,
	category Category,
	serial string,
	maintenance bool,
	createdAt, updatedAt time.Time,
) *Resource {
	return &Resource{
		id:          id,
		category:    category,
		serial:      serial,
		maintenance: maintenance,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func validateSerial(serial string) error {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return ErrEmptySerial
	}
	if len(serial) > MaxSerialLength {
		return ErrSerialTooLong
	}
	return nil
}

func (r *Resource) ID() uuid.UUID          { return r.id }
func (r *Resource) Category() Category     { return r.category }
func (r *Resource) Serial() string         { return r.serial }
func (r *Resource) UnderMaintenance() bool { return r.maintenance }
func (r *Resource) CreatedAt() time.Time   { return r.createdAt }
func (r *Resource) UpdatedAt() time.Time   { return r.updatedAt }
