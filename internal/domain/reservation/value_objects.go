package reservation

import (
	"bytes"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxCustomerNameLength  = 100
	MaxCustomerNotesLength = 500
	MaxPaymentRefLength    = 128
)

type Customer struct {
	name    string
	contact string
	notes   string
}

func NewCustomer(name, contact, notes string) (Customer, error) {
	name = strings.TrimSpace(name)
	contact = strings.TrimSpace(contact)
	notes = strings.TrimSpace(notes)
	if name == "" {
		return Customer{}, ErrEmptyCustomerName
	}
	if len(name) > MaxCustomerNameLength {
		return Customer{}, ErrCustomerNameTooLong
	}
	if contact == "" {
		return Customer{}, ErrEmptyCustomerContact
	}
	if len(notes) > MaxCustomerNotesLength {
		return Customer{}, ErrCustomerNotesTooLong
	}
	return Customer{name: name, contact: contact, notes: notes}, nil
}

func (c Customer) Name() string    { return c.name }
func (c Customer) Contact() string { return c.contact }
func (c Customer) Notes() string   { return c.notes }

// Assignment binds one resource to a reservation with the number of players using it.
type Assignment struct {
	resourceID uuid.UUID
	occupancy  int
}

func NewAssignment(resourceID uuid.UUID, occupancy int) (Assignment, error) {
	if resourceID == uuid.Nil {
		return Assignment{}, ErrNilResource
	}
	if occupancy < 1 {
		return Assignment{}, ErrInvalidOccupancy
	}
	return Assignment{resourceID: resourceID, occupancy: occupancy}, nil
}

func (a Assignment) ResourceID() uuid.UUID { return a.resourceID }
func (a Assignment) Occupancy() int        { return a.occupancy }

// normalizeAssignments returns a copy ordered by resource id.
func normalizeAssignments(in []Assignment) ([]Assignment, error) {
	if len(in) == 0 {
		return nil, ErrNoAssignments
	}
	out := slices.Clone(in)
	slices.SortFunc(out, func(a, b Assignment) int {
		return CompareIDs(a.resourceID, b.resourceID)
	})
	for i := 1; i < len(out); i++ {
		if out[i].resourceID == out[i-1].resourceID {
			return nil, ErrDuplicateAssignment
		}
	}
	return out, nil
}

type PaymentRef string

func NewPaymentRef(s string) (PaymentRef, error) {
	s = strings.TrimSpace(s)
	if len(s) > MaxPaymentRefLength {
		return "", ErrPaymentRefTooLong
	}
	return PaymentRef(s), nil
}

func (p PaymentRef) String() string { return string(p) }

// CompareIDs is the single ordering used for lock acquisition and tie-breaks.
func CompareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// SortedUniqueIDs returns ids in lock order without duplicates.
func SortedUniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, CompareIDs)
	return slices.Compact(out)
}
