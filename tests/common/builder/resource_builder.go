//go:build unit || e2e

package builder

import (
	"fmt"
	"time"

	domresource "lounge-booking/internal/domain/resource"
	"lounge-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type ResourceBuilder struct {
	ID          uuid.UUID
	Category    domresource.Category
	Serial      string
	Maintenance bool
	CreatedAt   time.Time
}

var serialSeq int

func NewResourceBuilder() *ResourceBuilder {
	serialSeq++
	return &ResourceBuilder{
		ID:        uuid.New(),
		Category:  domresource.CategoryConsoleStation,
		Serial:    fmt.Sprintf("PS-%03d", serialSeq),
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *ResourceBuilder) With(mutate func(*ResourceBuilder)) *ResourceBuilder {
	mutate(r)
	return r
}

// Build methods
func (r *ResourceBuilder) BuildDomain() (*domresource.Resource, error) {
	res, err := domresource.NewResource(r.ID, r.Category, r.Serial, r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if !r.Maintenance {
		return res, nil
	}
	return domresource.ReconstructResource(res.ID(), res.Category(), res.Serial(), true, res.CreatedAt(), res.UpdatedAt()), nil
}

// MustBuild is for fixtures where the builder defaults are known to be valid.
func (r *ResourceBuilder) MustBuild() *domresource.Resource {
	res, err := r.BuildDomain()
	if err != nil {
		panic(err)
	}
	return res
}

func (r *ResourceBuilder) BuildView() *queries.ResourceView {
	return &queries.ResourceView{
		ID:          r.ID,
		Category:    r.Category.String(),
		Serial:      r.Serial,
		Maintenance: r.Maintenance,
	}
}

// Fluent builder methods
func (r *ResourceBuilder) WithID(id uuid.UUID) *ResourceBuilder {
	r.ID = id
	return r
}

func (r *ResourceBuilder) WithCategory(c domresource.Category) *ResourceBuilder {
	r.Category = c
	return r
}

func (r *ResourceBuilder) WithSerial(serial string) *ResourceBuilder {
	r.Serial = serial
	return r
}

func (r *ResourceBuilder) AsUnderMaintenance() *ResourceBuilder {
	r.Maintenance = true
	return r
}

func (r *ResourceBuilder) AsPCLeft() *ResourceBuilder {
	r.Category = domresource.CategoryPCStationLeft
	return r
}
