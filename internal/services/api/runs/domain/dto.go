// Package domain holds DTOs for the runs http and service contracts
package domain

import (
	"context"

	pipedom "commitflow/internal/services/pipeline/domain"
)

// Run is the ledger row handed back to callers
type Run = pipedom.Run

// TriggerInput starts one logical date
type TriggerInput struct {
	Date string `json:"date" validate:"required,logical_date" example:"2024-01-15"`
}

// BackfillInput starts every date in [start, end]
type BackfillInput struct {
	Start string `json:"start" validate:"required,logical_date" example:"2024-01-01"`
	End   string `json:"end"   validate:"required,logical_date" example:"2024-01-31"`
}

// ListInput bounds the history listing
type ListInput struct {
	Limit int `json:"limit" validate:"omitempty,min=1,max=500" example:"50"`
}

// Accepted acknowledges work queued in the background
type Accepted struct {
	Status string   `json:"status" example:"queued"`
	Dates  []string `json:"dates"`
}

// ServicePort is consumed by handlers
type ServicePort interface {
	List(ctx context.Context, in ListInput) ([]Run, error)
	Get(ctx context.Context, id string) (Run, error)
	Latest(ctx context.Context, date string) (Run, error)
	Trigger(ctx context.Context, in TriggerInput) (Accepted, error)
	Backfill(ctx context.Context, in BackfillInput) (Accepted, error)
}
