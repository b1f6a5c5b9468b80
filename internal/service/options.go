package service

import (
	"fmt"
	"time"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

// Option sets a filter of a list operation
type Option[T HistoryOptions | ConflictListOptions | ErrorListOptions] func(*T) error

// HistoryOptions is the options for the GetHistory operation
type HistoryOptions struct {
	SupplierID string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// ConflictListOptions is the options for the ListConflicts operation
type ConflictListOptions struct {
	SupplierID string
	RunID      string
	Status     inventory.ConflictStatus
	// AnyStatus lists conflicts regardless of status
	AnyStatus bool
}

// ErrorListOptions is the options for the ListErrors operation
type ErrorListOptions struct {
	SupplierID string
	RunID      string
	Status     inventory.ErrorStatus
}

// WithSupplierID restricts a list to one supplier
func WithSupplierID[T HistoryOptions | ConflictListOptions | ErrorListOptions](supplierID string) Option[T] {
	return func(o *T) error {
		if supplierID == "" {
			return fmt.Errorf("%w: empty supplier id", ErrInvalidRequest)
		}
		switch o := any(o).(type) {
		case *HistoryOptions:
			o.SupplierID = supplierID
		case *ConflictListOptions:
			o.SupplierID = supplierID
		case *ErrorListOptions:
			o.SupplierID = supplierID
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}
		return nil
	}
}

// WithRunID restricts a list to one run
func WithRunID[T ConflictListOptions | ErrorListOptions](runID string) Option[T] {
	return func(o *T) error {
		if runID == "" {
			return fmt.Errorf("%w: empty run id", ErrInvalidRequest)
		}
		switch o := any(o).(type) {
		case *ConflictListOptions:
			o.RunID = runID
		case *ErrorListOptions:
			o.RunID = runID
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}
		return nil
	}
}

// WithConflictStatus filters conflicts by status; "all" lists every status
func WithConflictStatus(status string) Option[ConflictListOptions] {
	return func(o *ConflictListOptions) error {
		switch s := inventory.ConflictStatus(status); s {
		case inventory.ConflictStatusPending, inventory.ConflictStatusResolved, inventory.ConflictStatusSkipped:
			o.Status = s
			o.AnyStatus = false
		case "all":
			o.Status = ""
			o.AnyStatus = true
		default:
			return fmt.Errorf("%w: unknown conflict status %q", ErrInvalidRequest, status)
		}
		return nil
	}
}

// WithErrorStatus filters errors by status
func WithErrorStatus(status string) Option[ErrorListOptions] {
	return func(o *ErrorListOptions) error {
		switch s := inventory.ErrorStatus(status); s {
		case inventory.ErrorStatusFailed, inventory.ErrorStatusRetrying, inventory.ErrorStatusResolved:
			o.Status = s
		default:
			return fmt.Errorf("%w: unknown error status %q", ErrInvalidRequest, status)
		}
		return nil
	}
}

// WithPage selects a history page, starting at 1
func WithPage(page int) Option[HistoryOptions] {
	return func(o *HistoryOptions) error {
		if page < 1 {
			return fmt.Errorf("%w: page must be at least 1, got %d", ErrInvalidRequest, page)
		}
		o.Page = page
		return nil
	}
}

// WithPageSize sets the history page size, at most inventory.MaxPageSize
func WithPageSize(size int) Option[HistoryOptions] {
	return func(o *HistoryOptions) error {
		if size < 1 || size > inventory.MaxPageSize {
			return fmt.Errorf("%w: pageSize must be between 1 and %d, got %d",
				ErrInvalidRequest, inventory.MaxPageSize, size)
		}
		o.PageSize = size
		return nil
	}
}

// WithFrom keeps runs started at or after from
func WithFrom(from time.Time) Option[HistoryOptions] {
	return func(o *HistoryOptions) error {
		if from.IsZero() {
			return fmt.Errorf("%w: invalid from", ErrInvalidRequest)
		}
		o.From = &from
		return nil
	}
}

// WithTo keeps runs started at or before to
func WithTo(to time.Time) Option[HistoryOptions] {
	return func(o *HistoryOptions) error {
		if to.IsZero() {
			return fmt.Errorf("%w: invalid to", ErrInvalidRequest)
		}
		o.To = &to
		return nil
	}
}

func apply[T HistoryOptions | ConflictListOptions | ErrorListOptions](opts []Option[T]) (*T, error) {
	o := new(T)
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
