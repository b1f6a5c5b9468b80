package v1

import (
	"github.com/voyagedesk/inventory-sync/internal/inventory"
	pkgsync "github.com/voyagedesk/inventory-sync/internal/sync"
)

// TriggerRequest is the body of POST /trigger
type TriggerRequest struct {
	SupplierID string `json:"supplierId"`
}

// TriggerResponse acknowledges a queued run
type TriggerResponse struct {
	RunID  string              `json:"runId"`
	Status inventory.RunStatus `json:"status"`
}

// StatusResponse lists supplier statuses
type StatusResponse struct {
	Suppliers []*pkgsync.SupplierStatus `json:"suppliers"`
}

// ResolveConflictRequest is the body of POST /conflicts/{conflictId}/resolve
type ResolveConflictRequest struct {
	Resolution inventory.Resolution `json:"resolution"`
	Value      inventory.Fields     `json:"value,omitempty"`
	ResolvedBy string               `json:"resolvedBy,omitempty"`
}

// ConflictListResponse lists conflicts
type ConflictListResponse struct {
	Conflicts []*inventory.SyncConflict `json:"conflicts"`
	Count     int                       `json:"count"`
}

// UpdateScheduleRequest is the body of PUT /schedule
type UpdateScheduleRequest struct {
	SupplierID string `json:"supplierId"`
	inventory.Schedule
}

// ErrorListResponse lists sync errors
type ErrorListResponse struct {
	Errors []*inventory.SyncError `json:"errors"`
	Count  int                    `json:"count"`
}

// ClearErrorsResponse reports how many resolved errors were deleted
type ClearErrorsResponse struct {
	Deleted int `json:"deleted"`
}
