package app

import (
	"github.com/voyagedesk/inventory-sync/internal/retry"
	"github.com/voyagedesk/inventory-sync/internal/service"
	"github.com/voyagedesk/inventory-sync/internal/store"
	pkgsync "github.com/voyagedesk/inventory-sync/internal/sync"
	"github.com/voyagedesk/inventory-sync/internal/sync/scheduler"
	"github.com/voyagedesk/inventory-sync/internal/telemetry"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Store persists inventory, profiles, runs, conflicts, errors and history
	Store store.Store

	// Orchestrator executes runs
	Orchestrator *pkgsync.Orchestrator

	// Scheduler triggers scheduled runs in the background
	Scheduler *scheduler.Scheduler

	// Errors owns the SyncError lifecycle
	Errors *retry.Manager

	// SyncService provides the operator-facing business logic
	SyncService service.SyncService

	// Telemetry owns the tracer and meter providers
	Telemetry *telemetry.Telemetry
}
