// Package v1 provides the operator endpoints of the inventory sync API.
package v1

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voyagedesk/inventory-sync/internal/api/common"
	"github.com/voyagedesk/inventory-sync/internal/service"
)

// Routes handles HTTP requests for the inventory sync endpoints.
type Routes struct {
	service service.SyncService
}

// NewRoutes creates a new Routes instance with the given service.
func NewRoutes(svc service.SyncService) *Routes {
	return &Routes{
		service: svc,
	}
}

// Router creates and configures the HTTP router for the inventory sync endpoints.
func Router(svc service.SyncService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	r.Get("/status", routes.getStatus)
	r.Post("/trigger", routes.trigger)
	r.Get("/runs/{runId}", routes.getRun)
	r.Get("/history", routes.getHistory)

	r.Get("/conflicts", routes.listConflicts)
	r.Post("/conflicts/{conflictId}/resolve", routes.resolveConflict)

	r.Get("/schedule", routes.getSchedule)
	r.Put("/schedule", routes.updateSchedule)

	r.Get("/errors", routes.listErrors)
	r.Delete("/errors/resolved", routes.clearResolvedErrors)
	r.Post("/errors/{errorId}/retry", routes.retryError)

	return r
}

// getStatus handles GET /inventory-sync/status
//
// @Summary		Sync status
// @Description	Current or most recent run of one supplier, or of every supplier
// @Tags			sync
// @Produce		json
// @Param			supplierId	query		string	false	"Supplier ID"
// @Success		200			{object}	StatusResponse
// @Failure		404			{object}	common.ErrorResponse
// @Router			/inventory-sync/status [get]
func (routes *Routes) getStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := routes.service.GetStatus(r.Context(), r.URL.Query().Get("supplierId"))
	if err != nil {
		common.WriteServiceError(w, err, "get sync status")
		return
	}
	common.WriteJSONResponse(w, StatusResponse{Suppliers: statuses}, http.StatusOK)
}

// trigger handles POST /inventory-sync/trigger
//
// @Summary		Trigger a sync
// @Description	Queue a manual run for a supplier
// @Tags			sync
// @Accept			json
// @Produce		json
// @Param			request	body		TriggerRequest	true	"Supplier to sync"
// @Success		202		{object}	TriggerResponse
// @Failure		400		{object}	common.ErrorResponse
// @Failure		404		{object}	common.ErrorResponse
// @Failure		409		{object}	common.ErrorResponse
// @Router			/inventory-sync/trigger [post]
func (routes *Routes) trigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := common.DecodeJSONBody(w, r, &req); err != nil {
		common.WriteServiceError(w, err, "decode trigger request")
		return
	}

	run, err := routes.service.TriggerSync(r.Context(), req.SupplierID)
	if err != nil {
		common.WriteServiceError(w, err, "trigger sync")
		return
	}
	common.WriteJSONResponse(w, TriggerResponse{RunID: run.ID, Status: run.Status}, http.StatusAccepted)
}

// getRun handles GET /inventory-sync/runs/{runId}
func (routes *Routes) getRun(w http.ResponseWriter, r *http.Request) {
	runID, err := common.GetAndValidateURLParam(r, "runId")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	run, err := routes.service.GetRun(r.Context(), runID)
	if err != nil {
		common.WriteServiceError(w, err, "get run")
		return
	}
	common.WriteJSONResponse(w, run, http.StatusOK)
}

// getHistory handles GET /inventory-sync/history
//
// @Summary		Sync history
// @Description	Paginated ledger of finished runs, most recent first
// @Tags			sync
// @Produce		json
// @Param			supplierId	query		string	false	"Supplier ID"
// @Param			page		query		int		false	"Page, starting at 1"
// @Param			pageSize	query		int		false	"Page size"
// @Param			from		query		string	false	"RFC3339 lower bound of startedAt"
// @Param			to			query		string	false	"RFC3339 upper bound of startedAt"
// @Success		200			{object}	inventory.HistoryPage
// @Failure		400			{object}	common.ErrorResponse
// @Router			/inventory-sync/history [get]
func (routes *Routes) getHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var opts []service.Option[service.HistoryOptions]

	if supplierID := query.Get("supplierId"); supplierID != "" {
		opts = append(opts, service.WithSupplierID[service.HistoryOptions](supplierID))
	}
	for _, p := range []struct {
		name string
		opt  func(int) service.Option[service.HistoryOptions]
	}{
		{"page", service.WithPage},
		{"pageSize", service.WithPageSize},
	} {
		raw := query.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			common.WriteErrorResponse(w,
				fmt.Sprintf("Invalid %s parameter: must be an integer", p.name), http.StatusBadRequest)
			return
		}
		opts = append(opts, p.opt(n))
	}
	for _, p := range []struct {
		name string
		opt  func(time.Time) service.Option[service.HistoryOptions]
	}{
		{"from", service.WithFrom},
		{"to", service.WithTo},
	} {
		raw := query.Get(p.name)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.WriteErrorResponse(w,
				fmt.Sprintf("Invalid %s parameter: must be RFC3339 format", p.name), http.StatusBadRequest)
			return
		}
		opts = append(opts, p.opt(ts))
	}

	page, err := routes.service.GetHistory(r.Context(), opts...)
	if err != nil {
		common.WriteServiceError(w, err, "get sync history")
		return
	}
	common.WriteJSONResponse(w, page, http.StatusOK)
}

// listConflicts handles GET /inventory-sync/conflicts
//
// @Summary		List conflicts
// @Description	Conflicts awaiting review unless another status (or "all") is requested
// @Tags			conflicts
// @Produce		json
// @Param			supplierId	query		string	false	"Supplier ID"
// @Param			runId		query		string	false	"Run ID"
// @Param			status		query		string	false	"pending, resolved, skipped or all"
// @Success		200			{object}	ConflictListResponse
// @Failure		400			{object}	common.ErrorResponse
// @Router			/inventory-sync/conflicts [get]
func (routes *Routes) listConflicts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var opts []service.Option[service.ConflictListOptions]
	if v := query.Get("supplierId"); v != "" {
		opts = append(opts, service.WithSupplierID[service.ConflictListOptions](v))
	}
	if v := query.Get("runId"); v != "" {
		opts = append(opts, service.WithRunID[service.ConflictListOptions](v))
	}
	if v := query.Get("status"); v != "" {
		opts = append(opts, service.WithConflictStatus(v))
	}

	conflicts, err := routes.service.ListConflicts(r.Context(), opts...)
	if err != nil {
		common.WriteServiceError(w, err, "list conflicts")
		return
	}
	common.WriteJSONResponse(w, ConflictListResponse{Conflicts: conflicts, Count: len(conflicts)}, http.StatusOK)
}

// resolveConflict handles POST /inventory-sync/conflicts/{conflictId}/resolve
//
// @Summary		Resolve a conflict
// @Tags			conflicts
// @Accept			json
// @Produce		json
// @Param			conflictId	path		string					true	"Conflict ID"
// @Param			request		body		ResolveConflictRequest	true	"Resolution"
// @Success		200			{object}	inventory.SyncConflict
// @Failure		400			{object}	common.ErrorResponse
// @Failure		404			{object}	common.ErrorResponse
// @Failure		409			{object}	common.ErrorResponse
// @Router			/inventory-sync/conflicts/{conflictId}/resolve [post]
func (routes *Routes) resolveConflict(w http.ResponseWriter, r *http.Request) {
	conflictID, err := common.GetAndValidateURLParam(r, "conflictId")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req ResolveConflictRequest
	if err := common.DecodeJSONBody(w, r, &req); err != nil {
		common.WriteServiceError(w, err, "decode resolve request")
		return
	}

	resolved, err := routes.service.ResolveConflict(r.Context(), conflictID, service.ResolveRequest{
		Resolution: req.Resolution,
		Value:      req.Value,
		ResolvedBy: req.ResolvedBy,
	})
	if err != nil {
		common.WriteServiceError(w, err, "resolve conflict")
		return
	}
	common.WriteJSONResponse(w, resolved, http.StatusOK)
}

// getSchedule handles GET /inventory-sync/schedule
func (routes *Routes) getSchedule(w http.ResponseWriter, r *http.Request) {
	supplierID := r.URL.Query().Get("supplierId")
	views, err := routes.service.GetSchedules(r.Context(), supplierID)
	if err != nil {
		common.WriteServiceError(w, err, "get schedule")
		return
	}
	if supplierID != "" && len(views) == 1 {
		common.WriteJSONResponse(w, views[0], http.StatusOK)
		return
	}
	common.WriteJSONResponse(w, views, http.StatusOK)
}

// updateSchedule handles PUT /inventory-sync/schedule
//
// @Summary		Update a schedule
// @Tags			schedule
// @Accept			json
// @Produce		json
// @Param			request	body		UpdateScheduleRequest	true	"Supplier and its new schedule"
// @Success		200		{object}	service.ScheduleView
// @Failure		400		{object}	common.ErrorResponse
// @Failure		404		{object}	common.ErrorResponse
// @Router			/inventory-sync/schedule [put]
func (routes *Routes) updateSchedule(w http.ResponseWriter, r *http.Request) {
	var req UpdateScheduleRequest
	if err := common.DecodeJSONBody(w, r, &req); err != nil {
		common.WriteServiceError(w, err, "decode schedule")
		return
	}

	view, err := routes.service.UpdateSchedule(r.Context(), req.SupplierID, req.Schedule)
	if err != nil {
		common.WriteServiceError(w, err, "update schedule")
		return
	}
	common.WriteJSONResponse(w, view, http.StatusOK)
}

// listErrors handles GET /inventory-sync/errors
//
// @Summary		List sync errors
// @Tags			errors
// @Produce		json
// @Param			supplierId	query		string	false	"Supplier ID"
// @Param			runId		query		string	false	"Run ID"
// @Param			status		query		string	false	"failed, retrying or resolved"
// @Success		200			{object}	ErrorListResponse
// @Failure		400			{object}	common.ErrorResponse
// @Router			/inventory-sync/errors [get]
func (routes *Routes) listErrors(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var opts []service.Option[service.ErrorListOptions]
	if v := query.Get("supplierId"); v != "" {
		opts = append(opts, service.WithSupplierID[service.ErrorListOptions](v))
	}
	if v := query.Get("runId"); v != "" {
		opts = append(opts, service.WithRunID[service.ErrorListOptions](v))
	}
	if v := query.Get("status"); v != "" {
		opts = append(opts, service.WithErrorStatus(v))
	}

	syncErrors, err := routes.service.ListErrors(r.Context(), opts...)
	if err != nil {
		common.WriteServiceError(w, err, "list sync errors")
		return
	}
	common.WriteJSONResponse(w, ErrorListResponse{Errors: syncErrors, Count: len(syncErrors)}, http.StatusOK)
}

// retryError handles POST /inventory-sync/errors/{errorId}/retry. The
// response carries the error after the replay: resolved, or failed again
// with the new message.
func (routes *Routes) retryError(w http.ResponseWriter, r *http.Request) {
	errorID, err := common.GetAndValidateURLParam(r, "errorId")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	syncErr, err := routes.service.RetryError(r.Context(), errorID)
	if err != nil {
		common.WriteServiceError(w, err, "retry sync error")
		return
	}
	common.WriteJSONResponse(w, syncErr, http.StatusOK)
}

// clearResolvedErrors handles DELETE /inventory-sync/errors/resolved
func (routes *Routes) clearResolvedErrors(w http.ResponseWriter, r *http.Request) {
	n, err := routes.service.ClearResolvedErrors(r.Context(), r.URL.Query().Get("supplierId"))
	if err != nil {
		common.WriteServiceError(w, err, "clear resolved errors")
		return
	}
	common.WriteJSONResponse(w, ClearErrorsResponse{Deleted: n}, http.StatusOK)
}
