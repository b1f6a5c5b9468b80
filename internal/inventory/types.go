package inventory

import (
	"math"
	"slices"
	"time"
)

// RunStatus is the lifecycle state of a SyncRun
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusPartial   RunStatus = "partial"
)

// IsActive reports whether the run still holds its supplier's lock
func (s RunStatus) IsActive() bool {
	return s == RunStatusQueued || s == RunStatusRunning
}

// IsTerminal reports whether the run has finished
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusPartial
}

// Trigger records what started a run
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// ConflictType classifies an irreconcilable difference
type ConflictType string

const (
	ConflictPriceMismatch        ConflictType = "price_mismatch"
	ConflictAvailabilityMismatch ConflictType = "availability_mismatch"
	ConflictDuplicate            ConflictType = "duplicate"
	ConflictStructureMismatch    ConflictType = "structure_mismatch"
)

// Valid reports whether t is a known conflict type
func (t ConflictType) Valid() bool {
	switch t {
	case ConflictPriceMismatch, ConflictAvailabilityMismatch, ConflictDuplicate, ConflictStructureMismatch:
		return true
	}
	return false
}

// ConflictStatus is the review state of a conflict
type ConflictStatus string

const (
	ConflictStatusPending  ConflictStatus = "pending"
	ConflictStatusResolved ConflictStatus = "resolved"
	ConflictStatusSkipped  ConflictStatus = "skipped"
)

// Resolution is the strategy applied to a conflict
type Resolution string

const (
	ResolutionKeepLocal Resolution = "keep_local"
	ResolutionUseRemote Resolution = "use_remote"
	ResolutionMerge     Resolution = "merge"
	ResolutionSkip      Resolution = "skip"
)

// Valid reports whether r is a known resolution
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionKeepLocal, ResolutionUseRemote, ResolutionMerge, ResolutionSkip:
		return true
	}
	return false
}

// Severity grades a SyncError
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ErrorStatus is the remediation state of a SyncError
type ErrorStatus string

const (
	ErrorStatusFailed   ErrorStatus = "failed"
	ErrorStatusRetrying ErrorStatus = "retrying"
	ErrorStatusResolved ErrorStatus = "resolved"
)

// Operation names the step that failed, so it can be replayed
type Operation string

const (
	OperationFetch       Operation = "fetch"
	OperationApplyItem   Operation = "apply_item"
	OperationDeleteItem  Operation = "delete_item"
	OperationAutoResolve Operation = "auto_resolve"
)

// Error types recorded by the engine
const (
	ErrorTypeUnreachable   = "unreachable"
	ErrorTypeAuthFailed    = "auth_failed"
	ErrorTypeMalformed     = "malformed_snapshot"
	ErrorTypeFetchTimeout  = "fetch_timeout"
	ErrorTypeFetchFailed   = "fetch_failed"
	ErrorTypeMalformedItem = "malformed_item"
	ErrorTypeWriteTimeout  = "write_timeout"
	ErrorTypeWriteFailed   = "write_failed"
	ErrorTypeAutoResolve   = "auto_resolve_failed"
)

// Frequency is the scheduling policy of a profile
type Frequency string

const (
	FrequencyRealtime Frequency = "realtime"
	FrequencyHourly   Frequency = "hourly"
	FrequencyDaily    Frequency = "daily"
	FrequencyCustom   Frequency = "custom"
)

// Item is the local authoritative copy of one supplier inventory item
type Item struct {
	SupplierID string    `json:"supplierId"`
	ID         string    `json:"id"`
	Fields     Fields    `json:"fields"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// RemoteItem is one entry of a supplier snapshot
type RemoteItem struct {
	ID     string `json:"id" yaml:"id"`
	Fields Fields `json:"fields" yaml:"fields"`
}

// Schedule controls when scheduled runs are triggered for a supplier
type Schedule struct {
	Frequency Frequency `json:"frequency" yaml:"frequency"`
	// CustomInterval is in minutes and only used with FrequencyCustom
	CustomInterval  int      `json:"customInterval,omitempty" yaml:"customInterval,omitempty"`
	SyncTimes       []string `json:"syncTimes,omitempty" yaml:"syncTimes,omitempty"`
	ActiveDays      []string `json:"activeDays,omitempty" yaml:"activeDays,omitempty"`
	ExcludeWeekends bool     `json:"excludeWeekends" yaml:"excludeWeekends"`
	// Timezone is an IANA name; empty means UTC
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// Clone returns a deep copy of the schedule
func (s Schedule) Clone() Schedule {
	s.SyncTimes = slices.Clone(s.SyncTimes)
	s.ActiveDays = slices.Clone(s.ActiveDays)
	return s
}

// ConflictPolicy tunes detection and automatic resolution for a supplier
type ConflictPolicy struct {
	PriceTolerance float64                     `json:"priceTolerance" yaml:"priceTolerance"`
	RequiredFields []string                    `json:"requiredFields,omitempty" yaml:"requiredFields,omitempty"`
	AutoResolve    map[ConflictType]Resolution `json:"autoResolve,omitempty" yaml:"autoResolve,omitempty"`
}

// Clone returns a deep copy of the policy
func (p ConflictPolicy) Clone() ConflictPolicy {
	p.RequiredFields = slices.Clone(p.RequiredFields)
	if p.AutoResolve != nil {
		m := make(map[ConflictType]Resolution, len(p.AutoResolve))
		for k, v := range p.AutoResolve {
			m[k] = v
		}
		p.AutoResolve = m
	}
	return p
}

// Profile is the sync configuration of one supplier. Profiles are never
// deleted, only disabled.
type Profile struct {
	SupplierID      string         `json:"supplierId"`
	Enabled         bool           `json:"enabled"`
	Schedule        Schedule       `json:"schedule"`
	Policy          ConflictPolicy `json:"policy"`
	RemoveMissing   bool           `json:"removeMissing"`
	LastTriggeredAt *time.Time     `json:"lastTriggeredAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy of the profile
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.Schedule = p.Schedule.Clone()
	out.Policy = p.Policy.Clone()
	if p.LastTriggeredAt != nil {
		t := *p.LastTriggeredAt
		out.LastTriggeredAt = &t
	}
	return &out
}

// Counts tallies the write-through operations of a run
type Counts struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// SyncRun is one synchronization attempt for one supplier
type SyncRun struct {
	ID              string     `json:"id"`
	SupplierID      string     `json:"supplierId"`
	Tenant          string     `json:"tenant,omitempty"`
	Status          RunStatus  `json:"status"`
	Trigger         Trigger    `json:"trigger"`
	StartedAt       time.Time  `json:"startedAt"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
	ItemsTotal      int        `json:"itemsTotal"`
	ItemsProcessed  int        `json:"itemsProcessed"`
	Counts          Counts     `json:"counts"`
	ProgressPercent int        `json:"progressPercent"`
	Message         string     `json:"message,omitempty"`
}

// Clone returns a copy of the run
func (r *SyncRun) Clone() *SyncRun {
	if r == nil {
		return nil
	}
	out := *r
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		out.FinishedAt = &t
	}
	return &out
}

// RecomputeProgress derives ProgressPercent from the item counters
func (r *SyncRun) RecomputeProgress() {
	switch {
	case r.Status.IsTerminal() && r.Status != RunStatusFailed:
		r.ProgressPercent = 100
	case r.ItemsTotal <= 0:
		r.ProgressPercent = 0
	default:
		r.ProgressPercent = min(100, r.ItemsProcessed*100/r.ItemsTotal)
	}
}

// SyncConflict is a divergence between the local and remote copy of an item
type SyncConflict struct {
	ID            string         `json:"id"`
	RunID         string         `json:"runId"`
	SupplierID    string         `json:"supplierId"`
	ItemID        string         `json:"itemId"`
	ConflictType  ConflictType   `json:"conflictType"`
	LocalVersion  Fields         `json:"localVersion"`
	RemoteVersion Fields         `json:"remoteVersion"`
	Status        ConflictStatus `json:"status"`
	Resolution    *Resolution    `json:"resolution"`
	ResolvedValue Fields         `json:"resolvedValue,omitempty"`
	ResolvedBy    string         `json:"resolvedBy,omitempty"`
	ResolvedAt    *time.Time     `json:"resolvedAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// Clone returns a deep copy of the conflict
func (c *SyncConflict) Clone() *SyncConflict {
	if c == nil {
		return nil
	}
	out := *c
	out.LocalVersion = c.LocalVersion.Clone()
	out.RemoteVersion = c.RemoteVersion.Clone()
	out.ResolvedValue = c.ResolvedValue.Clone()
	if c.Resolution != nil {
		r := *c.Resolution
		out.Resolution = &r
	}
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}

// SyncError is one failed operation inside a run
type SyncError struct {
	ID         string      `json:"id"`
	RunID      string      `json:"runId"`
	SupplierID string      `json:"supplierId"`
	ItemID     string      `json:"itemId,omitempty"`
	Severity   Severity    `json:"severity"`
	ErrorType  string      `json:"errorType"`
	Message    string      `json:"message"`
	Operation  Operation   `json:"operation"`
	Payload    Fields      `json:"payload,omitempty"`
	Status     ErrorStatus `json:"status"`
	RetryCount int         `json:"retryCount"`
	Timestamp  time.Time   `json:"timestamp"`
	ResolvedAt *time.Time  `json:"resolvedAt,omitempty"`
}

// Clone returns a deep copy of the error
func (e *SyncError) Clone() *SyncError {
	if e == nil {
		return nil
	}
	out := *e
	out.Payload = e.Payload.Clone()
	if e.ResolvedAt != nil {
		t := *e.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}

// HistoryEntry is the immutable ledger copy of a finished run
type HistoryEntry struct {
	SyncRun
	ConflictCount        int `json:"conflictCount"`
	PendingConflictCount int `json:"pendingConflictCount"`
	ErrorCount           int `json:"errorCount"`
}

// ConflictFilter narrows conflict listings; empty fields match everything
type ConflictFilter struct {
	SupplierID string
	RunID      string
	Status     ConflictStatus
}

// ErrorFilter narrows error listings; empty fields match everything
type ErrorFilter struct {
	SupplierID string
	RunID      string
	Status     ErrorStatus
}

// HistoryQuery selects a page of the history ledger
type HistoryQuery struct {
	SupplierID string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize applies paging defaults and bounds
func (q *HistoryQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
}

// Offset returns the number of entries to skip for the page. It saturates
// at math.MaxInt instead of overflowing for very large pages.
func (q *HistoryQuery) Offset() int {
	if q.Page <= 1 || q.PageSize <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.PageSize {
		return math.MaxInt
	}
	return (q.Page - 1) * q.PageSize
}

// Pagination describes the position of a page in a result set
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination computes page metadata for a total count
func NewPagination(page, pageSize, total int) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// HistoryPage is one page of history, most recent first
type HistoryPage struct {
	Entries    []*HistoryEntry `json:"entries"`
	Pagination Pagination      `json:"pagination"`
}
