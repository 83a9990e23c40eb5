package models

// ScheduleStatus is the outcome of a scheduling operation.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusPartial   ScheduleStatus = "partial"
	ScheduleStatusRejected  ScheduleStatus = "rejected"
)

// ResolutionState marks a step in the per-conflict resolution cascade.
type ResolutionState string

const (
	ResolutionDetected            ResolutionState = "detected"
	ResolutionRescheduleAttempted ResolutionState = "reschedule_attempted"
	ResolutionMoved               ResolutionState = "moved"
	ResolutionCancelAttempted     ResolutionState = "cancel_attempted"
	ResolutionCancelled           ResolutionState = "cancelled"
	ResolutionUnresolved          ResolutionState = "unresolved"
)

// Terminal reports whether no further transition follows s.
func (s ResolutionState) Terminal() bool {
	return s == ResolutionMoved || s == ResolutionCancelled || s == ResolutionUnresolved
}

// Resolution is the audit trail of one conflicting appointment.
type Resolution struct {
	AppointmentID string            `json:"appointment_id"`
	Trail         []ResolutionState `json:"trail"`
}

// Outcome is the last state reached.
func (r Resolution) Outcome() ResolutionState {
	if len(r.Trail) == 0 {
		return ""
	}
	return r.Trail[len(r.Trail)-1]
}

// ScheduleResult reports what a schedule or reschedule call did.
type ScheduleResult struct {
	Status      ScheduleStatus `json:"status"`
	Appointment *Appointment   `json:"appointment,omitempty"`
	Moved       []Appointment  `json:"moved"`
	Cancelled   []Appointment  `json:"cancelled"`
	Unresolved  []Appointment  `json:"unresolved"`
	Resolutions []Resolution   `json:"resolutions,omitempty"`
	Reason      string         `json:"reason,omitempty"`
}

// NewScheduleResult returns a result with empty, non-nil lists.
func NewScheduleResult() *ScheduleResult {
	return &ScheduleResult{Moved: []Appointment{}, Cancelled: []Appointment{}, Unresolved: []Appointment{}}
}

// RejectedResult builds the result reported when validation fails before any mutation.
func RejectedResult(reason string) *ScheduleResult {
	res := NewScheduleResult()
	res.Status = ScheduleStatusRejected
	res.Reason = reason
	return res
}

// CancelResult reports a cancellation.
type CancelResult struct {
	Cancelled   bool         `json:"cancelled"`
	Appointment *Appointment `json:"appointment,omitempty"`
}

// BatchConflict records a skipped batch item and what it would have collided with.
type BatchConflict struct {
	UpdateIndex   int           `json:"update_index"`
	AppointmentID string        `json:"appointment_id"`
	Conflicts     []Appointment `json:"conflicts"`
}

// BatchFailure records a batch item the store refused.
type BatchFailure struct {
	UpdateIndex   int    `json:"update_index"`
	AppointmentID string `json:"appointment_id"`
	Code          string `json:"code"`
	Message       string `json:"message"`
}

// BatchResult aggregates a batch of independent updates.
type BatchResult struct {
	Updated   []Appointment   `json:"updated"`
	Conflicts []BatchConflict `json:"conflicts"`
	Failed    []BatchFailure  `json:"failed,omitempty"`
}
