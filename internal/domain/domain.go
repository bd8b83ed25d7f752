package domain

// DowntimeState is the lifecycle position of a DowntimeEvent, derived
// from which fields are set rather than stored as a column.
type DowntimeState string

const (
	// StateOpen means the stoppage is reported and nobody has picked it up.
	StateOpen DowntimeState = "open"
	// StateAcknowledged means a technician has claimed the stoppage.
	StateAcknowledged DowntimeState = "acknowledged"
	// StateClosed is terminal; end time and duration are frozen.
	StateClosed DowntimeState = "closed"
)

type Line struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type Machine struct {
	ID          string `json:"id"`
	LineID      string `json:"line_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type Operator struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BadgeID   string `json:"badge_id,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Reason is a coded downtime or quality cause from the reason catalog.
type Reason struct {
	ID          string `json:"id"`
	Kind        string `json:"kind" enum:"downtime,quality"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

type WorkOrder struct {
	ID             string  `json:"id"`
	Number         string  `json:"number"`
	PartNumber     string  `json:"part_number,omitempty"`
	TargetQuantity int64   `json:"target_quantity"`
	DueDate        string  `json:"due_date,omitempty" format:"date"`
	LineID         string  `json:"line_id"`
	Status         string  `json:"status" enum:"scheduled,active,completed,canceled"`
	StartedAt      *string `json:"started_at,omitempty" format:"date-time"`
	CompletedAt    *string `json:"completed_at,omitempty" format:"date-time"`
}

// DowntimeEvent is a recorded stoppage interval for a machine, from the
// operator's report to closure. EndTime nil means the machine is still down.
// DurationMinutes is written exactly once, at closure, and never recomputed.
type DowntimeEvent struct {
	ID              string   `json:"id"`
	MachineID       string   `json:"machine_id"`
	LineID          string   `json:"line_id"`
	WorkOrderID     *string  `json:"work_order_id,omitempty"`
	OperatorID      *string  `json:"operator_id,omitempty"`
	ReasonID        string   `json:"reason_id"`
	StartTime       string   `json:"start_time" format:"date-time"`
	EndTime         *string  `json:"end_time,omitempty" format:"date-time"`
	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	TechnicianID    *string  `json:"technician_id,omitempty"`
	AcknowledgedAt  *string  `json:"acknowledged_at,omitempty" format:"date-time"`
	ResolutionNotes *string  `json:"resolution_notes,omitempty"`
}

// State derives the lifecycle state from the event's fields.
func (e DowntimeEvent) State() DowntimeState {
	if e.EndTime != nil {
		return StateClosed
	}
	if e.TechnicianID != nil {
		return StateAcknowledged
	}
	return StateOpen
}

// Closed reports whether the event has reached its terminal state.
func (e DowntimeEvent) Closed() bool { return e.EndTime != nil }

// QualityEvent is an immutable scrap/defect fact.
type QualityEvent struct {
	ID          string  `json:"id"`
	MachineID   string  `json:"machine_id"`
	LineID      string  `json:"line_id"`
	WorkOrderID *string `json:"work_order_id,omitempty"`
	OperatorID  *string `json:"operator_id,omitempty"`
	ReasonID    string  `json:"reason_id"`
	Quantity    int64   `json:"quantity"`
	Timestamp   string  `json:"timestamp" format:"date-time"`
	Notes       string  `json:"notes,omitempty"`
}

// ProductionCount is an immutable good/scrap output fact.
type ProductionCount struct {
	ID            string  `json:"id"`
	MachineID     string  `json:"machine_id"`
	LineID        string  `json:"line_id"`
	WorkOrderID   *string `json:"work_order_id,omitempty"`
	OperatorID    *string `json:"operator_id,omitempty"`
	GoodQuantity  int64   `json:"good_quantity"`
	ScrapQuantity int64   `json:"scrap_quantity"`
	Timestamp     string  `json:"timestamp" format:"date-time"`
}

// SafetyIncident is recorded at day granularity per line.
type SafetyIncident struct {
	ID          string `json:"id"`
	LineID      string `json:"line_id"`
	Date        string `json:"date" format:"date"`
	Description string `json:"description"`
}

// Target is the per-line goal for one SQDC metric. Unique per (line, metric).
type Target struct {
	LineID    string  `json:"line_id"`
	Metric    string  `json:"metric" enum:"safety,quality,delivery,cost"`
	Value     float64 `json:"value"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

// Action is a corrective action item raised from scorecard alerts.
type Action struct {
	ID              string  `json:"id"`
	Timestamp       string  `json:"timestamp" format:"date-time"`
	LineID          string  `json:"line_id"`
	Category        string  `json:"category"`
	Description     string  `json:"description"`
	AssigneeID      *string `json:"assignee_id,omitempty"`
	Status          string  `json:"status" enum:"open,closed"`
	ResolutionNotes *string `json:"resolution_notes,omitempty"`
}

// Event is one audit-log entry appended alongside every mutation.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// Metric type names used by targets and the scorecard.
const (
	MetricSafety   = "safety"
	MetricQuality  = "quality"
	MetricDelivery = "delivery"
	MetricCost     = "cost"
)

// MetricTypes lists the valid target metric names.
var MetricTypes = []string{MetricSafety, MetricQuality, MetricDelivery, MetricCost}

// ValidMetric reports whether name is a known SQDC metric type.
func ValidMetric(name string) bool {
	for _, m := range MetricTypes {
		if m == name {
			return true
		}
	}
	return false
}
