package server

import (
	"shopfloor/internal/domain"
	"shopfloor/internal/report"
)

type CreateLineRequest struct {
	Name        string `json:"name" example:"Line_A"`
	Description string `json:"description,omitempty"`
}

type CreateMachineRequest struct {
	Name        string `json:"name" example:"Conveyor_1"`
	Description string `json:"description,omitempty"`
}

type CreateOperatorRequest struct {
	Name    string `json:"name" example:"Jane_Smith"`
	BadgeID string `json:"badge_id,omitempty"`
}

type CreateReasonRequest struct {
	Kind        string `json:"kind" enum:"downtime,quality"`
	Code        string `json:"code" example:"JAM"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

type CreateWorkOrderRequest struct {
	Number         string `json:"number" example:"WO-1001"`
	PartNumber     string `json:"part_number,omitempty"`
	TargetQuantity int64  `json:"target_quantity,omitempty"`
	DueDate        string `json:"due_date,omitempty" format:"date"`
	LineID         string `json:"line_id"`
}

type SetWorkOrderStatusRequest struct {
	Status string `json:"status" enum:"active,completed,canceled"`
}

type StartDowntimeRequest struct {
	MachineID   string `json:"machine_id"`
	ReasonID    string `json:"reason_id"`
	WorkOrderID string `json:"work_order_id,omitempty"`
	OperatorID  string `json:"operator_id,omitempty"`
	StartTime   string `json:"start_time,omitempty" format:"date-time"`
	Notes       string `json:"notes,omitempty"`
}

type AcknowledgeDowntimeRequest struct {
	TechnicianID string `json:"technician_id"`
}

type CloseDowntimeRequest struct {
	EndTime string `json:"end_time,omitempty" format:"date-time"`
}

type ResolveDowntimeRequest struct {
	EndTime         string `json:"end_time,omitempty" format:"date-time"`
	ResolutionNotes string `json:"resolution_notes"`
}

type LogQualityEventRequest struct {
	MachineID   string `json:"machine_id"`
	ReasonID    string `json:"reason_id"`
	WorkOrderID string `json:"work_order_id,omitempty"`
	OperatorID  string `json:"operator_id,omitempty"`
	Quantity    int64  `json:"quantity" minimum:"1"`
	Timestamp   string `json:"timestamp,omitempty" format:"date-time"`
	Notes       string `json:"notes,omitempty"`
}

type LogProductionCountRequest struct {
	MachineID     string `json:"machine_id"`
	WorkOrderID   string `json:"work_order_id,omitempty"`
	OperatorID    string `json:"operator_id,omitempty"`
	GoodQuantity  int64  `json:"good_quantity" minimum:"0"`
	ScrapQuantity int64  `json:"scrap_quantity,omitempty" minimum:"0"`
	Timestamp     string `json:"timestamp,omitempty" format:"date-time"`
}

type LogSafetyIncidentRequest struct {
	Date        string `json:"date,omitempty" format:"date"`
	Description string `json:"description"`
}

type SetTargetRequest struct {
	Metric string  `json:"metric" enum:"safety,quality,delivery,cost"`
	Value  float64 `json:"value" minimum:"0"`
}

type CreateActionRequest struct {
	Category    string `json:"category" enum:"safety,quality,delivery,cost"`
	Description string `json:"description"`
	AssigneeID  string `json:"assignee_id,omitempty"`
}

type CloseActionRequest struct {
	ResolutionNotes string `json:"resolution_notes,omitempty"`
}

// Domain structs already carry API-shaped json tags, so responses reuse
// them directly instead of mirroring every field.
type LineResponse = domain.Line
type MachineResponse = domain.Machine
type OperatorResponse = domain.Operator
type ReasonResponse = domain.Reason
type WorkOrderResponse = domain.WorkOrder
// DowntimeResponse mirrors domain.DowntimeEvent flat, plus the derived
// lifecycle state.
type DowntimeResponse struct {
	ID              string               `json:"id"`
	MachineID       string               `json:"machine_id"`
	LineID          string               `json:"line_id"`
	WorkOrderID     *string              `json:"work_order_id,omitempty"`
	OperatorID      *string              `json:"operator_id,omitempty"`
	ReasonID        string               `json:"reason_id"`
	StartTime       string               `json:"start_time" format:"date-time"`
	EndTime         *string              `json:"end_time,omitempty" format:"date-time"`
	DurationMinutes *float64             `json:"duration_minutes,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	TechnicianID    *string              `json:"technician_id,omitempty"`
	AcknowledgedAt  *string              `json:"acknowledged_at,omitempty" format:"date-time"`
	ResolutionNotes *string              `json:"resolution_notes,omitempty"`
	State           domain.DowntimeState `json:"state" enum:"open,acknowledged,closed"`
}
type QualityEventResponse = domain.QualityEvent
type ProductionCountResponse = domain.ProductionCount
type SafetyIncidentResponse = domain.SafetyIncident
type TargetResponse = domain.Target
type ActionResponse = domain.Action
type EventResponse = domain.Event
type ScorecardResponse = report.Scorecard
type MatrixRowResponse = report.MatrixRow
type WindowMetricsResponse = report.WindowMetrics

func downtimeResponse(d domain.DowntimeEvent) DowntimeResponse {
	return DowntimeResponse{
		ID:              d.ID,
		MachineID:       d.MachineID,
		LineID:          d.LineID,
		WorkOrderID:     d.WorkOrderID,
		OperatorID:      d.OperatorID,
		ReasonID:        d.ReasonID,
		StartTime:       d.StartTime,
		EndTime:         d.EndTime,
		DurationMinutes: d.DurationMinutes,
		Notes:           d.Notes,
		TechnicianID:    d.TechnicianID,
		AcknowledgedAt:  d.AcknowledgedAt,
		ResolutionNotes: d.ResolutionNotes,
		State:           d.State(),
	}
}

func mapDowntime(items []domain.DowntimeEvent) []DowntimeResponse {
	res := make([]DowntimeResponse, 0, len(items))
	for _, d := range items {
		res = append(res, downtimeResponse(d))
	}
	return res
}
