package payloads

import (
	"github.com/google/uuid"
)

// Task type names carried in the `type` field of every task message.
const (
	TaskJobRequirements = "jobRequirements"
	TaskSchedule        = "schedule"
	TaskMRP             = "mrp"
)

// JobRequirementsTask asks the worker to recalculate estimated material quantities of a job.
type JobRequirementsTask struct {
	Type      string    `json:"type"`
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"companyId"`
	UserID    uuid.UUID `json:"userId"`
}

// ScheduleTask asks the worker to call the external scheduler for a job.
type ScheduleTask struct {
	Type      string    `json:"type"`
	JobID     uuid.UUID `json:"jobId"`
	CompanyID uuid.UUID `json:"companyId"`
	UserID    uuid.UUID `json:"userId"`
}

// MRPTask asks the worker to recalculate suggested actions for one scope.
// Exactly one of JobID, ItemID+LocationID or the bare CompanyID is set.
type MRPTask struct {
	Type       string     `json:"type"`
	CompanyID  uuid.UUID  `json:"companyId"`
	UserID     uuid.UUID  `json:"userId"`
	JobID      *uuid.UUID `json:"jobId,omitempty"`
	ItemID     *uuid.UUID `json:"itemId,omitempty"`
	LocationID *uuid.UUID `json:"locationId,omitempty"`
}
