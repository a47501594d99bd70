package jobs

import "github.com/angelmondragon/mesflow-backend/pkg/enums"

var allowedTransitions = map[enums.JobStatus][]enums.JobStatus{
	enums.JobStatusDraft:      {enums.JobStatusPlanned, enums.JobStatusReady, enums.JobStatusCancelled},
	enums.JobStatusPlanned:    {enums.JobStatusDraft, enums.JobStatusReady, enums.JobStatusCancelled},
	enums.JobStatusReady:      {enums.JobStatusPlanned, enums.JobStatusInProgress, enums.JobStatusCancelled},
	enums.JobStatusInProgress: {enums.JobStatusReady, enums.JobStatusDone, enums.JobStatusCancelled},
}

// CanTransition reports whether a job may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to enums.JobStatus) bool {
	if from == to {
		return true
	}
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// requiresRecalculation marks statuses whose entry refreshes requirements and MRP.
func requiresRecalculation(status enums.JobStatus) bool {
	return status == enums.JobStatusPlanned || status == enums.JobStatusReady
}
