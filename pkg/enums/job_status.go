package enums

import "slices"

// JobStatus tracks the lifecycle of a manufacturing job.
type JobStatus string

const (
	JobStatusDraft      JobStatus = "Draft"
	JobStatusPlanned    JobStatus = "Planned"
	JobStatusReady      JobStatus = "Ready"
	JobStatusInProgress JobStatus = "In Progress"
	JobStatusDone       JobStatus = "Done"
	JobStatusCancelled  JobStatus = "Cancelled"
)

var validJobStatuses = []JobStatus{
	JobStatusDraft,
	JobStatusPlanned,
	JobStatusReady,
	JobStatusInProgress,
	JobStatusDone,
	JobStatusCancelled,
}

// String implements fmt.Stringer.
func (s JobStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known JobStatus.
func (s JobStatus) IsValid() bool {
	return slices.Contains(validJobStatuses, s)
}

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusCancelled
}

// IsOpen reports whether the job still represents future supply or demand.
func (s JobStatus) IsOpen() bool {
	return s.IsValid() && !s.IsTerminal()
}

// ParseJobStatus converts raw input into a JobStatus.
func ParseJobStatus(value string) (JobStatus, error) {
	return parseEnum(validJobStatuses, value, "job status")
}

// OpenJobStatuses lists the statuses counted by planning.
func OpenJobStatuses() []JobStatus {
	return []JobStatus{JobStatusDraft, JobStatusPlanned, JobStatusReady, JobStatusInProgress}
}
