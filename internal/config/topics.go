package config

const (
	// TopicJobStatus is the NSQ topic for job lifecycle status events.
	TopicJobStatus = "pdf.job.status"

	// TopicJobCompleted is the NSQ topic notified once a job reaches a terminal state.
	TopicJobCompleted = "pdf.job.terminal"
)
