package jobs

// Queue names shared between enqueuers and the worker. Audit persistence
// rides the critical queue; housekeeping uses default.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// PruneSchedule runs the audit retention sweep nightly.
const PruneSchedule = "17 2 * * *"
