package jobs

import (
	jobmetrics "github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/jobs"
)

// QueueDefault is the queue every payout job runs on.
const QueueDefault = "default"

var defaultJobMetrics = jobmetrics.NewMetrics(nil)
