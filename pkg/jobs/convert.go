// pkg/jobs/convert.go

package jobs

import (
	"github.com/RiptideSecurity/scour/pkg/journal"
	"github.com/RiptideSecurity/scour/pkg/patterns"
	"github.com/RiptideSecurity/scour/pkg/sanitize"
)

// toRecord maps a snapshot onto its persisted journal form.
func toRecord(s Snapshot) *journal.Record {
	records := make([]sanitize.PassRecord, len(s.PassRecords))
	copy(records, s.PassRecords)

	return &journal.Record{
		ID:              s.ID,
		TargetRef:       s.TargetRef,
		TargetPath:      s.TargetPath,
		Standard:        string(s.Standard),
		RequestedPasses: s.RequestedPasses,
		ExtentSize:      s.ExtentSize,
		State:           string(s.State),
		CurrentPass:     s.CurrentPass,
		BytesInPass:     s.BytesInPass,
		PassRecords:     records,
		Error:           s.Error,
		Residue:         s.Residue,
		CreatedAt:       s.CreatedAt,
		StartedAt:       s.StartedAt,
		CompletedAt:     s.CompletedAt,
	}
}

// fromRecord rebuilds an in-memory job from a journal record. Rehydrated
// jobs are always terminal (interrupted ones were failed during load), so
// the done channel starts closed and no target lock is taken.
func fromRecord(rec *journal.Record) *Job {
	job := &Job{
		id:              rec.ID,
		targetRef:       rec.TargetRef,
		targetPath:      rec.TargetPath,
		standard:        patterns.Standard(rec.Standard),
		requestedPasses: rec.RequestedPasses,
		extentSize:      rec.ExtentSize,
		state:           State(rec.State),
		currentPass:     rec.CurrentPass,
		bytesInPass:     rec.BytesInPass,
		passRecords:     rec.PassRecords,
		errMsg:          rec.Error,
		residue:         rec.Residue,
		createdAt:       rec.CreatedAt,
		startedAt:       rec.StartedAt,
		completedAt:     rec.CompletedAt,
		done:            make(chan struct{}),
	}

	if job.state == StateCompleted {
		job.progressPct = 100
	} else if job.requestedPasses > 0 && job.extentSize > 0 {
		job.updateProgress()
	}
	if job.state == StateFailed && job.errMsg != "" {
		job.interrupted = rec.Error == "interrupted: process exited mid-job"
	}

	close(job.done)
	return job
}
