package cron

import "context"

// Job is one unit of scheduled maintenance work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs a worker executes each tick, in registration
// order.
type Registry struct {
	entries []Job
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register appends a job; nil jobs are dropped.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.entries = append(r.entries, job)
}

// Jobs returns a copy so callers cannot reorder the schedule.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.entries))
	copy(jobs, r.entries)
	return jobs
}
