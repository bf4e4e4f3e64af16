package metrics

// Pipeline bundles the metrics the analysis pipeline reports, created once
// against a Registry and handed to the components that update them.
type Pipeline struct {
	PostsFetched  *Counter
	PostsDropped  *Counter
	PostsScored   *Counter
	TasksInflight *Gauge

	FetchBatchSeconds *Histogram
	ScoreCallSeconds  *Histogram
	TaskSeconds       *Histogram

	reg *Registry
}

// NewPipeline registers the pipeline metric set on reg.
func NewPipeline(reg *Registry) *Pipeline {
	return &Pipeline{
		PostsFetched:  reg.Counter("pulsewire_posts_fetched_total", "Posts fetched from sources"),
		PostsDropped:  reg.Counter("pulsewire_posts_dropped_total", "Posts dropped during fetch (timeouts, hydration failures)"),
		PostsScored:   reg.Counter("pulsewire_posts_scored_total", "Posts scored"),
		TasksInflight: reg.Gauge("pulsewire_tasks_inflight", "Analysis tasks currently processing"),

		FetchBatchSeconds: reg.Histogram("pulsewire_fetch_batch_seconds", "Fetch batch hydration latency", nil),
		ScoreCallSeconds:  reg.Histogram("pulsewire_score_call_seconds", "Scoring strategy call latency", nil),
		TaskSeconds:       reg.Histogram("pulsewire_task_seconds", "End-to-end task duration", []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200}),

		reg: reg,
	}
}

// ScoreFallback counts fallback scorings by reason ("error", "short", "timeout").
func (p *Pipeline) ScoreFallback(reason string) {
	p.reg.Counter(WithLabels("pulsewire_score_fallback_total", "reason", reason),
		"Scoring calls replaced by the local estimator").Inc()
}

// TaskFinished counts terminal tasks by status ("completed", "failed").
func (p *Pipeline) TaskFinished(status string) {
	p.reg.Counter(WithLabels("pulsewire_tasks_total", "status", status),
		"Finished analysis tasks").Inc()
}
