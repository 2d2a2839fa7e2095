package pipeline

// ProgressSink observes milestones of a run. Percentages never decrease
// within one run.
type ProgressSink interface {
	OnProgress(percent int, message string)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(percent int, message string)

func (f ProgressFunc) OnProgress(percent int, message string) { f(percent, message) }

type discard struct{}

func (discard) OnProgress(int, string) {}

// batchProgress maps finished extraction batches onto 10..90.
func batchProgress(done, total int) int {
	if total <= 0 {
		return 90
	}
	return 10 + done*80/total
}
