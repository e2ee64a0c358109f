package model

// TaskProgress is a task's Pomodoro completion count as reported by the session service.
type TaskProgress struct {
	Completed int
	Estimated int
}

// Ratio returns Completed/Estimated, or 0 for tasks without an estimate.
func (progress TaskProgress) Ratio() float64 {
	if progress.Estimated <= 0 {
		return 0
	}
	return float64(progress.Completed) / float64(progress.Estimated)
}

// Percent returns Ratio scaled to 0..100.
func (progress TaskProgress) Percent() float64 {
	return progress.Ratio() * 100
}
