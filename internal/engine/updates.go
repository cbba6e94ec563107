package engine

import "fmt"

// ProgressUpdate represents a progress event during a batch run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Step    int    // Current file number, 0 for the run banner
	Total   int    // Total files in the run
	Message string // Human-readable message for display
}

func batchStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Obscuring %d files...", total),
	}
}

func batchFileUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Obscuring: %s...", step, total, name),
	}
}

func batchCompletedUpdate(step, total int, name string, findings int) ProgressUpdate {
	return ProgressUpdate{
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d findings)", step, total, name, findings),
	}
}

func batchFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
