package dispatch

import "fmt"

// RejectReason enumerates why a submission was refused (spec §6).
type RejectReason string

const (
	ReasonShutdown        RejectReason = "Shutdown"
	ReasonBacklogFull     RejectReason = "BacklogFull"
	ReasonUnknownExecutor RejectReason = "UnknownExecutor"
)

// RejectedSubmission is returned by Submit/SubmitFunc when a task cannot be
// admitted or queued.
type RejectedSubmission struct {
	Reason RejectReason
}

func (e *RejectedSubmission) Error() string {
	return fmt.Sprintf("dispatch: submission rejected (%s)", e.Reason)
}

// ErrNilContext and ErrNilRunnable mark the programmer-misuse inputs called
// out in spec §7: a hard failure signal, not a RejectedSubmission.
var (
	ErrNilContext = fmt.Errorf("dispatch: task context must not be nil")
	ErrNilRunnable = fmt.Errorf("dispatch: runnable must not be nil")
)
