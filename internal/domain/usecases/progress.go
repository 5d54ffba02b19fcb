package usecases

import "sync/atomic"

// StepStatus is the state of one upload step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepActive    StepStatus = "active"
	StepCompleted StepStatus = "completed"
	StepError     StepStatus = "error"
)

// ProgressStep is one stage of a multi-step upload.
type ProgressStep struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Status StepStatus `json:"status"`
}

// UploadProgress tracks a multi-step upload. At most one step is active at a
// time and the error, if any, belongs to the whole upload.
//
// Every method returns a new value; the receiver is never modified.
type UploadProgress struct {
	Steps       []ProgressStep `json:"steps"`
	CurrentStep string         `json:"currentStep,omitempty"`
	Error       string         `json:"error,omitempty"`

	token uint64
}

var progressSeq atomic.Uint64

// Step labels of the conversation and profile upload flows.
var (
	conversationUploadSteps = []ProgressStep{
		{ID: "upload", Label: "Uploading file"},
		{ID: "process", Label: "Processing and vectorizing"},
		{ID: "index", Label: "Indexing"},
	}
	profileUploadSteps = []ProgressStep{
		{ID: "upload", Label: "Uploading profile document"},
		{ID: "process", Label: "Processing and indexing"},
		{ID: "complete", Label: "Added to profile"},
	}
)

// NewProgress starts a progress tracker with the first step active.
func NewProgress(steps []ProgressStep) UploadProgress {
	p := UploadProgress{
		Steps: make([]ProgressStep, len(steps)),
		token: progressSeq.Add(1),
	}
	for i, s := range steps {
		s.Status = StepPending
		p.Steps[i] = s
	}
	if len(p.Steps) > 0 {
		p.Steps[0].Status = StepActive
		p.CurrentStep = p.Steps[0].ID
	}
	return p
}

// Advance completes the active step and activates the one after it.
func (p UploadProgress) Advance() UploadProgress {
	next := p.clone()
	for i, s := range next.Steps {
		if s.Status != StepActive {
			continue
		}
		next.Steps[i].Status = StepCompleted
		next.CurrentStep = ""
		if i+1 < len(next.Steps) {
			next.Steps[i+1].Status = StepActive
			next.CurrentStep = next.Steps[i+1].ID
		}
		break
	}
	return next
}

// Relabel changes the label of step id.
func (p UploadProgress) Relabel(id, label string) UploadProgress {
	next := p.clone()
	for i := range next.Steps {
		if next.Steps[i].ID == id {
			next.Steps[i].Label = label
		}
	}
	return next
}

// Fail moves the active step to error and records err on the upload.
// Other steps keep their state.
func (p UploadProgress) Fail(err error) UploadProgress {
	next := p.clone()
	for i := range next.Steps {
		if next.Steps[i].Status == StepActive {
			next.Steps[i].Status = StepError
		}
	}
	if err != nil {
		next.Error = err.Error()
	} else {
		next.Error = "unknown error"
	}
	return next
}

// Complete marks every step completed.
func (p UploadProgress) Complete() UploadProgress {
	next := p.clone()
	for i := range next.Steps {
		next.Steps[i].Status = StepCompleted
	}
	next.CurrentStep = ""
	return next
}

// Failed reports whether the upload ended in error.
func (p UploadProgress) Failed() bool {
	return p.Error != ""
}

func (p UploadProgress) clone() UploadProgress {
	next := p
	next.Steps = append([]ProgressStep(nil), p.Steps...)
	return next
}
