package usecases

import (
	"errors"
	"testing"
)

func statuses(p UploadProgress) []StepStatus {
	out := make([]StepStatus, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Status
	}
	return out
}

func equalStatuses(got, want []StepStatus) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestProgress_StartsWithFirstStepActive(t *testing.T) {
	p := NewProgress(conversationUploadSteps)

	want := []StepStatus{StepActive, StepPending, StepPending}
	if got := statuses(p); !equalStatuses(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if p.CurrentStep != "upload" {
		t.Errorf("expected current step upload, got %s", p.CurrentStep)
	}
}

func TestProgress_AdvanceOneStepAtATime(t *testing.T) {
	p := NewProgress(conversationUploadSteps).Advance()

	want := []StepStatus{StepCompleted, StepActive, StepPending}
	if got := statuses(p); !equalStatuses(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if p.CurrentStep != "process" {
		t.Errorf("expected current step process, got %s", p.CurrentStep)
	}

	p = p.Advance().Advance()
	want = []StepStatus{StepCompleted, StepCompleted, StepCompleted}
	if got := statuses(p); !equalStatuses(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if p.CurrentStep != "" {
		t.Errorf("expected no current step, got %s", p.CurrentStep)
	}
}

func TestProgress_FailOnlyTouchesActiveStep(t *testing.T) {
	p := NewProgress(conversationUploadSteps).Advance().Fail(errors.New("vectorization failed"))

	want := []StepStatus{StepCompleted, StepError, StepPending}
	if got := statuses(p); !equalStatuses(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if p.Error != "vectorization failed" {
		t.Errorf("expected error on the upload, got %q", p.Error)
	}
	if !p.Failed() {
		t.Error("expected Failed to report true")
	}
}

func TestProgress_CompleteMarksEverything(t *testing.T) {
	p := NewProgress(profileUploadSteps).Complete()

	want := []StepStatus{StepCompleted, StepCompleted, StepCompleted}
	if got := statuses(p); !equalStatuses(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestProgress_MethodsDoNotMutateReceiver(t *testing.T) {
	p := NewProgress(conversationUploadSteps)
	_ = p.Advance()
	_ = p.Relabel("upload", "changed")
	_ = p.Fail(errors.New("boom"))

	if p.Steps[0].Status != StepActive || p.Steps[0].Label != "Uploading file" || p.Error != "" {
		t.Errorf("receiver was modified: %+v", p)
	}
}
