package domain

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from ChainStage
		to   ChainStage
		want bool
	}{
		{"", StageGeneratingImage, true},
		{"", StageGeneratingVideo, true},
		{"", StageAnalyzingImage, false},
		{StageGeneratingImage, StageAnalyzingImage, true},
		{StageGeneratingImage, StageError, true},
		{StageGeneratingImage, StageGeneratingVideo, false},
		{StageGeneratingImage, StageCompleted, false},
		{StageAnalyzingImage, StageGeneratingVideo, true},
		{StageAnalyzingImage, StageError, true},
		{StageAnalyzingImage, StageCompleted, false},
		{StageGeneratingVideo, StageCompleted, true},
		{StageGeneratingVideo, StageError, true},
		{StageGeneratingVideo, StageAnalyzingImage, false},
		{StageCompleted, StageError, false},
		{StageCompleted, StageGeneratingImage, false},
		{StageError, StageGeneratingImage, false},
		{StageError, StageCompleted, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	job := &GenerationJob{ChainStage: StageCompleted}
	if err := job.Transition(StageError); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("Transition err = %v, want ErrIllegalTransition", err)
	}
	if job.ChainStage != StageCompleted {
		t.Fatalf("rejected transition mutated stage to %s", job.ChainStage)
	}

	job = &GenerationJob{ChainStage: StageGeneratingImage}
	if err := job.Transition(StageAnalyzingImage); err != nil {
		t.Fatalf("legal transition rejected: %v", err)
	}
	if job.ChainStage != StageAnalyzingImage {
		t.Fatalf("stage = %s, want analyzing_image", job.ChainStage)
	}
}

func TestTerminal(t *testing.T) {
	for stage, want := range map[ChainStage]bool{
		StageGeneratingImage: false,
		StageAnalyzingImage:  false,
		StageGeneratingVideo: false,
		StageCompleted:       true,
		StageError:           true,
	} {
		if got := stage.Terminal(); got != want {
			t.Fatalf("%s.Terminal() = %v, want %v", stage, got, want)
		}
	}
}
