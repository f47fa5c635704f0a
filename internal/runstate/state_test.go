package runstate

import (
	"errors"
	"testing"

	"github.com/maestro-agents/maestro/pkg/models"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct {
		from, to models.RunState
	}{
		{models.RunPending, models.RunQueued},
		{models.RunPending, models.RunFailed},
		{models.RunPending, models.RunCancelled},
		{models.RunQueued, models.RunRunning},
		{models.RunQueued, models.RunCancelled},
		{models.RunQueued, models.RunTimeout},
		{models.RunRunning, models.RunCompleted},
		{models.RunRunning, models.RunFailed},
		{models.RunRunning, models.RunCancelled},
		{models.RunRunning, models.RunTimeout},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to models.RunState
	}{
		{models.RunPending, models.RunRunning},
		{models.RunPending, models.RunCompleted},
		{models.RunQueued, models.RunCompleted},
		{models.RunQueued, models.RunFailed},
		{models.RunCompleted, models.RunRunning},
		{models.RunFailed, models.RunQueued},
		{models.RunCancelled, models.RunRunning},
		{models.RunTimeout, models.RunCompleted},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%s, %s) = true, want false", tc.from, tc.to)
		}
	}
}

func TestTransition(t *testing.T) {
	next, err := Transition(models.RunPending, models.RunQueued)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if next != models.RunQueued {
		t.Errorf("next = %s, want queued", next)
	}

	if _, err := Transition(models.RunCompleted, models.RunRunning); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("terminal transition error = %v, want ErrInvalidTransition", err)
	}
}

func TestTerminalStatesHaveNoSuccessors(t *testing.T) {
	for _, s := range []models.RunState{models.RunCompleted, models.RunFailed, models.RunCancelled, models.RunTimeout} {
		if got := Next(s); len(got) != 0 {
			t.Errorf("Next(%s) = %v, want empty", s, got)
		}
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false", s)
		}
	}
}
