package lifecycle

import (
	"errors"
	"testing"

	"github.com/hemolink/platform/pkg/common/models"
)

func TestNextAllowsDeclaredTransitions(t *testing.T) {
	cases := []struct {
		current models.UnitStatus
		action  Action
		want    models.UnitStatus
	}{
		{models.StatusCollected, ActionSendToLab, models.StatusLab},
		{models.StatusLab, ActionPassScreening, models.StatusProcessing},
		{models.StatusLab, ActionFlagQuarantine, models.StatusQuarantine},
		{models.StatusProcessing, ActionCompleteProcessing, models.StatusReadyToUse},
		{models.StatusQuarantine, ActionQuarantineRelease, models.StatusReadyToUse},
		{models.StatusQuarantine, ActionQuarantineDiscard, models.StatusDiscarded},
		{models.StatusReadyToUse, ActionReserve, models.StatusReserved},
		{models.StatusReserved, ActionRelease, models.StatusReadyToUse},
		{models.StatusReserved, ActionShip, models.StatusIssued},
		{models.StatusIssued, ActionReturn, models.StatusReturned},
		{models.StatusReturned, ActionReturnAccept, models.StatusReadyToUse},
		{models.StatusReturned, ActionReturnReject, models.StatusDiscarded},
		{models.StatusReadyToUse, ActionDiscard, models.StatusDiscarded},
	}

	for _, tc := range cases {
		got, err := Next(tc.current, tc.action)
		if err != nil {
			t.Fatalf("%s from %s: unexpected error %v", tc.action, tc.current, err)
		}
		if got != tc.want {
			t.Fatalf("%s from %s: got %s, want %s", tc.action, tc.current, got, tc.want)
		}
	}
}

func TestNextRejectsIllegalTransitions(t *testing.T) {
	cases := []struct {
		current models.UnitStatus
		action  Action
	}{
		{models.StatusReserved, ActionReserve},
		{models.StatusCollected, ActionReserve},
		{models.StatusReadyToUse, ActionRelease},
		{models.StatusReadyToUse, ActionShip},
		{models.StatusDiscarded, ActionReserve},
		{models.StatusDiscarded, ActionQuarantineRelease},
		{models.StatusIssued, ActionDiscard},
	}

	for _, tc := range cases {
		if _, err := Next(tc.current, tc.action); !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("%s from %s: expected ErrIllegalTransition, got %v", tc.action, tc.current, err)
		}
	}

	if _, err := Next(models.StatusReadyToUse, Action("teleport")); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("unknown action: expected ErrIllegalTransition, got %v", err)
	}
}

func TestDiscardedIsAbsorbing(t *testing.T) {
	if !IsTerminal(models.StatusDiscarded) {
		t.Fatal("discarded must be terminal")
	}
	if IsTerminal(models.StatusIssued) {
		t.Fatal("issued items can still be returned")
	}
	if IsTerminal(models.StatusReadyToUse) {
		t.Fatal("ready_to_use is not terminal")
	}
}

func TestFromMatchesTable(t *testing.T) {
	from := From(ActionReserve)
	if len(from) != 1 || from[0] != models.StatusReadyToUse {
		t.Fatalf("reserve must only start from ready_to_use, got %v", from)
	}
	if From(Action("bogus")) != nil {
		t.Fatal("unknown action must have no from-set")
	}
}
