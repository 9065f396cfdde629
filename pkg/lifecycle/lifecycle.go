// Package lifecycle holds the single transition table for blood units and
// components. Every status change in the system goes through this table;
// handlers never hardcode their own preconditions.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/hemolink/platform/pkg/common/models"
)

type Action string

const (
	ActionSendToLab          Action = "send_to_lab"
	ActionPassScreening      Action = "pass_screening"
	ActionFlagQuarantine     Action = "flag_quarantine"
	ActionQuarantineRelease  Action = "quarantine_release"
	ActionQuarantineDiscard  Action = "quarantine_discard"
	ActionCompleteProcessing Action = "complete_processing"
	ActionQCHold             Action = "qc_hold"
	ActionQCRelease          Action = "qc_release"
	ActionReserve            Action = "reserve"
	ActionRelease            Action = "release"
	ActionShip               Action = "ship"
	ActionReturn             Action = "return"
	ActionReturnAccept       Action = "return_accept"
	ActionReturnReject       Action = "return_reject"
	ActionDiscard            Action = "discard"
)

var ErrIllegalTransition = errors.New("illegal status transition")

type rule struct {
	from []models.UnitStatus
	to   models.UnitStatus
}

var table = map[Action]rule{
	ActionSendToLab:          {from: []models.UnitStatus{models.StatusCollected}, to: models.StatusLab},
	ActionPassScreening:      {from: []models.UnitStatus{models.StatusLab}, to: models.StatusProcessing},
	ActionFlagQuarantine:     {from: []models.UnitStatus{models.StatusCollected, models.StatusLab, models.StatusProcessing, models.StatusReadyToUse}, to: models.StatusQuarantine},
	ActionQuarantineRelease:  {from: []models.UnitStatus{models.StatusQuarantine}, to: models.StatusReadyToUse},
	ActionQuarantineDiscard:  {from: []models.UnitStatus{models.StatusQuarantine}, to: models.StatusDiscarded},
	ActionCompleteProcessing: {from: []models.UnitStatus{models.StatusProcessing}, to: models.StatusReadyToUse},
	ActionQCHold:             {from: []models.UnitStatus{models.StatusReadyToUse}, to: models.StatusHold},
	ActionQCRelease:          {from: []models.UnitStatus{models.StatusHold}, to: models.StatusReadyToUse},
	ActionReserve:            {from: []models.UnitStatus{models.StatusReadyToUse}, to: models.StatusReserved},
	ActionRelease:            {from: []models.UnitStatus{models.StatusReserved}, to: models.StatusReadyToUse},
	ActionShip:               {from: []models.UnitStatus{models.StatusReserved}, to: models.StatusIssued},
	ActionReturn:             {from: []models.UnitStatus{models.StatusIssued}, to: models.StatusReturned},
	ActionReturnAccept:       {from: []models.UnitStatus{models.StatusReturned}, to: models.StatusReadyToUse},
	ActionReturnReject:       {from: []models.UnitStatus{models.StatusReturned}, to: models.StatusDiscarded},
	ActionDiscard:            {from: []models.UnitStatus{models.StatusReadyToUse, models.StatusHold}, to: models.StatusDiscarded},
}

// Next returns the status an item ends up in when action is applied from
// current. ErrIllegalTransition is returned when the table does not allow it.
func Next(current models.UnitStatus, action Action) (models.UnitStatus, error) {
	r, ok := table[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrIllegalTransition, action)
	}
	for _, f := range r.from {
		if f == current {
			return r.to, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s from status %q", ErrIllegalTransition, action, current)
}

// From lists the statuses an action may legally start from. Repositories use
// this set as the guard of conditional single-statement updates.
func From(action Action) []models.UnitStatus {
	r, ok := table[action]
	if !ok {
		return nil
	}
	out := make([]models.UnitStatus, len(r.from))
	copy(out, r.from)
	return out
}

// Target returns the destination status of an action.
func Target(action Action) (models.UnitStatus, bool) {
	r, ok := table[action]
	return r.to, ok
}

// IsTerminal reports whether no action leads out of the status. Discarded is
// absorbing; issued items can still come back as returns.
func IsTerminal(status models.UnitStatus) bool {
	for _, r := range table {
		for _, f := range r.from {
			if f == status {
				return false
			}
		}
	}
	return true
}
