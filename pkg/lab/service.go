package lab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/lifecycle"
	"github.com/hemolink/platform/pkg/quarantine"
)

const (
	ResultPassed = "passed"
	ResultFailed = "failed"

	defaultTestMethod = "ELISA"
)

var (
	ErrInvalidResult        = errors.New("screening result must be non_reactive, gray or reactive")
	ErrVerificationRequired = errors.New("confirmed blood group needs two verifiers")
)

// Records is the persistence port; *Repository satisfies it.
type Records interface {
	Create(ctx context.Context, test models.LabTest) (models.LabTest, error)
	Get(ctx context.Context, id uuid.UUID) (models.LabTest, error)
	ListForUnit(ctx context.Context, unitID uuid.UUID) ([]models.LabTest, error)
	List(ctx context.Context, overallResult string) ([]models.LabTest, error)
}

// Inventory is the unit-transition slice of the inventory store.
type Inventory interface {
	GetItem(ctx context.Context, itemType models.ItemType, ref string) (models.InventoryItem, error)
	ApplyTransition(ctx context.Context, itemType models.ItemType, ref string, action lifecycle.Action, extra map[string]interface{}) (models.InventoryItem, error)
}

// Quarantiner opens a quarantine record for reactive units;
// *quarantine.Service satisfies it.
type Quarantiner interface {
	Flag(ctx context.Context, user models.UserContext, req quarantine.FlagRequest) (models.QuarantineRecord, error)
}

type Service struct {
	records    Records
	inventory  Inventory
	quarantine Quarantiner
}

func NewService(records Records, inventory Inventory, quarantiner Quarantiner) *Service {
	return &Service{records: records, inventory: inventory, quarantine: quarantiner}
}

type RecordTestRequest struct {
	UnitRef             string                 `json:"unit_id"`
	ConfirmedBloodGroup models.BloodGroup      `json:"confirmed_blood_group"`
	VerifiedBy1         string                 `json:"verified_by_1"`
	VerifiedBy2         string                 `json:"verified_by_2"`
	HIVResult           models.ScreeningResult `json:"hiv_result"`
	HBsAgResult         models.ScreeningResult `json:"hbsag_result"`
	HCVResult           models.ScreeningResult `json:"hcv_result"`
	SyphilisResult      models.ScreeningResult `json:"syphilis_result"`
	TestMethod          string                 `json:"test_method,omitempty"`
}

func validResult(r models.ScreeningResult) bool {
	switch r {
	case models.ScreeningNonReactive, models.ScreeningGray, models.ScreeningReactive:
		return true
	}
	return false
}

// RecordTest stores a screening panel for a unit and drives the unit's
// lifecycle. A clean panel sends the unit to processing with its confirmed
// blood group written back; anything reactive or gray quarantines it.
func (s *Service) RecordTest(ctx context.Context, user models.UserContext, req RecordTestRequest) (models.LabTest, error) {
	markers := map[string]models.ScreeningResult{
		"HIV":      req.HIVResult,
		"HBsAg":    req.HBsAgResult,
		"HCV":      req.HCVResult,
		"Syphilis": req.SyphilisResult,
	}
	for _, result := range markers {
		if !validResult(result) {
			return models.LabTest{}, ErrInvalidResult
		}
	}
	if req.ConfirmedBloodGroup != "" && (req.VerifiedBy1 == "" || req.VerifiedBy2 == "") {
		return models.LabTest{}, ErrVerificationRequired
	}

	unit, err := s.inventory.GetItem(ctx, models.ItemTypeUnit, req.UnitRef)
	if err != nil {
		return models.LabTest{}, err
	}
	// A unit tested straight off the collection bench is checked in first.
	if unit.Status() == models.StatusCollected {
		if unit, err = s.inventory.ApplyTransition(ctx, models.ItemTypeUnit, req.UnitRef, lifecycle.ActionSendToLab, nil); err != nil {
			return models.LabTest{}, err
		}
	}

	var flagged []string
	worst := models.ScreeningNonReactive
	for marker, result := range markers {
		if result == models.ScreeningNonReactive {
			continue
		}
		flagged = append(flagged, marker)
		if result == models.ScreeningReactive || worst != models.ScreeningReactive {
			worst = result
		}
	}

	overall := ResultPassed
	if len(flagged) > 0 {
		overall = ResultFailed
		if _, err := s.quarantine.Flag(ctx, user, quarantine.FlagRequest{
			ItemRef:      unit.ID().String(),
			ItemType:     models.ItemTypeUnit,
			SourceResult: worst,
			Reason:       fmt.Sprintf("Screening flagged: %s", strings.Join(flagged, ", ")),
		}); err != nil {
			return models.LabTest{}, err
		}
	} else {
		extra := map[string]interface{}{}
		if req.ConfirmedBloodGroup != "" {
			extra["confirmed_blood_group"] = string(req.ConfirmedBloodGroup)
		}
		if _, err := s.inventory.ApplyTransition(ctx, models.ItemTypeUnit, unit.ID().String(), lifecycle.ActionPassScreening, extra); err != nil {
			return models.LabTest{}, err
		}
	}

	method := req.TestMethod
	if method == "" {
		method = defaultTestMethod
	}
	return s.records.Create(ctx, models.LabTest{
		UnitID:              unit.ID(),
		ConfirmedBloodGroup: req.ConfirmedBloodGroup,
		VerifiedBy1:         req.VerifiedBy1,
		VerifiedBy2:         req.VerifiedBy2,
		HIVResult:           req.HIVResult,
		HBsAgResult:         req.HBsAgResult,
		HCVResult:           req.HCVResult,
		SyphilisResult:      req.SyphilisResult,
		TestMethod:          method,
		OverallResult:       overall,
		TestedBy:            user.ID,
		TestDate:            time.Now().UTC(),
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.LabTest, error) {
	return s.records.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, overallResult string) ([]models.LabTest, error) {
	return s.records.List(ctx, overallResult)
}

// ListForUnit returns a unit's screening history, newest first.
func (s *Service) ListForUnit(ctx context.Context, unitRef string) ([]models.LabTest, error) {
	unit, err := s.inventory.GetItem(ctx, models.ItemTypeUnit, unitRef)
	if err != nil {
		return nil, err
	}
	return s.records.ListForUnit(ctx, unit.ID())
}
