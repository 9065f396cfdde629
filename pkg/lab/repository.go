package lab

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hemolink/platform/pkg/common/models"
)

var ErrNotFound = errors.New("lab test not found")

type labTestModel struct {
	ID                  uuid.UUID `gorm:"primaryKey;column:id"`
	UnitID              uuid.UUID `gorm:"column:unit_id;index"`
	ConfirmedBloodGroup string    `gorm:"column:confirmed_blood_group"`
	VerifiedBy1         string    `gorm:"column:verified_by_1"`
	VerifiedBy2         string    `gorm:"column:verified_by_2"`
	HIVResult           string    `gorm:"column:hiv_result"`
	HBsAgResult         string    `gorm:"column:hbsag_result"`
	HCVResult           string    `gorm:"column:hcv_result"`
	SyphilisResult      string    `gorm:"column:syphilis_result"`
	TestMethod          string    `gorm:"column:test_method"`
	OverallResult       string    `gorm:"column:overall_result;index"`
	TestedBy            string    `gorm:"column:tested_by"`
	TestDate            time.Time `gorm:"column:test_date"`
	CreatedAt           time.Time `gorm:"column:created_at"`
}

func (labTestModel) TableName() string { return "lab_tests" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&labTestModel{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Create(ctx context.Context, test models.LabTest) (models.LabTest, error) {
	test.ID = uuid.New()
	test.CreatedAt = time.Now().UTC()
	row := fromTest(test)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.LabTest{}, err
	}
	return test, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.LabTest, error) {
	var row labTestModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.LabTest{}, ErrNotFound
		}
		return models.LabTest{}, err
	}
	return toTest(row), nil
}

func (r *Repository) ListForUnit(ctx context.Context, unitID uuid.UUID) ([]models.LabTest, error) {
	var rows []labTestModel
	if err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("test_date DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTests(rows), nil
}

func (r *Repository) List(ctx context.Context, overallResult string) ([]models.LabTest, error) {
	q := r.db.WithContext(ctx).Order("test_date DESC")
	if overallResult != "" {
		q = q.Where("overall_result = ?", overallResult)
	}
	var rows []labTestModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTests(rows), nil
}

func fromTest(t models.LabTest) labTestModel {
	return labTestModel{
		ID:                  t.ID,
		UnitID:              t.UnitID,
		ConfirmedBloodGroup: string(t.ConfirmedBloodGroup),
		VerifiedBy1:         t.VerifiedBy1,
		VerifiedBy2:         t.VerifiedBy2,
		HIVResult:           string(t.HIVResult),
		HBsAgResult:         string(t.HBsAgResult),
		HCVResult:           string(t.HCVResult),
		SyphilisResult:      string(t.SyphilisResult),
		TestMethod:          t.TestMethod,
		OverallResult:       t.OverallResult,
		TestedBy:            t.TestedBy,
		TestDate:            t.TestDate,
		CreatedAt:           t.CreatedAt,
	}
}

func toTest(row labTestModel) models.LabTest {
	return models.LabTest{
		ID:                  row.ID,
		UnitID:              row.UnitID,
		ConfirmedBloodGroup: models.BloodGroup(row.ConfirmedBloodGroup),
		VerifiedBy1:         row.VerifiedBy1,
		VerifiedBy2:         row.VerifiedBy2,
		HIVResult:           models.ScreeningResult(row.HIVResult),
		HBsAgResult:         models.ScreeningResult(row.HBsAgResult),
		HCVResult:           models.ScreeningResult(row.HCVResult),
		SyphilisResult:      models.ScreeningResult(row.SyphilisResult),
		TestMethod:          row.TestMethod,
		OverallResult:       row.OverallResult,
		TestedBy:            row.TestedBy,
		TestDate:            row.TestDate,
		CreatedAt:           row.CreatedAt,
	}
}

func toTests(rows []labTestModel) []models.LabTest {
	tests := make([]models.LabTest, 0, len(rows))
	for _, row := range rows {
		tests = append(tests, toTest(row))
	}
	return tests
}
