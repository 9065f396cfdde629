package requests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hemolink/platform/pkg/common/models"
)

var (
	ErrRequestNotFound  = errors.New("blood request not found")
	ErrIssuanceNotFound = errors.New("issuance not found")
	ErrBadRequestState  = errors.New("request is not in the required state")
)

type requestModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestID        string    `gorm:"size:32;uniqueIndex"`
	RequestType      string    `gorm:"size:16;index"`
	RequesterName    string    `gorm:"size:128"`
	RequesterContact string    `gorm:"size:64"`
	HospitalName     string    `gorm:"size:128"`
	PatientName      string    `gorm:"size:128"`
	PatientID        string    `gorm:"size:64"`
	BloodGroup       string    `gorm:"size:8;index"`
	ProductType      string    `gorm:"size:24;index"`
	Quantity         int
	Urgency          string `gorm:"size:16"`
	Status           string `gorm:"size:16;index"`
	RequestedDate    time.Time
	RequiredByDate   *time.Time
	ApprovedBy       string `gorm:"size:64"`
	ApprovalDate     *time.Time
	Notes            string
	CreatedAt        time.Time
}

func (requestModel) TableName() string { return "blood_requests" }

type issuanceModel struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	IssueID       string         `gorm:"size:32;uniqueIndex"`
	RequestID     uuid.UUID      `gorm:"type:uuid;index"`
	ComponentIDs  datatypes.JSON `gorm:"column:component_ids"`
	Status        string         `gorm:"size:16;index"`
	PickTimestamp *time.Time
	PackTimestamp *time.Time
	ShipTimestamp *time.Time
	ReceivedBy    string     `gorm:"size:128"`
	IssuedBy      string     `gorm:"size:64"`
	ShipmentID    *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time
}

func (issuanceModel) TableName() string { return "issuances" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&requestModel{}, &issuanceModel{}); err != nil {
		return nil, fmt.Errorf("migrate request tables: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) nextDisplayID(ctx context.Context, model interface{}, column, prefix string) (string, error) {
	day := time.Now().UTC().Format("20060102")
	var count int64
	err := r.db.WithContext(ctx).Model(model).
		Where(column+" LIKE ?", fmt.Sprintf("%s-%s-%%", prefix, day)).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day, count+1), nil
}

// --- requests ---

func (r *Repository) CreateRequest(ctx context.Context, request models.BloodRequest) (models.BloodRequest, error) {
	now := time.Now().UTC()
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if request.RequestID == "" {
		id, err := r.nextDisplayID(ctx, &requestModel{}, "request_id", "REQ")
		if err != nil {
			return models.BloodRequest{}, err
		}
		request.RequestID = id
	}
	if request.Status == "" {
		request.Status = models.RequestPending
	}
	if request.RequestedDate.IsZero() {
		request.RequestedDate = now
	}
	row := fromRequest(request)
	row.CreatedAt = now
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.BloodRequest{}, err
	}
	return toRequest(row), nil
}

func (r *Repository) GetRequest(ctx context.Context, ref string) (models.BloodRequest, error) {
	q := r.db.WithContext(ctx)
	if id, err := uuid.Parse(ref); err == nil {
		q = q.Where("id = ? OR request_id = ?", id, ref)
	} else {
		q = q.Where("request_id = ?", ref)
	}
	var row requestModel
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.BloodRequest{}, ErrRequestNotFound
	}
	if err != nil {
		return models.BloodRequest{}, err
	}
	return toRequest(row), nil
}

func (r *Repository) ListRequests(ctx context.Context, status models.RequestStatus, requestType models.RequestType) ([]models.BloodRequest, error) {
	q := r.db.WithContext(ctx).Order("requested_date DESC")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if requestType != "" {
		q = q.Where("request_type = ?", string(requestType))
	}
	var rows []requestModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.BloodRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRequest(row))
	}
	return out, nil
}

// TransitionRequest moves a request between statuses with a conditional
// update, so two approvers cannot both win.
func (r *Repository) TransitionRequest(ctx context.Context, id uuid.UUID, from, to models.RequestStatus, extra map[string]interface{}) (models.BloodRequest, error) {
	updates := map[string]interface{}{"status": string(to)}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&requestModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return models.BloodRequest{}, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetRequest(ctx, id.String()); err != nil {
			return models.BloodRequest{}, err
		}
		return models.BloodRequest{}, ErrBadRequestState
	}
	return r.GetRequest(ctx, id.String())
}

func (r *Repository) CountRequestsByStatus(ctx context.Context, status models.RequestStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&requestModel{}).
		Where("status = ?", string(status)).Count(&count).Error
	return count, err
}

// --- issuances ---

func (r *Repository) CreateIssuance(ctx context.Context, issuance models.Issuance) (models.Issuance, error) {
	now := time.Now().UTC()
	if issuance.ID == uuid.Nil {
		issuance.ID = uuid.New()
	}
	if issuance.IssueID == "" {
		id, err := r.nextDisplayID(ctx, &issuanceModel{}, "issue_id", "ISS")
		if err != nil {
			return models.Issuance{}, err
		}
		issuance.IssueID = id
	}
	componentIDs, err := json.Marshal(issuance.ComponentIDs)
	if err != nil {
		return models.Issuance{}, err
	}
	row := issuanceModel{
		ID:            issuance.ID,
		IssueID:       issuance.IssueID,
		RequestID:     issuance.RequestID,
		ComponentIDs:  datatypes.JSON(componentIDs),
		Status:        issuance.Status,
		PickTimestamp: issuance.PickTimestamp,
		IssuedBy:      issuance.IssuedBy,
		CreatedAt:     now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Issuance{}, err
	}
	return toIssuance(row)
}

func (r *Repository) GetIssuance(ctx context.Context, ref string) (models.Issuance, error) {
	q := r.db.WithContext(ctx)
	if id, err := uuid.Parse(ref); err == nil {
		q = q.Where("id = ? OR issue_id = ?", id, ref)
	} else {
		q = q.Where("issue_id = ?", ref)
	}
	var row issuanceModel
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Issuance{}, ErrIssuanceNotFound
	}
	if err != nil {
		return models.Issuance{}, err
	}
	return toIssuance(row)
}

func (r *Repository) ListIssuances(ctx context.Context, status string) ([]models.Issuance, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []issuanceModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Issuance, 0, len(rows))
	for _, row := range rows {
		issuance, err := toIssuance(row)
		if err != nil {
			return nil, err
		}
		out = append(out, issuance)
	}
	return out, nil
}

// TransitionIssuance advances the fulfilment pipeline one step.
func (r *Repository) TransitionIssuance(ctx context.Context, id uuid.UUID, from, to string, extra map[string]interface{}) (models.Issuance, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&issuanceModel{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return models.Issuance{}, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetIssuance(ctx, id.String()); err != nil {
			return models.Issuance{}, err
		}
		return models.Issuance{}, ErrBadRequestState
	}
	return r.GetIssuance(ctx, id.String())
}

func (r *Repository) SetIssuanceShipment(ctx context.Context, id, shipmentID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&issuanceModel{}).
		Where("id = ?", id).
		Update("shipment_id", shipmentID).Error
}

// --- mapping ---

func fromRequest(request models.BloodRequest) requestModel {
	return requestModel{
		ID:               request.ID,
		RequestID:        request.RequestID,
		RequestType:      string(request.RequestType),
		RequesterName:    request.RequesterName,
		RequesterContact: request.RequesterContact,
		HospitalName:     request.HospitalName,
		PatientName:      request.PatientName,
		PatientID:        request.PatientID,
		BloodGroup:       string(request.BloodGroup),
		ProductType:      string(request.ProductType),
		Quantity:         request.Quantity,
		Urgency:          request.Urgency,
		Status:           string(request.Status),
		RequestedDate:    request.RequestedDate,
		RequiredByDate:   request.RequiredByDate,
		ApprovedBy:       request.ApprovedBy,
		ApprovalDate:     request.ApprovalDate,
		Notes:            request.Notes,
	}
}

func toRequest(row requestModel) models.BloodRequest {
	return models.BloodRequest{
		ID:               row.ID,
		RequestID:        row.RequestID,
		RequestType:      models.RequestType(row.RequestType),
		RequesterName:    row.RequesterName,
		RequesterContact: row.RequesterContact,
		HospitalName:     row.HospitalName,
		PatientName:      row.PatientName,
		PatientID:        row.PatientID,
		BloodGroup:       models.BloodGroup(row.BloodGroup),
		ProductType:      models.ComponentType(row.ProductType),
		Quantity:         row.Quantity,
		Urgency:          row.Urgency,
		Status:           models.RequestStatus(row.Status),
		RequestedDate:    row.RequestedDate,
		RequiredByDate:   row.RequiredByDate,
		ApprovedBy:       row.ApprovedBy,
		ApprovalDate:     row.ApprovalDate,
		Notes:            row.Notes,
		CreatedAt:        row.CreatedAt,
	}
}

func toIssuance(row issuanceModel) (models.Issuance, error) {
	var componentIDs []uuid.UUID
	if len(row.ComponentIDs) > 0 {
		if err := json.Unmarshal(row.ComponentIDs, &componentIDs); err != nil {
			return models.Issuance{}, fmt.Errorf("decode component ids for %s: %w", row.IssueID, err)
		}
	}
	return models.Issuance{
		ID:            row.ID,
		IssueID:       row.IssueID,
		RequestID:     row.RequestID,
		ComponentIDs:  componentIDs,
		Status:        row.Status,
		PickTimestamp: row.PickTimestamp,
		PackTimestamp: row.PackTimestamp,
		ShipTimestamp: row.ShipTimestamp,
		ReceivedBy:    row.ReceivedBy,
		IssuedBy:      row.IssuedBy,
		ShipmentID:    row.ShipmentID,
		CreatedAt:     row.CreatedAt,
	}, nil
}
