package models

import (
	"time"

	"github.com/google/uuid"
)

// UserContext is the session identity injected by the auth middleware.
type UserContext struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
	UserType string `json:"user_type,omitempty"`
	OrgID    string `json:"org_id,omitempty"`
}

// BloodUnit is one whole-blood collection.
type BloodUnit struct {
	ID                  uuid.UUID   `json:"id"`
	UnitID              string      `json:"unit_id"`
	DonorID             *uuid.UUID  `json:"donor_id,omitempty"`
	DonationID          *uuid.UUID  `json:"donation_id,omitempty"`
	BagBarcode          string      `json:"bag_barcode,omitempty"`
	BloodGroup          BloodGroup  `json:"blood_group,omitempty"`
	ConfirmedBloodGroup BloodGroup  `json:"confirmed_blood_group,omitempty"`
	Status              UnitStatus  `json:"status"`
	StorageLocationID   *uuid.UUID  `json:"storage_location_id,omitempty"`
	StorageCode         string      `json:"storage_location,omitempty"`
	CollectionDate      time.Time   `json:"collection_date"`
	ExpiryDate          *time.Time  `json:"expiry_date,omitempty"`
	VolumeML            float64     `json:"volume"`
	Reservation         Reservation `json:"reservation"`
	CreatedBy           string      `json:"created_by,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// EffectiveBloodGroup prefers the lab-confirmed group over the declared one.
func (u BloodUnit) EffectiveBloodGroup() BloodGroup {
	if u.ConfirmedBloodGroup != "" {
		return u.ConfirmedBloodGroup
	}
	return u.BloodGroup
}

// Component is a blood product derived from a unit.
type Component struct {
	ID                uuid.UUID     `json:"id"`
	ComponentID       string        `json:"component_id"`
	ParentUnitID      uuid.UUID     `json:"parent_unit_id"`
	BatchID           string        `json:"batch_id,omitempty"`
	ComponentType     ComponentType `json:"component_type"`
	BloodGroup        BloodGroup    `json:"blood_group,omitempty"`
	Status            UnitStatus    `json:"status"`
	StorageLocationID *uuid.UUID    `json:"storage_location_id,omitempty"`
	StorageCode       string        `json:"storage_location,omitempty"`
	ExpiryDate        *time.Time    `json:"expiry_date,omitempty"`
	VolumeML          float64       `json:"volume"`
	Reservation       Reservation   `json:"reservation"`
	ProcessedBy       string        `json:"processed_by,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Reservation fields live on the item itself; all of them are set while the
// item is reserved and all of them are cleared on release.
type Reservation struct {
	ReservedFor string     `json:"reserved_for,omitempty"`
	Until       *time.Time `json:"reserved_until,omitempty"`
	RequestID   string     `json:"reserved_request_id,omitempty"`
	ReservedBy  string     `json:"reserved_by,omitempty"`
	ReservedAt  *time.Time `json:"reserved_at,omitempty"`
	Notes       string     `json:"reservation_notes,omitempty"`
}

func (r Reservation) Empty() bool {
	return r.ReservedFor == "" && r.Until == nil && r.ReservedBy == ""
}

// StorageLocation is a physical storage slot category. CurrentOccupancy is a
// counter maintained by the move path, not derived by query.
type StorageLocation struct {
	ID               uuid.UUID   `json:"id"`
	LocationCode     string      `json:"location_code"`
	StorageName      string      `json:"storage_name"`
	StorageType      StorageType `json:"storage_type"`
	TemperatureRange string      `json:"temperature_range,omitempty"`
	TempMin          *float64    `json:"temp_min,omitempty"`
	TempMax          *float64    `json:"temp_max,omitempty"`
	Capacity         int         `json:"capacity"`
	CurrentOccupancy int         `json:"current_occupancy"`
	Facility         string      `json:"facility,omitempty"`
	IsActive         bool        `json:"is_active"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (s StorageLocation) AvailableCapacity() int {
	return s.Capacity - s.CurrentOccupancy
}

// CustodyEvent is one append-only chain-of-custody record.
type CustodyEvent struct {
	ID           uuid.UUID `json:"id"`
	ItemID       uuid.UUID `json:"unit_id"`
	ItemType     ItemType  `json:"item_type"`
	Stage        string    `json:"stage"`
	FromLocation string    `json:"from_location"`
	ToLocation   string    `json:"to_location"`
	Reason       string    `json:"reason,omitempty"`
	GiverID      string    `json:"giver_id"`
	ReceiverID   string    `json:"receiver_id"`
	Timestamp    time.Time `json:"timestamp"`
	Confirmed    bool      `json:"confirmed"`
	Notes        string    `json:"notes,omitempty"`
}

// InventoryItem is the typed variant over units and components so callers do
// not branch on raw strings and dual id fields.
type InventoryItem struct {
	Type      ItemType   `json:"item_type"`
	Unit      *BloodUnit `json:"unit,omitempty"`
	Component *Component `json:"component,omitempty"`
}

func (i InventoryItem) ID() uuid.UUID {
	if i.Type == ItemTypeUnit {
		return i.Unit.ID
	}
	return i.Component.ID
}

func (i InventoryItem) DisplayID() string {
	if i.Type == ItemTypeUnit {
		return i.Unit.UnitID
	}
	return i.Component.ComponentID
}

func (i InventoryItem) Status() UnitStatus {
	if i.Type == ItemTypeUnit {
		return i.Unit.Status
	}
	return i.Component.Status
}

func (i InventoryItem) BloodGroup() BloodGroup {
	if i.Type == ItemTypeUnit {
		return i.Unit.EffectiveBloodGroup()
	}
	return i.Component.BloodGroup
}

func (i InventoryItem) ComponentType() ComponentType {
	if i.Type == ItemTypeUnit {
		return ComponentWholeBlood
	}
	return i.Component.ComponentType
}

func (i InventoryItem) ExpiryDate() *time.Time {
	if i.Type == ItemTypeUnit {
		return i.Unit.ExpiryDate
	}
	return i.Component.ExpiryDate
}

func (i InventoryItem) StorageLocationID() *uuid.UUID {
	if i.Type == ItemTypeUnit {
		return i.Unit.StorageLocationID
	}
	return i.Component.StorageLocationID
}

func (i InventoryItem) StorageCode() string {
	if i.Type == ItemTypeUnit {
		return i.Unit.StorageCode
	}
	return i.Component.StorageCode
}

func (i InventoryItem) VolumeML() float64 {
	if i.Type == ItemTypeUnit {
		return i.Unit.VolumeML
	}
	return i.Component.VolumeML
}

func (i InventoryItem) Reservation() Reservation {
	if i.Type == ItemTypeUnit {
		return i.Unit.Reservation
	}
	return i.Component.Reservation
}

// QuarantineRecord tracks an item pulled from circulation pending disposition.
type QuarantineRecord struct {
	ID              uuid.UUID       `json:"id"`
	ItemID          uuid.UUID       `json:"unit_component_id"`
	ItemType        ItemType        `json:"unit_type"`
	SourceResult    ScreeningResult `json:"source_result,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	RetestResult    ScreeningResult `json:"retest_result,omitempty"`
	Disposition     string          `json:"disposition,omitempty"`
	QuarantinedDate time.Time       `json:"quarantined_date"`
	ResolvedDate    *time.Time      `json:"resolved_date,omitempty"`
	ResolvedBy      string          `json:"resolved_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ReturnRecord tracks a component coming back from a hospital.
type ReturnRecord struct {
	ID                  uuid.UUID `json:"id"`
	ReturnID            string    `json:"return_id"`
	ComponentID         uuid.UUID `json:"component_id"`
	ReturnDate          time.Time `json:"return_date"`
	Source              string    `json:"source"`
	Reason              string    `json:"reason"`
	HospitalName        string    `json:"hospital_name,omitempty"`
	ContactPerson       string    `json:"contact_person,omitempty"`
	TransportConditions string    `json:"transport_conditions,omitempty"`
	QCPass              *bool     `json:"qc_pass,omitempty"`
	Decision            string    `json:"decision,omitempty"`
	QCNotes             string    `json:"qc_notes,omitempty"`
	ProcessedBy         string    `json:"processed_by,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type DiscardRecord struct {
	ID              uuid.UUID     `json:"id"`
	DiscardID       string        `json:"discard_id"`
	ComponentID     uuid.UUID     `json:"component_id"`
	Reason          DiscardReason `json:"reason"`
	ReasonDetails   string        `json:"reason_details,omitempty"`
	DiscardDate     time.Time     `json:"discard_date"`
	DestructionDate *time.Time    `json:"destruction_date,omitempty"`
	ApprovedBy      string        `json:"approved_by,omitempty"`
	ProcessedBy     string        `json:"processed_by,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// BloodRequest progresses pending -> approved -> fulfilled/rejected.
type BloodRequest struct {
	ID               uuid.UUID     `json:"id"`
	RequestID        string        `json:"request_id"`
	RequestType      RequestType   `json:"request_type"`
	RequesterName    string        `json:"requester_name"`
	RequesterContact string        `json:"requester_contact"`
	HospitalName     string        `json:"hospital_name,omitempty"`
	PatientName      string        `json:"patient_name,omitempty"`
	PatientID        string        `json:"patient_id,omitempty"`
	BloodGroup       BloodGroup    `json:"blood_group"`
	ProductType      ComponentType `json:"product_type"`
	Quantity         int           `json:"quantity"`
	Urgency          string        `json:"urgency"`
	Status           RequestStatus `json:"status"`
	RequestedDate    time.Time     `json:"requested_date"`
	RequiredByDate   *time.Time    `json:"required_by_date,omitempty"`
	ApprovedBy       string        `json:"approved_by,omitempty"`
	ApprovalDate     *time.Time    `json:"approval_date,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Issuance binds components to an approved request and progresses
// picking -> packing -> shipped -> delivered.
type Issuance struct {
	ID            uuid.UUID   `json:"id"`
	IssueID       string      `json:"issue_id"`
	RequestID     uuid.UUID   `json:"request_id"`
	ComponentIDs  []uuid.UUID `json:"component_ids"`
	Status        string      `json:"status"`
	PickTimestamp *time.Time  `json:"pick_timestamp,omitempty"`
	PackTimestamp *time.Time  `json:"pack_timestamp,omitempty"`
	ShipTimestamp *time.Time  `json:"ship_timestamp,omitempty"`
	ReceivedBy    string      `json:"received_by,omitempty"`
	IssuedBy      string      `json:"issued_by,omitempty"`
	ShipmentID    *uuid.UUID  `json:"shipment_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

type TrackingUpdate struct {
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location"`
	Status    string    `json:"status"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

type TemperatureReading struct {
	Timestamp  time.Time `json:"timestamp"`
	Celsius    float64   `json:"celsius"`
	RecordedBy string    `json:"recorded_by,omitempty"`
}

// Shipment carries one issuance to its destination.
type Shipment struct {
	ID                  uuid.UUID            `json:"id"`
	ShipmentID          string               `json:"shipment_id"`
	TrackingNumber      string               `json:"tracking_number"`
	IssuanceID          uuid.UUID            `json:"issuance_id"`
	Destination         string               `json:"destination"`
	DestinationAddress  string               `json:"destination_address"`
	ContactPerson       string               `json:"contact_person"`
	ContactPhone        string               `json:"contact_phone"`
	TransportMethod     string               `json:"transport_method"`
	VehicleID           string               `json:"vehicle_id,omitempty"`
	DriverName          string               `json:"driver_name,omitempty"`
	DriverPhone         string               `json:"driver_phone,omitempty"`
	CourierCompany      string               `json:"courier_company,omitempty"`
	CourierContact      string               `json:"courier_contact,omitempty"`
	CourierTrackingNo   string               `json:"courier_tracking_number,omitempty"`
	SpecialInstructions string               `json:"special_instructions,omitempty"`
	EstimatedArrival    *time.Time           `json:"estimated_arrival,omitempty"`
	Status              string               `json:"status"`
	CurrentLocation     string               `json:"current_location"`
	TrackingUpdates     []TrackingUpdate     `json:"tracking_updates"`
	TemperatureLog      []TemperatureReading `json:"temperature_log"`
	CreatedBy           string               `json:"created_by,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
}

type Donor struct {
	ID               uuid.UUID   `json:"id"`
	DonorID          string      `json:"donor_id"`
	FullName         string      `json:"full_name"`
	DateOfBirth      time.Time   `json:"date_of_birth"`
	Gender           string      `json:"gender"`
	BloodGroup       BloodGroup  `json:"blood_group,omitempty"`
	Phone            string      `json:"phone"`
	Email            string      `json:"email,omitempty"`
	Address          string      `json:"address,omitempty"`
	Status           DonorStatus `json:"status"`
	DeferralEndDate  *time.Time  `json:"deferral_end_date,omitempty"`
	DeferralReason   string      `json:"deferral_reason,omitempty"`
	ConsentGiven     bool        `json:"consent_given"`
	TotalDonations   int         `json:"total_donations"`
	LastDonationDate *time.Time  `json:"last_donation_date,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type Donation struct {
	ID                uuid.UUID  `json:"id"`
	DonationID        string     `json:"donation_id"`
	DonorID           uuid.UUID  `json:"donor_id"`
	UnitID            *uuid.UUID `json:"unit_id,omitempty"`
	DonationType      string     `json:"donation_type"`
	CollectionDate    time.Time  `json:"collection_date"`
	VolumeCollectedML float64    `json:"volume_collected"`
	Phlebotomist      string     `json:"phlebotomist,omitempty"`
	BagBarcode        string     `json:"bag_barcode,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type LabTest struct {
	ID                  uuid.UUID       `json:"id"`
	UnitID              uuid.UUID       `json:"unit_id"`
	ConfirmedBloodGroup BloodGroup      `json:"confirmed_blood_group,omitempty"`
	VerifiedBy1         string          `json:"verified_by_1,omitempty"`
	VerifiedBy2         string          `json:"verified_by_2,omitempty"`
	HIVResult           ScreeningResult `json:"hiv_result,omitempty"`
	HBsAgResult         ScreeningResult `json:"hbsag_result,omitempty"`
	HCVResult           ScreeningResult `json:"hcv_result,omitempty"`
	SyphilisResult      ScreeningResult `json:"syphilis_result,omitempty"`
	TestMethod          string          `json:"test_method"`
	OverallResult       string          `json:"overall_result,omitempty"`
	TestedBy            string          `json:"tested_by,omitempty"`
	TestDate            time.Time       `json:"test_date"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Event is the envelope published to the event bus.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
