package models

// UnitStatus covers the shared lifecycle of whole-blood units and derived
// components. Terminal states are issued (until returned) and discarded.
type UnitStatus string

const (
	StatusCollected  UnitStatus = "collected"
	StatusLab        UnitStatus = "lab"
	StatusProcessing UnitStatus = "processing"
	StatusQuarantine UnitStatus = "quarantine"
	StatusHold       UnitStatus = "hold"
	StatusReadyToUse UnitStatus = "ready_to_use"
	StatusReserved   UnitStatus = "reserved"
	StatusIssued     UnitStatus = "issued"
	StatusReturned   UnitStatus = "returned"
	StatusDiscarded  UnitStatus = "discarded"
)

type ItemType string

const (
	ItemTypeUnit      ItemType = "unit"
	ItemTypeComponent ItemType = "component"
)

type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
)

func AllBloodGroups() []BloodGroup {
	return []BloodGroup{
		BloodGroupAPos, BloodGroupANeg,
		BloodGroupBPos, BloodGroupBNeg,
		BloodGroupABPos, BloodGroupABNeg,
		BloodGroupOPos, BloodGroupONeg,
	}
}

type ComponentType string

const (
	ComponentWholeBlood      ComponentType = "whole_blood"
	ComponentPRC             ComponentType = "prc"
	ComponentPlasma          ComponentType = "plasma"
	ComponentFFP             ComponentType = "ffp"
	ComponentPlatelets       ComponentType = "platelets"
	ComponentCryoprecipitate ComponentType = "cryoprecipitate"
)

type ScreeningResult string

const (
	ScreeningNonReactive ScreeningResult = "non_reactive"
	ScreeningGray        ScreeningResult = "gray"
	ScreeningReactive    ScreeningResult = "reactive"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestFulfilled RequestStatus = "fulfilled"
	RequestRejected  RequestStatus = "rejected"
)

type RequestType string

const (
	RequestInternal RequestType = "internal"
	RequestExternal RequestType = "external"
)

type DiscardReason string

const (
	DiscardExpired        DiscardReason = "expired"
	DiscardFailedQC       DiscardReason = "failed_qc"
	DiscardRejectedReturn DiscardReason = "rejected_return"
	DiscardReactive       DiscardReason = "reactive"
	DiscardDamaged        DiscardReason = "damaged"
	DiscardOther          DiscardReason = "other"
)

type StorageType string

const (
	StorageRefrigerator      StorageType = "refrigerator"
	StorageFreezer           StorageType = "freezer"
	StoragePlateletIncubator StorageType = "platelet_incubator"
	StorageQuarantineArea    StorageType = "quarantine_area"
)

type DonorStatus string

const (
	DonorActive            DonorStatus = "active"
	DonorDeferredTemporary DonorStatus = "deferred_temporary"
	DonorDeferredPermanent DonorStatus = "deferred_permanent"
)

// Roles carried by the session user context.
const (
	RoleAdmin        = "admin"
	RoleRegistration = "registration"
	RolePhlebotomist = "phlebotomist"
	RoleLabTech      = "lab_tech"
	RoleProcessing   = "processing"
	RoleQCManager    = "qc_manager"
	RoleInventory    = "inventory"
	RoleDistribution = "distribution"
)
