package domain

import "time"

type ContainerKind string

const (
	ContainerReadingRoom ContainerKind = "reading_room"
	ContainerHostel      ContainerKind = "hostel"
)

// Container is the room or hostel that owns resources and their booking rules.
type Container struct {
	ID                    int64         `json:"id" gorm:"primaryKey"`
	Name                  string        `json:"name" gorm:"type:varchar(255);not null"`
	Kind                  ContainerKind `json:"kind" gorm:"type:varchar(32);not null"`
	MaxAdvanceBookingDays int           `json:"max_advance_booking_days" gorm:"not null;default:0"`
	LockerFee             float64       `json:"locker_fee" gorm:"not null;default:0"`
	SecurityDeposit       float64       `json:"security_deposit" gorm:"not null;default:0"`
	AdvancePolicy         AdvancePolicy `json:"advance_policy" gorm:"embedded;embeddedPrefix:advance_"`
	IsActive              bool          `json:"is_active" gorm:"not null"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

func (Container) TableName() string { return "containers" }

type AdjustmentType string

const (
	AdjustmentFlat     AdjustmentType = "flat"
	AdjustmentOverride AdjustmentType = "override"
)

// Category adjusts the monthly price of the resources that reference it.
type Category struct {
	ID             int64          `json:"id" gorm:"primaryKey"`
	ContainerID    int64          `json:"container_id" gorm:"not null;index"`
	Name           string         `json:"name" gorm:"type:varchar(128);not null"`
	AdjustmentType AdjustmentType `json:"adjustment_type" gorm:"type:varchar(16);not null"`
	Amount         float64        `json:"amount" gorm:"not null;default:0"`
}

func (Category) TableName() string { return "categories" }

// Slot is a sub-day window with its own monthly price.
type Slot struct {
	ID         int64   `json:"id" gorm:"primaryKey"`
	ResourceID int64   `json:"resource_id" gorm:"not null;index"`
	Name       string  `json:"name" gorm:"type:varchar(64);not null"`
	StartTime  string  `json:"start_time" gorm:"type:varchar(5);not null"`
	EndTime    string  `json:"end_time" gorm:"type:varchar(5);not null"`
	Price      float64 `json:"price" gorm:"not null"`
}

func (Slot) TableName() string { return "slots" }

type ResourceKind string

const (
	ResourceSeat ResourceKind = "seat"
	ResourceBed  ResourceKind = "bed"
)

// Resource is one physical seat or bed. Rows are deactivated, never deleted.
type Resource struct {
	ID          int64        `json:"id" gorm:"primaryKey"`
	ContainerID int64        `json:"container_id" gorm:"not null;index"`
	Kind        ResourceKind `json:"kind" gorm:"type:varchar(16);not null"`
	Label       string       `json:"label" gorm:"type:varchar(64);not null"`
	BasePrice   float64      `json:"base_price" gorm:"not null"`
	CategoryID  *int64       `json:"category_id,omitempty" gorm:"index"`
	IsBlocked   bool         `json:"is_blocked" gorm:"not null;default:false"`
	BlockReason string       `json:"block_reason,omitempty" gorm:"type:text"`
	IsActive    bool         `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Slots    []Slot    `json:"slots,omitempty" gorm:"foreignKey:ResourceID"`
}

func (Resource) TableName() string { return "resources" }

// FindSlot returns the slot with the given id, or nil.
func (r *Resource) FindSlot(id int64) *Slot {
	for i := range r.Slots {
		if r.Slots[i].ID == id {
			return &r.Slots[i]
		}
	}
	return nil
}

func (r *Resource) FindSlotByName(name string) *Slot {
	for i := range r.Slots {
		if r.Slots[i].Name == name {
			return &r.Slots[i]
		}
	}
	return nil
}
