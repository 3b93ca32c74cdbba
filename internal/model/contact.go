package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ContactStatus represents the qualification lifecycle state of a contact.
type ContactStatus string

const (
	ContactStatusPending   ContactStatus = "pending"
	ContactStatusCalled    ContactStatus = "called"
	ContactStatusQualified ContactStatus = "qualified"
	// ContactStatusExcluded marks rows rejected at import time. The engine
	// never inserts them; the value exists for external importers.
	ContactStatusExcluded ContactStatus = "excluded"
)

// String returns the string representation of the status
func (s ContactStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusPending, ContactStatusCalled, ContactStatusQualified, ContactStatusExcluded:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the contact can transition to the given status.
// The lifecycle is strictly pending -> called -> qualified.
func (s ContactStatus) CanTransitionTo(next ContactStatus) bool {
	switch s {
	case ContactStatusPending:
		return next == ContactStatusCalled
	case ContactStatusCalled:
		return next == ContactStatusQualified
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for ContactStatus
func (s *ContactStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ContactStatus(v)
	case []byte:
		*s = ContactStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ContactStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ContactStatus
func (s ContactStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ContactStatus: %s", s)
	}
	return string(s), nil
}

// Contact represents a campaign contact in the PostgreSQL database.
// CampaignID is immutable after creation. CustomFields holds the open
// key/value map; standard field keys never appear inside it.
type Contact struct {
	ID           string            `json:"id" gorm:"primaryKey;type:text"`
	CampaignID   string            `json:"campaign_id" gorm:"column:campaign_id;type:text;index:idx_contacts_campaign_status" validate:"required"`
	FirstName    string            `json:"first_name,omitempty" gorm:"column:first_name;type:text"`
	LastName     string            `json:"last_name,omitempty" gorm:"column:last_name;type:text"`
	PhoneNumber  string            `json:"phone_number" gorm:"column:phone_number;type:text" validate:"required"`
	PostalCode   string            `json:"postal_code,omitempty" gorm:"column:postal_code;type:text"`
	Status       ContactStatus     `json:"status,omitempty" gorm:"type:text;default:pending;index:idx_contacts_campaign_status"`
	CustomFields datatypes.JSONMap `json:"custom_fields,omitempty" gorm:"type:jsonb;column:custom_fields"`
	CreatedAt    time.Time         `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt    time.Time         `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Contact model.
func (Contact) TableName() string {
	return "contacts"
}
