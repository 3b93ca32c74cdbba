package model

import (
	"time"
)

// Agent represents a call-center user able to work campaign contacts.
// The engine only reads agents; account management lives upstream.
type Agent struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	LoginID   string    `json:"login_id" gorm:"column:login_id;type:text" validate:"required"`
	FirstName string    `json:"first_name,omitempty" gorm:"column:first_name;type:text"`
	LastName  string    `json:"last_name,omitempty" gorm:"column:last_name;type:text"`
	IsActive  bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Agent model.
func (Agent) TableName() string {
	return "users"
}
