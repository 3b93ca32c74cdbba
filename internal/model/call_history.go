package model

import (
	"time"
)

// CallDirection distinguishes inbound from outbound history records.
type CallDirection string

const (
	CallDirectionInbound  CallDirection = "inbound"
	CallDirectionOutbound CallDirection = "outbound"
)

// CallHistory is an immutable call record appended when a contact is
// qualified. Rows are insert-only; the engine never updates or deletes them.
type CallHistory struct {
	ID               string        `json:"id" gorm:"primaryKey;type:text"`
	StartTime        time.Time     `json:"start_time" gorm:"column:start_time"`
	EndTime          time.Time     `json:"end_time" gorm:"column:end_time"`
	Duration         int           `json:"duration"`                                          // seconds
	BillableDuration int           `json:"billable_duration" gorm:"column:billable_duration"` // seconds
	Direction        CallDirection `json:"direction" gorm:"type:text;default:outbound"`
	CallStatus       string        `json:"call_status" gorm:"column:call_status;type:text"`
	Source           string        `json:"source,omitempty" gorm:"type:text"`      // agent login identity
	Destination      string        `json:"destination,omitempty" gorm:"type:text"` // contact phone number
	AgentID          string        `json:"agent_id" gorm:"column:agent_id;type:text;index"`
	ContactID        string        `json:"contact_id" gorm:"column:contact_id;type:text;index"`
	CampaignID       string        `json:"campaign_id" gorm:"column:campaign_id;type:text;index"`
	QualificationID  string        `json:"qualification_id,omitempty" gorm:"column:qualification_id;type:text"`
}

// TableName specifies the table name for the CallHistory model.
func (CallHistory) TableName() string {
	return "call_history"
}
