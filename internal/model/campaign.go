package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DialingMode represents how contacts of a campaign are dialed.
type DialingMode string

const (
	DialingModePredictive  DialingMode = "PREDICTIVE"
	DialingModeProgressive DialingMode = "PROGRESSIVE"
	DialingModeManual      DialingMode = "MANUAL"
)

// String returns the string representation of the mode
func (m DialingMode) String() string {
	return string(m)
}

// Valid checks if the dialing mode is valid
func (m DialingMode) Valid() bool {
	switch m {
	case DialingModePredictive, DialingModeProgressive, DialingModeManual:
		return true
	default:
		return false
	}
}

// QuotaRule limits how many contacts matching a field predicate may be qualified.
type QuotaRule struct {
	FieldID  string `json:"field_id"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
	Limit    int    `json:"limit"`
}

// QuotaRules is the structured quota document stored on a campaign.
type QuotaRules struct {
	SchemaVersion int         `json:"schema_version"`
	Enabled       bool        `json:"enabled"`
	Rules         []QuotaRule `json:"rules,omitempty"`
}

// Value implements the driver.Valuer interface for QuotaRules
func (q QuotaRules) Value() (driver.Value, error) {
	if q.SchemaVersion == 0 {
		q.SchemaVersion = 1
	}
	return json.Marshal(q)
}

// Scan implements the sql.Scanner interface for QuotaRules
func (q *QuotaRules) Scan(value any) error {
	if value == nil {
		*q = QuotaRules{SchemaVersion: 1}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into QuotaRules", value)
	}

	return json.Unmarshal(bytes, q)
}

// FilterClause is one predicate of a campaign filter document.
type FilterClause struct {
	FieldID  string `json:"field_id"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// FilterRules is the structured filter document stored on a campaign.
type FilterRules struct {
	SchemaVersion int            `json:"schema_version"`
	Operator      string         `json:"operator,omitempty"` // AND / OR over clauses
	Clauses       []FilterClause `json:"clauses,omitempty"`
}

// Value implements the driver.Valuer interface for FilterRules
func (f FilterRules) Value() (driver.Value, error) {
	if f.SchemaVersion == 0 {
		f.SchemaVersion = 1
	}
	return json.Marshal(f)
}

// Scan implements the sql.Scanner interface for FilterRules
func (f *FilterRules) Scan(value any) error {
	if value == nil {
		*f = FilterRules{SchemaVersion: 1}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FilterRules", value)
	}

	return json.Unmarshal(bytes, f)
}

// Campaign represents an outbound campaign in the PostgreSQL database.
// AgentIDs mirrors the campaign_agents junction table; it is owned by the
// campaign aggregate and fully replaced on every save.
type Campaign struct {
	ID                   string      `json:"id" gorm:"primaryKey;type:text"`
	Name                 string      `json:"name" gorm:"type:text" validate:"required"`
	Description          string      `json:"description,omitempty" gorm:"type:text"`
	ScriptID             string      `json:"script_id,omitempty" gorm:"column:script_id;type:text"`
	QualificationGroupID string      `json:"qualification_group_id,omitempty" gorm:"column:qualification_group_id;type:text"`
	CallerID             string      `json:"caller_id,omitempty" gorm:"column:caller_id;type:text"`
	IsActive             bool        `json:"is_active" gorm:"column:is_active;default:true"`
	DialingMode          DialingMode `json:"dialing_mode,omitempty" gorm:"column:dialing_mode;type:text;default:PROGRESSIVE"`
	Priority             int         `json:"priority,omitempty" gorm:"default:5"`
	WrapUpTime           int         `json:"wrap_up_time,omitempty" gorm:"column:wrap_up_time;default:5"` // seconds
	QuotaRules           QuotaRules  `json:"quota_rules,omitempty" gorm:"type:jsonb"`
	FilterRules          FilterRules `json:"filter_rules,omitempty" gorm:"type:jsonb"`
	CreatedAt            time.Time   `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt            time.Time   `json:"updated_at,omitempty" gorm:"autoUpdateTime"`

	AgentIDs []string `json:"agent_ids" gorm:"-"`
}

// TableName specifies the table name for the Campaign model.
func (Campaign) TableName() string {
	return "campaigns"
}

// CampaignAgent is one row of the campaign/agent junction table.
type CampaignAgent struct {
	CampaignID string `json:"campaign_id" gorm:"primaryKey;type:text"`
	UserID     string `json:"user_id" gorm:"primaryKey;type:text"`
}

// TableName specifies the table name for the CampaignAgent model.
func (CampaignAgent) TableName() string {
	return "campaign_agents"
}

// CampaignUpdateColumns lists the columns replaced when an existing campaign
// is saved. ID and CreatedAt never change.
func CampaignUpdateColumns() []string {
	return []string{
		"name",
		"description",
		"script_id",
		"qualification_group_id",
		"caller_id",
		"is_active",
		"dialing_mode",
		"priority",
		"wrap_up_time",
		"quota_rules",
		"filter_rules",
		"updated_at",
	}
}
