package storage

import (
	"context"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
)

// CampaignRepo defines campaign storage operations
type CampaignRepo interface {
	Save(ctx context.Context, campaign model.Campaign, existingID string) (*model.Campaign, error)
	FindByID(ctx context.Context, id string) (*model.Campaign, error)
	AssignedAgentIDs(ctx context.Context, campaignID string) ([]string, error)
	Close(ctx context.Context) error
}

// ContactRepo defines contact storage operations
type ContactRepo interface {
	LeaseNextPending(ctx context.Context, campaignID string) (*model.Contact, *model.Campaign, error)
	BulkInsert(ctx context.Context, contacts []model.Contact) ([]model.Contact, error)
	FindByCampaignID(ctx context.Context, campaignID string) ([]model.Contact, error)
	FindByID(ctx context.Context, id string) (*model.Contact, error)
	UpdateFields(ctx context.Context, id string, columns map[string]interface{}, customFields map[string]interface{}) error
	Close(ctx context.Context) error
}

// AgentRepo defines agent storage operations
type AgentRepo interface {
	FindByID(ctx context.Context, id string) (*model.Agent, error)
	Create(ctx context.Context, agent model.Agent) error
	Close(ctx context.Context) error
}

// CallHistoryRepo defines qualification and call-history storage operations
type CallHistoryRepo interface {
	Qualify(ctx context.Context, contactID, qualificationID, campaignID, agentID string) (*model.CallHistory, error)
	FindByContactID(ctx context.Context, contactID string) ([]model.CallHistory, error)
	Close(ctx context.Context) error
}
