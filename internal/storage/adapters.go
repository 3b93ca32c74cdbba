package storage

import (
	"context"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
)

// CampaignRepoAdapter adapts the PostgresRepo to the CampaignRepo interface
type CampaignRepoAdapter struct {
	postgres *PostgresRepo
}

// NewCampaignRepoAdapter creates a new campaign repository adapter
func NewCampaignRepoAdapter(postgres *PostgresRepo) CampaignRepo {
	return &CampaignRepoAdapter{postgres: postgres}
}

// Save upserts a campaign and resynchronizes its assignment set
func (a *CampaignRepoAdapter) Save(ctx context.Context, campaign model.Campaign, existingID string) (*model.Campaign, error) {
	return a.postgres.SaveCampaign(ctx, campaign, existingID)
}

// FindByID finds a campaign by ID
func (a *CampaignRepoAdapter) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	return a.postgres.FindCampaignByID(ctx, id)
}

// AssignedAgentIDs lists the campaign's assigned agents
func (a *CampaignRepoAdapter) AssignedAgentIDs(ctx context.Context, campaignID string) ([]string, error) {
	return a.postgres.AssignedAgentIDs(ctx, campaignID)
}

func (a *CampaignRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// ContactRepoAdapter adapts the PostgresRepo to the ContactRepo interface
type ContactRepoAdapter struct {
	postgres *PostgresRepo
}

// NewContactRepoAdapter creates a new contact repository adapter
func NewContactRepoAdapter(postgres *PostgresRepo) ContactRepo {
	return &ContactRepoAdapter{postgres: postgres}
}

// LeaseNextPending claims one pending contact of the campaign
func (a *ContactRepoAdapter) LeaseNextPending(ctx context.Context, campaignID string) (*model.Contact, *model.Campaign, error) {
	return a.postgres.LeaseNextContact(ctx, campaignID)
}

// BulkInsert inserts staged contacts in one transaction
func (a *ContactRepoAdapter) BulkInsert(ctx context.Context, contacts []model.Contact) ([]model.Contact, error) {
	return a.postgres.BulkInsertContacts(ctx, contacts)
}

// FindByCampaignID lists the campaign's stored contacts
func (a *ContactRepoAdapter) FindByCampaignID(ctx context.Context, campaignID string) ([]model.Contact, error) {
	return a.postgres.FindContactsByCampaignID(ctx, campaignID)
}

// FindByID finds a contact by ID
func (a *ContactRepoAdapter) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	return a.postgres.FindContactByID(ctx, id)
}

// UpdateFields updates only the supplied contact fields
func (a *ContactRepoAdapter) UpdateFields(ctx context.Context, id string, columns map[string]interface{}, customFields map[string]interface{}) error {
	return a.postgres.UpdateContactFields(ctx, id, columns, customFields)
}

func (a *ContactRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// AgentRepoAdapter adapts the PostgresRepo to the AgentRepo interface
type AgentRepoAdapter struct {
	postgres *PostgresRepo
}

// NewAgentRepoAdapter creates a new agent repository adapter
func NewAgentRepoAdapter(postgres *PostgresRepo) AgentRepo {
	return &AgentRepoAdapter{postgres: postgres}
}

// FindByID finds an agent by ID
func (a *AgentRepoAdapter) FindByID(ctx context.Context, id string) (*model.Agent, error) {
	return a.postgres.FindAgentByID(ctx, id)
}

// Create inserts an agent row
func (a *AgentRepoAdapter) Create(ctx context.Context, agent model.Agent) error {
	return a.postgres.CreateAgent(ctx, agent)
}

func (a *AgentRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// CallHistoryRepoAdapter adapts the PostgresRepo to the CallHistoryRepo interface
type CallHistoryRepoAdapter struct {
	postgres *PostgresRepo
}

// NewCallHistoryRepoAdapter creates a new call-history repository adapter
func NewCallHistoryRepoAdapter(postgres *PostgresRepo) CallHistoryRepo {
	return &CallHistoryRepoAdapter{postgres: postgres}
}

// Qualify records a qualification event atomically
func (a *CallHistoryRepoAdapter) Qualify(ctx context.Context, contactID, qualificationID, campaignID, agentID string) (*model.CallHistory, error) {
	return a.postgres.QualifyContact(ctx, contactID, qualificationID, campaignID, agentID)
}

// FindByContactID lists history records referencing a contact
func (a *CallHistoryRepoAdapter) FindByContactID(ctx context.Context, contactID string) ([]model.CallHistory, error) {
	return a.postgres.FindCallHistoryByContactID(ctx, contactID)
}

func (a *CallHistoryRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}
