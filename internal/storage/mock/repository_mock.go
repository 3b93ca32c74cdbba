package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
)

// --- CampaignRepo Mock ---

// CampaignRepoMock mocks the CampaignRepo interface
type CampaignRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *CampaignRepoMock) Save(ctx context.Context, campaign model.Campaign, existingID string) (*model.Campaign, error) {
	args := m.Called(ctx, campaign, existingID)
	var saved *model.Campaign
	if args.Get(0) != nil {
		saved = args.Get(0).(*model.Campaign)
	}
	return saved, args.Error(1)
}

// FindByID mocks the FindByID method
func (m *CampaignRepoMock) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	var campaign *model.Campaign
	if args.Get(0) != nil {
		campaign = args.Get(0).(*model.Campaign)
	}
	return campaign, args.Error(1)
}

// AssignedAgentIDs mocks the AssignedAgentIDs method
func (m *CampaignRepoMock) AssignedAgentIDs(ctx context.Context, campaignID string) ([]string, error) {
	args := m.Called(ctx, campaignID)
	var ids []string
	if args.Get(0) != nil {
		ids = args.Get(0).([]string)
	}
	return ids, args.Error(1)
}

// Close mocks the Close method
func (m *CampaignRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- ContactRepo Mock ---

// ContactRepoMock mocks the ContactRepo interface
type ContactRepoMock struct {
	mock.Mock
}

// LeaseNextPending mocks the LeaseNextPending method
func (m *ContactRepoMock) LeaseNextPending(ctx context.Context, campaignID string) (*model.Contact, *model.Campaign, error) {
	args := m.Called(ctx, campaignID)
	var contact *model.Contact
	if args.Get(0) != nil {
		contact = args.Get(0).(*model.Contact)
	}
	var campaign *model.Campaign
	if args.Get(1) != nil {
		campaign = args.Get(1).(*model.Campaign)
	}
	return contact, campaign, args.Error(2)
}

// BulkInsert mocks the BulkInsert method
func (m *ContactRepoMock) BulkInsert(ctx context.Context, contacts []model.Contact) ([]model.Contact, error) {
	args := m.Called(ctx, contacts)
	var inserted []model.Contact
	if args.Get(0) != nil {
		inserted = args.Get(0).([]model.Contact)
	}
	return inserted, args.Error(1)
}

// FindByCampaignID mocks the FindByCampaignID method
func (m *ContactRepoMock) FindByCampaignID(ctx context.Context, campaignID string) ([]model.Contact, error) {
	args := m.Called(ctx, campaignID)
	var contacts []model.Contact
	if args.Get(0) != nil {
		contacts = args.Get(0).([]model.Contact)
	}
	return contacts, args.Error(1)
}

// FindByID mocks the FindByID method
func (m *ContactRepoMock) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	args := m.Called(ctx, id)
	var contact *model.Contact
	if args.Get(0) != nil {
		contact = args.Get(0).(*model.Contact)
	}
	return contact, args.Error(1)
}

// UpdateFields mocks the UpdateFields method
func (m *ContactRepoMock) UpdateFields(ctx context.Context, id string, columns map[string]interface{}, customFields map[string]interface{}) error {
	args := m.Called(ctx, id, columns, customFields)
	return args.Error(0)
}

// Close mocks the Close method
func (m *ContactRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- AgentRepo Mock ---

// AgentRepoMock mocks the AgentRepo interface
type AgentRepoMock struct {
	mock.Mock
}

// FindByID mocks the FindByID method
func (m *AgentRepoMock) FindByID(ctx context.Context, id string) (*model.Agent, error) {
	args := m.Called(ctx, id)
	var agent *model.Agent
	if args.Get(0) != nil {
		agent = args.Get(0).(*model.Agent)
	}
	return agent, args.Error(1)
}

// Create mocks the Create method
func (m *AgentRepoMock) Create(ctx context.Context, agent model.Agent) error {
	args := m.Called(ctx, agent)
	return args.Error(0)
}

// Close mocks the Close method
func (m *AgentRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- CallHistoryRepo Mock ---

// CallHistoryRepoMock mocks the CallHistoryRepo interface
type CallHistoryRepoMock struct {
	mock.Mock
}

// Qualify mocks the Qualify method
func (m *CallHistoryRepoMock) Qualify(ctx context.Context, contactID, qualificationID, campaignID, agentID string) (*model.CallHistory, error) {
	args := m.Called(ctx, contactID, qualificationID, campaignID, agentID)
	var record *model.CallHistory
	if args.Get(0) != nil {
		record = args.Get(0).(*model.CallHistory)
	}
	return record, args.Error(1)
}

// FindByContactID mocks the FindByContactID method
func (m *CallHistoryRepoMock) FindByContactID(ctx context.Context, contactID string) ([]model.CallHistory, error) {
	args := m.Called(ctx, contactID)
	var records []model.CallHistory
	if args.Get(0) != nil {
		records = args.Get(0).([]model.CallHistory)
	}
	return records, args.Error(1)
}

// Close mocks the Close method
func (m *CallHistoryRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
