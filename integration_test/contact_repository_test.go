package integration_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/apperrors"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/storage"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/logger"
)

// ContactRepoTestSuite exercises the lease and qualification paths against a
// real PostgreSQL, where SKIP LOCKED semantics actually apply.
type ContactRepoTestSuite struct {
	BaseIntegrationSuite
	repo *storage.PostgresRepo
}

// SetupTest runs before each test in this suite.
func (s *ContactRepoTestSuite) SetupTest() {
	logger.Log = zaptest.NewLogger(s.T()).Named("ContactRepoTestSuite")
	repo, err := storage.NewPostgresRepo(s.PostgresDSN, true, 30*time.Second)
	s.Require().NoError(err, "SetupTest: Failed to create repo")
	s.repo = repo

	// Base truncation runs after the repo's migration, so the tables exist.
	s.BaseIntegrationSuite.SetupTest()
}

// TearDownTest runs after each test in this suite.
func (s *ContactRepoTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close(s.Ctx)
	}
}

// TestRunner runs the test suite
func TestContactRepoSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed tests in short mode")
	}
	suite.Run(t, new(ContactRepoTestSuite))
}

// seedCampaign persists a campaign with the given number of pending contacts.
func (s *ContactRepoTestSuite) seedCampaign(contactCount int) string {
	campaignID := uuid.NewString()
	_, err := s.repo.SaveCampaign(s.Ctx, model.Campaign{
		ID:          campaignID,
		Name:        "lease integration " + campaignID[:8],
		DialingMode: model.DialingModeProgressive,
		IsActive:    true,
	}, "")
	s.Require().NoError(err, "Failed to seed campaign")

	contacts := make([]model.Contact, contactCount)
	for i := range contacts {
		contacts[i] = model.Contact{
			ID:          uuid.NewString(),
			CampaignID:  campaignID,
			PhoneNumber: fmt.Sprintf("06%08d", i),
			Status:      model.ContactStatusPending,
		}
	}
	if contactCount > 0 {
		_, err = s.repo.BulkInsertContacts(s.Ctx, contacts)
		s.Require().NoError(err, "Failed to seed contacts")
	}
	return campaignID
}

func (s *ContactRepoTestSuite) seedAgent() model.Agent {
	agent := model.Agent{
		ID:       uuid.NewString(),
		LoginID:  "agent_" + uuid.NewString()[:8],
		IsActive: true,
	}
	s.Require().NoError(s.repo.CreateAgent(s.Ctx, agent), "Failed to seed agent")
	return agent
}

// --- Test Cases ---

// Fires more concurrent lease attempts than there are pending contacts and
// checks that every contact is granted exactly once, the surplus attempts
// miss, and the store ends with no pending rows.
func (s *ContactRepoTestSuite) TestConcurrentLeaseGrantsEachContactOnce() {
	const pendingContacts = 8
	const workers = 32

	campaignID := s.seedCampaign(pendingContacts)

	grants := make(chan string, workers)
	errs := make(chan error, workers)
	var misses int
	var missMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			contact, campaign, err := s.repo.LeaseNextContact(s.Ctx, campaignID)
			if err != nil {
				errs <- err
				return
			}
			if contact == nil {
				missMu.Lock()
				misses++
				missMu.Unlock()
				return
			}
			if campaign == nil || campaign.ID != campaignID {
				errs <- fmt.Errorf("lease of %s returned wrong campaign snapshot", contact.ID)
				return
			}
			grants <- contact.ID
		}()
	}
	wg.Wait()
	close(grants)
	close(errs)

	for err := range errs {
		s.Require().NoError(err, "Concurrent lease attempt failed")
	}

	granted := make(map[string]int)
	for id := range grants {
		granted[id]++
	}
	for id, n := range granted {
		s.Require().Equal(1, n, "Contact %s was leased %d times", id, n)
	}
	s.Require().Len(granted, pendingContacts, "Every pending contact should be granted exactly once")
	s.Require().Equal(workers-pendingContacts, misses, "Surplus attempts should miss")

	called, err := countRows(s.Ctx, s.PostgresDSN, "contacts", "campaign_id = $1 AND status = $2", campaignID, "called")
	s.Require().NoError(err)
	s.Require().Equal(pendingContacts, called)

	pending, err := countRows(s.Ctx, s.PostgresDSN, "contacts", "campaign_id = $1 AND status = $2", campaignID, "pending")
	s.Require().NoError(err)
	s.Require().Equal(0, pending)
}

// An exhausted queue is a defined empty result, not an error.
func (s *ContactRepoTestSuite) TestLeaseExhaustedQueueReturnsNullResult() {
	campaignID := s.seedCampaign(1)

	contact, _, err := s.repo.LeaseNextContact(s.Ctx, campaignID)
	s.Require().NoError(err)
	s.Require().NotNil(contact)

	contact, campaign, err := s.repo.LeaseNextContact(s.Ctx, campaignID)
	s.Require().NoError(err)
	s.Require().Nil(contact)
	s.Require().Nil(campaign)
}

func (s *ContactRepoTestSuite) TestQualifyLeasedContactLifecycle() {
	campaignID := s.seedCampaign(1)
	agent := s.seedAgent()

	leased, _, err := s.repo.LeaseNextContact(s.Ctx, campaignID)
	s.Require().NoError(err)
	s.Require().NotNil(leased)

	record, err := s.repo.QualifyContact(s.Ctx, leased.ID, "qual-1", campaignID, agent.ID)
	s.Require().NoError(err)
	s.Require().Equal(agent.LoginID, record.Source)
	s.Require().Equal(leased.PhoneNumber, record.Destination)

	history, err := s.repo.FindCallHistoryByContactID(s.Ctx, leased.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)

	qualified, err := countRows(s.Ctx, s.PostgresDSN, "contacts", "id = $1 AND status = $2", leased.ID, "qualified")
	s.Require().NoError(err)
	s.Require().Equal(1, qualified)

	// Qualifying the same contact twice breaks the lifecycle order.
	_, err = s.repo.QualifyContact(s.Ctx, leased.ID, "qual-2", campaignID, agent.ID)
	s.Require().ErrorIs(err, apperrors.ErrBadRequest)

	history, err = s.repo.FindCallHistoryByContactID(s.Ctx, leased.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1, "Rejected qualification must not append history")
}

// A contact that was never leased cannot be qualified.
func (s *ContactRepoTestSuite) TestQualifyNeverLeasedContactRejected() {
	campaignID := s.seedCampaign(1)
	agent := s.seedAgent()

	contacts, err := s.repo.FindContactsByCampaignID(s.Ctx, campaignID)
	s.Require().NoError(err)
	s.Require().Len(contacts, 1)
	contactID := contacts[0].ID

	_, err = s.repo.QualifyContact(s.Ctx, contactID, "qual-1", campaignID, agent.ID)
	s.Require().ErrorIs(err, apperrors.ErrBadRequest)

	stillPending, err := countRows(s.Ctx, s.PostgresDSN, "contacts", "id = $1 AND status = $2", contactID, "pending")
	s.Require().NoError(err)
	s.Require().Equal(1, stillPending, "Rejected qualification must leave the contact pending")

	history, err := s.repo.FindCallHistoryByContactID(s.Ctx, contactID)
	s.Require().NoError(err)
	s.Require().Empty(history)
}
