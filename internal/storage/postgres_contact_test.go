package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/apperrors"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
)

const (
	testCampaignID = "campaign-lease-123"
	testContactID  = "contact-lease-456"
)

func expectLeaseCampaignLookup(mock sqlmock.Sqlmock, campaignID string) {
	rows := sqlmock.NewRows([]string{"id", "name", "is_active", "dialing_mode", "priority", "wrap_up_time"}).
		AddRow(campaignID, "Q3 Renewals", true, "PROGRESSIVE", 5, 5)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "campaigns" WHERE id = $1`)).
		WithArgs(campaignID, 1).
		WillReturnRows(rows)
}

func TestPostgresRepo_LeaseNextContact_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	expectLeaseCampaignLookup(mock, testCampaignID)
	contactRows := sqlmock.NewRows([]string{"id", "campaign_id", "phone_number", "status", "created_at", "updated_at"}).
		AddRow(testContactID, testCampaignID, "0612345678", "pending", now.Add(-time.Hour), now.Add(-time.Hour))
	// The selection must skip rows locked by concurrent lease transactions.
	selectPattern := regexp.QuoteMeta(`SELECT * FROM "contacts" WHERE campaign_id = $1 AND status = $2 ORDER BY created_at ASC`) +
		`.+` + regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)
	mock.ExpectQuery(selectPattern).
		WithArgs(testCampaignID, "pending", 1).
		WillReturnRows(contactRows)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "contacts" SET "status"=$1,"updated_at"=$2 WHERE id = $3`)).
		WithArgs("called", AnyTime{}, testContactID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	agentRows := sqlmock.NewRows([]string{"user_id"}).AddRow("agent-1").AddRow("agent-2")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "user_id" FROM "campaign_agents" WHERE campaign_id = $1`)).
		WithArgs(testCampaignID).
		WillReturnRows(agentRows)
	mock.ExpectCommit()

	contact, campaign, err := repo.LeaseNextContact(ctx, testCampaignID)
	require.NoError(t, err)
	require.NotNil(t, contact)
	require.NotNil(t, campaign)
	assert.Equal(t, testContactID, contact.ID)
	assert.Equal(t, model.ContactStatusCalled, contact.Status)
	assert.Equal(t, testCampaignID, campaign.ID)
	assert.Equal(t, []string{"agent-1", "agent-2"}, campaign.AgentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_LeaseNextContact_QueueExhausted(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	expectLeaseCampaignLookup(mock, testCampaignID)
	emptyRows := sqlmock.NewRows([]string{"id", "campaign_id", "phone_number", "status"})
	selectPattern := regexp.QuoteMeta(`SELECT * FROM "contacts" WHERE campaign_id = $1 AND status = $2`) +
		`.+` + regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)
	mock.ExpectQuery(selectPattern).
		WithArgs(testCampaignID, "pending", 1).
		WillReturnRows(emptyRows)
	// The empty lease commits so the lock scan is released.
	mock.ExpectCommit()

	contact, campaign, err := repo.LeaseNextContact(context.Background(), testCampaignID)
	assert.NoError(t, err)
	assert.Nil(t, contact)
	assert.Nil(t, campaign)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_LeaseNextContact_CampaignMissing(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "campaigns" WHERE id = $1`)).
		WithArgs("no-such-campaign", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	contact, campaign, err := repo.LeaseNextContact(context.Background(), "no-such-campaign")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, contact)
	assert.Nil(t, campaign)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_LeaseNextContact_SelectFailure(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	expectLeaseCampaignLookup(mock, testCampaignID)
	selectPattern := regexp.QuoteMeta(`SELECT * FROM "contacts" WHERE campaign_id = $1 AND status = $2`)
	mock.ExpectQuery(selectPattern).
		WithArgs(testCampaignID, "pending", 1).
		WillReturnError(&pgconn.PgError{Code: "57014"})
	mock.ExpectRollback()

	contact, campaign, err := repo.LeaseNextContact(context.Background(), testCampaignID)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.Nil(t, contact)
	assert.Nil(t, campaign)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_LeaseNextContact_ContactVanished(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	expectLeaseCampaignLookup(mock, testCampaignID)
	contactRows := sqlmock.NewRows([]string{"id", "campaign_id", "phone_number", "status", "created_at", "updated_at"}).
		AddRow(testContactID, testCampaignID, "0612345678", "pending", now, now)
	selectPattern := regexp.QuoteMeta(`SELECT * FROM "contacts" WHERE campaign_id = $1 AND status = $2`) +
		`.+` + regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)
	mock.ExpectQuery(selectPattern).
		WithArgs(testCampaignID, "pending", 1).
		WillReturnRows(contactRows)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "contacts" SET "status"=$1,"updated_at"=$2 WHERE id = $3`)).
		WithArgs("called", AnyTime{}, testContactID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	contact, _, err := repo.LeaseNextContact(context.Background(), testCampaignID)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.Nil(t, contact)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_BulkInsertContacts_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	contacts := []model.Contact{
		{ID: "bulk-1", CampaignID: testCampaignID, FirstName: "Ada", PhoneNumber: "0612345678"},
		{ID: "bulk-2", CampaignID: testCampaignID, FirstName: "Grace", PhoneNumber: "0698765432"},
	}

	mock.ExpectBegin()
	insertPattern := regexp.QuoteMeta(`INSERT INTO "contacts"`) + `.+` + regexp.QuoteMeta(`RETURNING "status"`)
	statusRows := sqlmock.NewRows([]string{"status"}).AddRow("pending").AddRow("pending")
	mock.ExpectQuery(insertPattern).WillReturnRows(statusRows)
	mock.ExpectCommit()

	committed, err := repo.BulkInsertContacts(context.Background(), contacts)
	require.NoError(t, err)
	require.Len(t, committed, 2)
	assert.Equal(t, "bulk-1", committed[0].ID)
	assert.Equal(t, model.ContactStatusPending, committed[0].Status)
	assert.Equal(t, model.ContactStatusPending, committed[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_BulkInsertContacts_EmptyInput(t *testing.T) {
	repo, mock := newTestRepo(t)

	committed, err := repo.BulkInsertContacts(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, committed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_BulkInsertContacts_UniqueViolationRollsBack(t *testing.T) {
	repo, mock := newTestRepo(t)
	contacts := []model.Contact{
		{ID: "bulk-dup", CampaignID: testCampaignID, PhoneNumber: "0612345678"},
	}

	mock.ExpectBegin()
	insertPattern := regexp.QuoteMeta(`INSERT INTO "contacts"`)
	mock.ExpectQuery(insertPattern).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "contacts_pkey"})
	mock.ExpectRollback()

	committed, err := repo.BulkInsertContacts(context.Background(), contacts)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
	assert.Nil(t, committed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindContactsByCampaignID(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "campaign_id", "phone_number", "status", "created_at"}).
		AddRow("c-1", testCampaignID, "0611111111", "pending", now.Add(-2*time.Hour)).
		AddRow("c-2", testCampaignID, "0622222222", "called", now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "contacts" WHERE campaign_id = $1 ORDER BY created_at ASC`)).
		WithArgs(testCampaignID).
		WillReturnRows(rows)

	contacts, err := repo.FindContactsByCampaignID(context.Background(), testCampaignID)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "c-1", contacts[0].ID)
	assert.Equal(t, model.ContactStatusCalled, contacts[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindContactsByCampaignID_Empty(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "contacts" WHERE campaign_id = $1`)).
		WithArgs(testCampaignID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	contacts, err := repo.FindContactsByCampaignID(context.Background(), testCampaignID)
	require.NoError(t, err)
	assert.NotNil(t, contacts)
	assert.Empty(t, contacts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindContactByID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "contacts" WHERE id = $1`)).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	contact, err := repo.FindContactByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, contact)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdateContactFields_MergesCustomFields(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	lockPattern := regexp.QuoteMeta(`SELECT * FROM "contacts" WHERE id = $1`) + `.+` + regexp.QuoteMeta(`FOR UPDATE`)
	existingRows := sqlmock.NewRows([]string{"id", "campaign_id", "phone_number", "status", "custom_fields", "created_at", "updated_at"}).
		AddRow(testContactID, testCampaignID, "0612345678", "pending", []byte(`{"lead_source":"csv"}`), now, now)
	mock.ExpectQuery(lockPattern).
		WithArgs(testContactID, 1).
		WillReturnRows(existingRows)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "contacts" SET "custom_fields"=$1,"first_name"=$2,"updated_at"=$3 WHERE id = $4`)).
		WithArgs(AnyJSON{}, "Ada", AnyTime{}, testContactID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateContactFields(context.Background(),
		testContactID,
		map[string]interface{}{"first_name": "Ada"},
		map[string]interface{}{"score": 42})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdateContactFields_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	lockPattern := regexp.QuoteMeta(`SELECT * FROM "contacts" WHERE id = $1`)
	mock.ExpectQuery(lockPattern).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.UpdateContactFields(context.Background(), "missing",
		map[string]interface{}{"first_name": "Ada"}, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdateContactFields_RejectsStatus(t *testing.T) {
	repo, mock := newTestRepo(t)

	err := repo.UpdateContactFields(context.Background(), testContactID,
		map[string]interface{}{"status": "qualified"}, nil)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdateContactFields_NothingToDo(t *testing.T) {
	repo, mock := newTestRepo(t)

	err := repo.UpdateContactFields(context.Background(), testContactID, nil, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
