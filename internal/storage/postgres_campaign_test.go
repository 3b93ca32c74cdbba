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

func testCampaign() model.Campaign {
	return model.Campaign{
		ID:          "campaign-save-1",
		Name:        "Q3 Renewals",
		Description: "renewal outreach",
		IsActive:    true,
		DialingMode: model.DialingModeProgressive,
		Priority:    7,
		WrapUpTime:  10,
		AgentIDs:    []string{"agent-1", "agent-2", "agent-1", ""},
	}
}

func TestPostgresRepo_SaveCampaign_Create(t *testing.T) {
	repo, mock := newTestRepo(t)
	campaign := testCampaign()

	mock.ExpectBegin()
	insertPattern := regexp.QuoteMeta(`INSERT INTO "campaigns"`) + `.+` +
		regexp.QuoteMeta(`RETURNING "is_active","dialing_mode","priority","wrap_up_time"`)
	defaultRows := sqlmock.NewRows([]string{"is_active", "dialing_mode", "priority", "wrap_up_time"}).
		AddRow(true, "PROGRESSIVE", 7, 10)
	mock.ExpectQuery(insertPattern).WillReturnRows(defaultRows)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "campaign_agents" WHERE campaign_id = $1`)).
		WithArgs(campaign.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "campaign_agents" ("campaign_id","user_id") VALUES ($1,$2),($3,$4)`)).
		WithArgs(campaign.ID, "agent-1", campaign.ID, "agent-2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	saved, err := repo.SaveCampaign(context.Background(), campaign, "")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, campaign.ID, saved.ID)
	// Duplicate and empty agent ids collapse; first-seen order is preserved.
	assert.Equal(t, []string{"agent-1", "agent-2"}, saved.AgentIDs)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_SaveCampaign_CreateDuplicateID(t *testing.T) {
	repo, mock := newTestRepo(t)
	campaign := testCampaign()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "campaigns"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "campaigns_pkey"})
	mock.ExpectRollback()

	saved, err := repo.SaveCampaign(context.Background(), campaign, "")
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
	assert.Nil(t, saved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_SaveCampaign_Update(t *testing.T) {
	repo, mock := newTestRepo(t)
	campaign := testCampaign()
	campaign.AgentIDs = nil
	createdAt := time.Now().Add(-24 * time.Hour)

	mock.ExpectBegin()
	lockPattern := regexp.QuoteMeta(`SELECT * FROM "campaigns" WHERE id = $1`) + `.+` + regexp.QuoteMeta(`FOR UPDATE`)
	existingRows := sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
		AddRow(campaign.ID, "Old Name", createdAt, createdAt)
	mock.ExpectQuery(lockPattern).
		WithArgs(campaign.ID, 1).
		WillReturnRows(existingRows)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "campaigns" SET "name"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "campaign_agents" WHERE campaign_id = $1`)).
		WithArgs(campaign.ID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	saved, err := repo.SaveCampaign(context.Background(), campaign, campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "Q3 Renewals", saved.Name)
	// Creation timestamp survives the replace.
	assert.True(t, saved.CreatedAt.Equal(createdAt))
	assert.Empty(t, saved.AgentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_SaveCampaign_UpdateMissing(t *testing.T) {
	repo, mock := newTestRepo(t)
	campaign := testCampaign()

	mock.ExpectBegin()
	lockPattern := regexp.QuoteMeta(`SELECT * FROM "campaigns" WHERE id = $1`)
	mock.ExpectQuery(lockPattern).
		WithArgs("no-such-campaign", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	saved, err := repo.SaveCampaign(context.Background(), campaign, "no-such-campaign")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, saved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDedupeAgentIDs(t *testing.T) {
	testCases := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil input", input: nil, expected: nil},
		{name: "no duplicates", input: []string{"a", "b"}, expected: []string{"a", "b"}},
		{name: "duplicates collapse to first occurrence", input: []string{"a", "b", "a", "b"}, expected: []string{"a", "b"}},
		{name: "empty ids dropped", input: []string{"", "a", ""}, expected: []string{"a"}},
		{name: "all empty", input: []string{"", ""}, expected: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, dedupeAgentIDs(tc.input))
		})
	}
}

func TestPostgresRepo_FindCampaignByID_Found(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()

	campaignRows := sqlmock.NewRows([]string{"id", "name", "is_active", "dialing_mode", "priority", "wrap_up_time", "created_at", "updated_at"}).
		AddRow("campaign-find-1", "Q3 Renewals", true, "PREDICTIVE", 5, 5, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "campaigns" WHERE id = $1`)).
		WithArgs("campaign-find-1", 1).
		WillReturnRows(campaignRows)
	agentRows := sqlmock.NewRows([]string{"user_id"}).AddRow("agent-9")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "user_id" FROM "campaign_agents" WHERE campaign_id = $1`)).
		WithArgs("campaign-find-1").
		WillReturnRows(agentRows)

	campaign, err := repo.FindCampaignByID(context.Background(), "campaign-find-1")
	require.NoError(t, err)
	require.NotNil(t, campaign)
	assert.Equal(t, model.DialingModePredictive, campaign.DialingMode)
	assert.Equal(t, []string{"agent-9"}, campaign.AgentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindCampaignByID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "campaigns" WHERE id = $1`)).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	campaign, err := repo.FindCampaignByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, campaign)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_AssignedAgentIDs(t *testing.T) {
	repo, mock := newTestRepo(t)

	rows := sqlmock.NewRows([]string{"user_id"}).AddRow("agent-1").AddRow("agent-2")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "user_id" FROM "campaign_agents" WHERE campaign_id = $1`)).
		WithArgs("campaign-agents-1").
		WillReturnRows(rows)

	ids, err := repo.AssignedAgentIDs(context.Background(), "campaign-agents-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"agent-1", "agent-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
