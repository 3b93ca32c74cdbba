package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/apperrors"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/observer"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/logger"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/utils"
)

// SaveCampaign upserts the campaign row and fully resynchronizes its agent
// assignment set inside one transaction. An empty existingID inserts a new
// row with the caller-supplied identity; otherwise the row identified by
// existingID is updated. The assignment set is replaced, never patched: all
// junction rows are deleted, then one row per supplied agent is inserted.
func (r *PostgresRepo) SaveCampaign(ctx context.Context, campaign model.Campaign, existingID string) (*model.Campaign, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	startTime := utils.Now()
	saved, err := r.saveCampaign(ctx, campaign, existingID)
	observer.ObserveDbOperationDuration("save", "campaign", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to save campaign",
			zap.String("campaign_id", campaign.ID),
			zap.String("existing_id", existingID),
			zap.Error(err))
	}
	return saved, err
}

func (r *PostgresRepo) saveCampaign(ctx context.Context, campaign model.Campaign, existingID string) (*model.Campaign, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
	}
	var txErr error
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback().Error; rbErr != nil {
				logger.FromContext(ctx).Error("Failed to rollback transaction after error",
					zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
			}
		}
	}()

	now := utils.Now()
	if existingID == "" {
		campaign.CreatedAt = now
		campaign.UpdatedAt = now
		if createErr := tx.Create(&campaign).Error; createErr != nil {
			txErr = checkConstraintViolation(createErr)
			return nil, txErr
		}
	} else {
		var existing model.Campaign
		findErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", existingID).
			First(&existing).Error
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: campaign %s: %w", apperrors.ErrNotFound, existingID, findErr)
				return nil, txErr
			}
			txErr = fmt.Errorf("%w: failed to lock campaign row: %w", apperrors.ErrDatabase, findErr)
			return nil, txErr
		}

		campaign.ID = existingID
		campaign.CreatedAt = existing.CreatedAt
		campaign.UpdatedAt = now
		updateErr := tx.Model(&model.Campaign{}).
			Where("id = ?", existingID).
			Select(model.CampaignUpdateColumns()).
			Updates(&campaign).Error
		if updateErr != nil {
			txErr = checkConstraintViolation(updateErr)
			return nil, txErr
		}
	}

	// Full replace of the assignment set. An empty set leaves the campaign
	// with no assigned agents.
	if delErr := tx.Where("campaign_id = ?", campaign.ID).Delete(&model.CampaignAgent{}).Error; delErr != nil {
		txErr = fmt.Errorf("%w: failed to clear campaign assignments: %w", apperrors.ErrDatabase, delErr)
		return nil, txErr
	}

	agentIDs := dedupeAgentIDs(campaign.AgentIDs)
	if len(agentIDs) > 0 {
		assignments := make([]model.CampaignAgent, 0, len(agentIDs))
		for _, userID := range agentIDs {
			assignments = append(assignments, model.CampaignAgent{CampaignID: campaign.ID, UserID: userID})
		}
		if createErr := tx.Create(&assignments).Error; createErr != nil {
			txErr = checkConstraintViolation(createErr)
			return nil, txErr
		}
	}

	if commitErr := tx.Commit().Error; commitErr != nil {
		txErr = fmt.Errorf("%w: failed to commit campaign save: %w", apperrors.ErrDatabase, commitErr)
		return nil, txErr
	}

	// The returned aggregate deliberately omits the campaign's contact list;
	// callers needing contacts query separately.
	campaign.AgentIDs = agentIDs
	return &campaign, nil
}

// dedupeAgentIDs collapses duplicates while preserving first-seen order.
func dedupeAgentIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// FindCampaignByID finds a campaign by its ID, including its assignment set.
func (r *PostgresRepo) FindCampaignByID(ctx context.Context, id string) (*model.Campaign, error) {
	var campaign model.Campaign
	startTime := utils.Now()
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&campaign).Error
	if err == nil {
		err = r.db.WithContext(ctx).Model(&model.CampaignAgent{}).
			Where("campaign_id = ?", id).
			Pluck("user_id", &campaign.AgentIDs).Error
	}
	observer.ObserveDbOperationDuration("find_by_id", "campaign", time.Since(startTime), err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find campaign by ID",
			zap.String("campaign_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, err)
	}
	return &campaign, nil
}

// AssignedAgentIDs returns the user ids currently assigned to the campaign.
func (r *PostgresRepo) AssignedAgentIDs(ctx context.Context, campaignID string) ([]string, error) {
	var ids []string
	startTime := utils.Now()
	err := r.db.WithContext(ctx).Model(&model.CampaignAgent{}).
		Where("campaign_id = ?", campaignID).
		Pluck("user_id", &ids).Error
	observer.ObserveDbOperationDuration("assigned_agents", "campaign", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to list campaign assignments",
			zap.String("campaign_id", campaignID), zap.Error(err))
		return nil, fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, err)
	}
	return ids, nil
}
