package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/apperrors"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/observer"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/logger"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/utils"
)

// QualifyContact transitions the contact to qualified and appends one
// immutable call-history record, atomically. Contact and agent must both
// exist; either lookup missing fails the whole call with ErrNotFound and
// rolls back, leaving the contact status untouched and no history row.
// Only a called contact qualifies: a pending or already-qualified contact
// fails with ErrBadRequest.
//
// The history record captures the qualification event, not a live call
// trace: start = end = now and durations are zero.
func (r *PostgresRepo) QualifyContact(ctx context.Context, contactID, qualificationID, campaignID, agentID string) (*model.CallHistory, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	startTime := utils.Now()
	record, err := r.qualifyContact(ctx, contactID, qualificationID, campaignID, agentID)
	observer.ObserveDbOperationDuration("qualify", "contact", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to qualify contact",
			zap.String("contact_id", contactID),
			zap.String("agent_id", agentID),
			zap.String("campaign_id", campaignID),
			zap.Error(err))
	}
	return record, err
}

func (r *PostgresRepo) qualifyContact(ctx context.Context, contactID, qualificationID, campaignID, agentID string) (*model.CallHistory, error) {
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

	var contact model.Contact
	findErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", contactID).
		First(&contact).Error
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			txErr = fmt.Errorf("%w: contact %s: %w", apperrors.ErrNotFound, contactID, findErr)
			return nil, txErr
		}
		txErr = fmt.Errorf("%w: failed to lock contact row: %w", apperrors.ErrDatabase, findErr)
		return nil, txErr
	}

	if !contact.Status.CanTransitionTo(model.ContactStatusQualified) {
		txErr = fmt.Errorf("%w: contact %s has status %s, only a called contact can be qualified",
			apperrors.ErrBadRequest, contactID, contact.Status)
		return nil, txErr
	}

	var agent model.Agent
	agentErr := tx.Where("id = ?", agentID).First(&agent).Error
	if agentErr != nil {
		if errors.Is(agentErr, gorm.ErrRecordNotFound) {
			txErr = fmt.Errorf("%w: agent %s: %w", apperrors.ErrNotFound, agentID, agentErr)
			return nil, txErr
		}
		txErr = fmt.Errorf("%w: failed to load agent: %w", apperrors.ErrDatabase, agentErr)
		return nil, txErr
	}

	now := utils.Now()
	updateResult := tx.Model(&model.Contact{}).
		Where("id = ?", contactID).
		Updates(map[string]interface{}{
			"status":     model.ContactStatusQualified,
			"updated_at": now,
		})
	if updateResult.Error != nil {
		txErr = checkConstraintViolation(updateResult.Error)
		return nil, txErr
	}

	record := model.CallHistory{
		ID:               uuid.New().String(),
		StartTime:        now,
		EndTime:          now,
		Duration:         0,
		BillableDuration: 0,
		Direction:        model.CallDirectionOutbound,
		CallStatus:       "qualified",
		Source:           agent.LoginID,
		Destination:      contact.PhoneNumber,
		AgentID:          agentID,
		ContactID:        contactID,
		CampaignID:       campaignID,
		QualificationID:  qualificationID,
	}
	if createErr := tx.Create(&record).Error; createErr != nil {
		txErr = checkConstraintViolation(createErr)
		return nil, txErr
	}

	if commitErr := tx.Commit().Error; commitErr != nil {
		txErr = fmt.Errorf("%w: failed to commit qualification: %w", apperrors.ErrDatabase, commitErr)
		return nil, txErr
	}

	return &record, nil
}

// FindCallHistoryByContactID returns the history records referencing a
// contact, oldest first.
func (r *PostgresRepo) FindCallHistoryByContactID(ctx context.Context, contactID string) ([]model.CallHistory, error) {
	var records []model.CallHistory
	startTime := utils.Now()
	err := r.db.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("start_time ASC").
		Find(&records).Error
	observer.ObserveDbOperationDuration("find_by_contact", "call_history", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to find call history",
			zap.String("contact_id", contactID), zap.Error(err))
		return nil, fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, err)
	}
	if records == nil {
		return []model.CallHistory{}, nil
	}
	return records, nil
}
