package storage

import (
	"errors"
	"fmt"
	"time"

	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/apperrors"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/observer"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/logger"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/utils"
)

const insertBatchSize = 100

// LeaseNextContact atomically claims one pending contact of the campaign and
// marks it called. The selection uses FOR UPDATE SKIP LOCKED so concurrent
// lease calls never block each other and never receive the same row. An empty
// queue is not an error: the transaction commits with no effect and both
// return values are nil.
func (r *PostgresRepo) LeaseNextContact(ctx context.Context, campaignID string) (*model.Contact, *model.Campaign, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	startTime := utils.Now()
	contact, campaign, err := r.leaseNextContact(ctx, campaignID)
	observer.ObserveDbOperationDuration("lease", "contact", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to lease contact",
			zap.String("campaign_id", campaignID),
			zap.Error(err))
	}
	return contact, campaign, err
}

func (r *PostgresRepo) leaseNextContact(ctx context.Context, campaignID string) (*model.Contact, *model.Campaign, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, nil, fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
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

	var campaign model.Campaign
	if findErr := tx.Where("id = ?", campaignID).First(&campaign).Error; findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			txErr = fmt.Errorf("%w: campaign %s: %w", apperrors.ErrNotFound, campaignID, findErr)
			return nil, nil, txErr
		}
		txErr = fmt.Errorf("%w: failed to load campaign: %w", apperrors.ErrDatabase, findErr)
		return nil, nil, txErr
	}

	// FIFO by creation order; correctness depends only on mutual exclusion.
	var contact model.Contact
	findErr := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("campaign_id = ? AND status = ?", campaignID, model.ContactStatusPending).
		Order("created_at ASC").
		Limit(1).
		Take(&contact).Error
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			// Queue exhausted. Commit the no-op so the lock scan is released.
			if commitErr := tx.Commit().Error; commitErr != nil {
				txErr = fmt.Errorf("%w: failed to commit empty lease: %w", apperrors.ErrDatabase, commitErr)
				return nil, nil, txErr
			}
			return nil, nil, nil
		}
		txErr = fmt.Errorf("%w: failed to select pending contact: %w", apperrors.ErrDatabase, findErr)
		return nil, nil, txErr
	}

	now := utils.Now()
	updateResult := tx.Model(&model.Contact{}).
		Where("id = ?", contact.ID).
		Updates(map[string]interface{}{
			"status":     model.ContactStatusCalled,
			"updated_at": now,
		})
	if updateResult.Error != nil {
		txErr = checkConstraintViolation(updateResult.Error)
		return nil, nil, txErr
	}
	if updateResult.RowsAffected == 0 {
		txErr = fmt.Errorf("%w: leased contact %s vanished before update", apperrors.ErrDatabase, contact.ID)
		return nil, nil, txErr
	}

	if agentErr := tx.Model(&model.CampaignAgent{}).
		Where("campaign_id = ?", campaignID).
		Pluck("user_id", &campaign.AgentIDs).Error; agentErr != nil {
		txErr = fmt.Errorf("%w: failed to load campaign agents: %w", apperrors.ErrDatabase, agentErr)
		return nil, nil, txErr
	}

	if commitErr := tx.Commit().Error; commitErr != nil {
		txErr = fmt.Errorf("%w: failed to commit lease transaction: %w", apperrors.ErrDatabase, commitErr)
		return nil, nil, txErr
	}

	contact.Status = model.ContactStatusCalled
	contact.UpdatedAt = now
	return &contact, &campaign, nil
}

// BulkInsertContacts inserts the staged contacts inside one transaction using
// batched INSERT statements. On success the exact slice that was committed is
// returned; on any failure every insertion performed so far is rolled back
// and nothing is returned as accepted.
func (r *PostgresRepo) BulkInsertContacts(ctx context.Context, contacts []model.Contact) ([]model.Contact, error) {
	if len(contacts) == 0 {
		return nil, nil
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()
	loggerCtx := logger.FromContext(ctx)

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if p := recover(); p != nil {
				tx.Rollback()
				panic(p)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					loggerCtx.Error("Failed to rollback transaction after error",
						zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		if createErr := tx.CreateInBatches(contacts, insertBatchSize).Error; createErr != nil {
			txErr = checkConstraintViolation(createErr)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit bulk insert transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	startTime := utils.Now()
	err := operation()
	observer.ObserveDbOperationDuration("bulk_insert", "contact", time.Since(startTime), err)
	if err != nil {
		loggerCtx.Error("Failed to bulk insert contacts", zap.Int("contacts", len(contacts)), zap.Error(err))
		return nil, err
	}

	loggerCtx.Info("Bulk insert successful", zap.Int("contacts_inserted", len(contacts)))
	return contacts, nil
}

// FindContactsByCampaignID returns every stored contact of the campaign, in
// creation order. Used by the import pipeline to preload dedup keys.
func (r *PostgresRepo) FindContactsByCampaignID(ctx context.Context, campaignID string) ([]model.Contact, error) {
	var contacts []model.Contact
	startTime := utils.Now()
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&contacts).Error
	observer.ObserveDbOperationDuration("find_by_campaign", "contact", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to find contacts by campaign",
			zap.String("campaign_id", campaignID), zap.Error(err))
		return nil, fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, err)
	}
	if contacts == nil {
		return []model.Contact{}, nil
	}
	return contacts, nil
}

// FindContactByID finds a contact by its ID.
func (r *PostgresRepo) FindContactByID(ctx context.Context, id string) (*model.Contact, error) {
	var contact model.Contact
	startTime := utils.Now()
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&contact).Error
	observer.ObserveDbOperationDuration("find_by_id", "contact", time.Since(startTime), err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find contact by ID",
			zap.String("contact_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, err)
	}
	return &contact, nil
}

// UpdateContactFields updates only the supplied contact columns. Status is
// never touched here: lifecycle transitions belong to the lease queue and the
// qualification recorder. Custom-field entries are merged into the existing
// document rather than replacing it.
func (r *PostgresRepo) UpdateContactFields(ctx context.Context, id string, columns map[string]interface{}, customFields map[string]interface{}) error {
	if len(columns) == 0 && len(customFields) == 0 {
		return nil
	}
	if _, ok := columns["status"]; ok {
		return fmt.Errorf("%w: status cannot be edited directly", apperrors.ErrBadRequest)
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()
	loggerCtx := logger.FromContext(ctx)

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if p := recover(); p != nil {
				tx.Rollback()
				panic(p)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					loggerCtx.Error("Failed to rollback transaction after error",
						zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var existing model.Contact
		findErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&existing).Error
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: contact %s: %w", apperrors.ErrNotFound, id, findErr)
				return txErr
			}
			txErr = fmt.Errorf("%w: failed to lock contact row: %w", apperrors.ErrDatabase, findErr)
			return txErr
		}

		updates := make(map[string]interface{}, len(columns)+2)
		for col, v := range columns {
			updates[col] = v
		}
		if len(customFields) > 0 {
			merged := existing.CustomFields
			if merged == nil {
				merged = map[string]interface{}{}
			}
			for k, v := range customFields {
				merged[k] = v
			}
			updates["custom_fields"] = merged
		}
		updates["updated_at"] = utils.Now()

		if updateErr := tx.Model(&model.Contact{}).Where("id = ?", id).Updates(updates).Error; updateErr != nil {
			txErr = checkConstraintViolation(updateErr)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit field update: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	startTime := utils.Now()
	err := operation()
	observer.ObserveDbOperationDuration("update_fields", "contact", time.Since(startTime), err)
	if err != nil {
		loggerCtx.Error("Failed to update contact fields", zap.String("contact_id", id), zap.Error(err))
	}
	return err
}
