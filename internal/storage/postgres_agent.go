package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/apperrors"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/observer"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/logger"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/utils"
)

// FindAgentByID finds an agent by its ID.
func (r *PostgresRepo) FindAgentByID(ctx context.Context, id string) (*model.Agent, error) {
	var agent model.Agent
	startTime := utils.Now()
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&agent).Error
	observer.ObserveDbOperationDuration("find_by_id", "agent", time.Since(startTime), err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find agent by ID",
			zap.String("agent_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, err)
	}
	return &agent, nil
}

// CreateAgent inserts an agent row. Used for seeding; agent lifecycle is
// otherwise managed outside this service.
func (r *PostgresRepo) CreateAgent(ctx context.Context, agent model.Agent) error {
	startTime := utils.Now()
	err := r.db.WithContext(ctx).Create(&agent).Error
	observer.ObserveDbOperationDuration("create", "agent", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to create agent",
			zap.String("agent_id", agent.ID), zap.Error(err))
		return checkConstraintViolation(err)
	}
	return nil
}
