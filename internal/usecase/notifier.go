package usecase

import (
	"context"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
)

// QualificationNotifier receives call-history records after their
// transaction has committed. Implementations must be best-effort: the engine
// ignores notification failures and never unwinds committed state.
type QualificationNotifier interface {
	NotifyQualified(ctx context.Context, record model.CallHistory)
}

// NoopNotifier discards qualification events.
type NoopNotifier struct{}

// NotifyQualified does nothing
func (NoopNotifier) NotifyQualified(context.Context, model.CallHistory) {}

// DedupInvalidator drops cached dedup keys for a campaign when contact data
// changes outside the import path. Satisfied by *cache.DedupCache.
type DedupInvalidator interface {
	InvalidateCampaign(campaignID, keep string)
}

// NoopInvalidator ignores invalidations.
type NoopInvalidator struct{}

// InvalidateCampaign does nothing
func (NoopInvalidator) InvalidateCampaign(string, string) {}
