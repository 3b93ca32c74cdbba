package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/apperrors"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/cache"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/observer"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/storage"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/logger"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/utils"
)

// ImportService ingests bulk contact lists with validation and
// per-campaign deduplication. Classification is pure and in-memory; only
// the final batch insert touches the row store.
type ImportService struct {
	campaignRepo storage.CampaignRepo
	contactRepo  storage.ContactRepo
	capability   CapabilityChecker
	dedupCache   *cache.DedupCache
}

const (
	dedupCacheExpectedKeys = 1_000_000
	dedupCacheFPRate       = 0.001
)

// NewImportService creates a new import service
func NewImportService(campaignRepo storage.CampaignRepo, contactRepo storage.ContactRepo, capability CapabilityChecker) *ImportService {
	if capability == nil {
		capability = AllowAllCapabilities{}
	}
	return &ImportService{
		campaignRepo: campaignRepo,
		contactRepo:  contactRepo,
		capability:   capability,
		dedupCache:   cache.NewDedupCache(dedupCacheExpectedKeys, dedupCacheFPRate),
	}
}

// Cache exposes the dedup key cache so sibling services writing contacts
// outside the import path can invalidate it.
func (s *ImportService) Cache() *cache.DedupCache {
	return s.dedupCache
}

// ImportContacts classifies the records in input order, rejecting invalid
// phone numbers and duplicates (against stored contacts and within the
// batch), then inserts every accepted row in a single transaction.
//
// Row-level problems never surface as errors: callers always receive both
// lists. The returned Accepted list is re-derived from the rows the
// transaction durably committed, so a rolled-back import reports the error
// and no accepted rows.
func (s *ImportService) ImportContacts(ctx context.Context, campaignID string, records []model.ImportRecord, cfg model.DedupConfig) (*model.ImportOutcome, error) {
	log := logger.FromContext(ctx)
	start := utils.Now()

	if !s.capability.IsOperationPermitted(OperationImportContacts) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotPermitted, OperationImportContacts)
	}

	if campaignID == "" {
		return nil, fmt.Errorf("%w: campaignID is required", apperrors.ErrBadRequest)
	}
	if _, err := s.campaignRepo.FindByID(ctx, campaignID); err != nil {
		return nil, fmt.Errorf("campaign lookup failed: %w", err)
	}

	if len(records) == 0 {
		log.Warn("No records to import", zap.String("campaign_id", campaignID))
		return &model.ImportOutcome{Accepted: []model.Contact{}, Rejected: []model.RejectedRecord{}}, nil
	}

	// Phase 1: preload the dedup keys of every stored contact in the
	// campaign, computed with the same key function as the classifier.
	// A warm bloom filter reporting none of the incoming keys skips the
	// preload; any possible hit falls back to the authoritative store.
	existingKeys := map[string]struct{}{}
	scope := cache.Scope(campaignID, cfg.FieldIDs)
	if cfg.Enabled {
		incoming := make([]string, 0, len(records))
		for _, record := range records {
			incoming = append(incoming, DedupKeyForRecord(record, cfg.FieldIDs))
		}
		if s.dedupCache.AnyMightContain(scope, incoming) {
			stored, err := s.contactRepo.FindByCampaignID(ctx, campaignID)
			if err != nil {
				return nil, fmt.Errorf("failed to preload dedup keys: %w", err)
			}
			for _, contact := range stored {
				existingKeys[DedupKeyForContact(contact, cfg.FieldIDs)] = struct{}{}
			}
			s.dedupCache.Seed(scope, existingKeys)
		}
	}

	// Phase 2: pure classification, then one batch insert.
	staged, rejectedRecords := ClassifyRecords(campaignID, records, cfg, existingKeys)

	var committed []model.Contact
	if len(staged) > 0 {
		var err error
		committed, err = s.contactRepo.BulkInsert(ctx, staged)
		if err != nil {
			log.Error("Import transaction failed, nothing accepted",
				zap.String("campaign_id", campaignID),
				zap.Int("staged", len(staged)),
				zap.Error(err))
			return nil, err
		}
	}
	if committed == nil {
		committed = []model.Contact{}
	}

	if len(committed) > 0 {
		if cfg.Enabled {
			committedKeys := make([]string, 0, len(committed))
			for _, contact := range committed {
				committedKeys = append(committedKeys, DedupKeyForContact(contact, cfg.FieldIDs))
			}
			s.dedupCache.Add(scope, committedKeys)
			// The new rows are unknown to the campaign's filters over other
			// field sets.
			s.dedupCache.InvalidateCampaign(campaignID, scope)
		} else {
			// Committed without passing through any filter: every filter of
			// the campaign is stale now.
			s.dedupCache.InvalidateCampaign(campaignID, "")
		}
	}

	observer.AddContactsAccepted(campaignID, len(committed))
	for _, r := range rejectedRecords {
		observer.IncContactRejected(campaignID, r.Reason)
	}

	log.Info("Import completed",
		zap.String("campaign_id", campaignID),
		zap.Int("accepted", len(committed)),
		zap.Int("rejected", len(rejectedRecords)),
		zap.Bool("dedup_enabled", cfg.Enabled),
		zap.Duration("duration", time.Since(start)))

	return &model.ImportOutcome{Accepted: committed, Rejected: rejectedRecords}, nil
}
