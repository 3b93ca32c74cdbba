package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/apperrors"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/fieldmap"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/observer"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/storage"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/validator"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/logger"
)

// DialerService exposes the agent-facing operations of the engine: leasing
// contacts, persisting campaign aggregates, recording qualifications and
// editing contact fields. Each operation maps to one row-store transaction.
type DialerService struct {
	campaignRepo storage.CampaignRepo
	contactRepo  storage.ContactRepo
	agentRepo    storage.AgentRepo
	historyRepo  storage.CallHistoryRepo
	capability   CapabilityChecker
	notifier     QualificationNotifier
	dedup        DedupInvalidator
}

// NewDialerService creates a new dialer service. The invalidator must be the
// import pipeline's dedup cache when both services run against the same
// store; field edits change stored key material behind the filters' back.
func NewDialerService(
	campaignRepo storage.CampaignRepo,
	contactRepo storage.ContactRepo,
	agentRepo storage.AgentRepo,
	historyRepo storage.CallHistoryRepo,
	capability CapabilityChecker,
	notifier QualificationNotifier,
	dedup DedupInvalidator,
) *DialerService {
	if capability == nil {
		capability = AllowAllCapabilities{}
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if dedup == nil {
		dedup = NoopInvalidator{}
	}
	return &DialerService{
		campaignRepo: campaignRepo,
		contactRepo:  contactRepo,
		agentRepo:    agentRepo,
		historyRepo:  historyRepo,
		capability:   capability,
		notifier:     notifier,
		dedup:        dedup,
	}
}

// LeaseNextContact claims the next pending contact of the campaign for a
// requesting agent. An exhausted queue returns (nil, nil, nil): a defined
// empty result, not an error.
func (s *DialerService) LeaseNextContact(ctx context.Context, campaignID string) (*model.Contact, *model.Campaign, error) {
	if !s.capability.IsOperationPermitted(OperationLeaseContact) {
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrNotPermitted, OperationLeaseContact)
	}
	if campaignID == "" {
		return nil, nil, fmt.Errorf("%w: campaignID is required", apperrors.ErrBadRequest)
	}

	contact, campaign, err := s.contactRepo.LeaseNextPending(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	if contact == nil {
		observer.IncLeaseMiss(campaignID)
		logger.FromContext(ctx).Debug("No pending contact available",
			zap.String("campaign_id", campaignID))
		return nil, nil, nil
	}

	observer.IncLeaseGranted(campaignID)
	logger.FromContext(ctx).Info("Contact leased",
		zap.String("campaign_id", campaignID),
		zap.String("contact_id", contact.ID))
	return contact, campaign, nil
}

// SaveCampaign upserts a campaign and fully replaces its agent assignment
// set. An empty existingID inserts; otherwise the identified row is updated.
func (s *DialerService) SaveCampaign(ctx context.Context, campaign model.Campaign, existingID string) (*model.Campaign, error) {
	if !s.capability.IsOperationPermitted(OperationSaveCampaign) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotPermitted, OperationSaveCampaign)
	}

	if err := validator.Validate(campaign); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}
	if campaign.DialingMode != "" && !campaign.DialingMode.Valid() {
		return nil, fmt.Errorf("%w: invalid dialing mode %q", apperrors.ErrValidation, campaign.DialingMode)
	}
	if existingID == "" && campaign.ID == "" {
		return nil, fmt.Errorf("%w: new campaigns need a caller-supplied id", apperrors.ErrBadRequest)
	}

	saved, err := s.campaignRepo.Save(ctx, campaign, existingID)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Campaign saved",
		zap.String("campaign_id", saved.ID),
		zap.Int("assigned_agents", len(saved.AgentIDs)),
		zap.Bool("created", existingID == ""))
	return saved, nil
}

// QualifyContact records the qualification outcome for a worked contact:
// status transition plus one immutable call-history record, atomically. The
// committed record is handed to the notifier afterwards, outside the
// transaction.
func (s *DialerService) QualifyContact(ctx context.Context, contactID, qualificationID, campaignID, agentID string) error {
	if !s.capability.IsOperationPermitted(OperationQualifyContact) {
		return fmt.Errorf("%w: %s", apperrors.ErrNotPermitted, OperationQualifyContact)
	}
	if contactID == "" || agentID == "" {
		return fmt.Errorf("%w: contactID and agentID are required", apperrors.ErrBadRequest)
	}

	record, err := s.historyRepo.Qualify(ctx, contactID, qualificationID, campaignID, agentID)
	if err != nil {
		return err
	}

	observer.IncQualificationRecorded(campaignID)
	logger.FromContext(ctx).Info("Contact qualified",
		zap.String("contact_id", contactID),
		zap.String("agent_id", agentID),
		zap.String("qualification_id", qualificationID))

	s.notifier.NotifyQualified(ctx, *record)
	return nil
}

// UpdateContactFields edits contact data fields by logical field name.
// Standard fields are translated to their storage columns; unknown fields
// merge into the custom-fields document. Lifecycle state is out of reach:
// status never changes through this path.
func (s *DialerService) UpdateContactFields(ctx context.Context, contactID string, fields map[string]string) error {
	if contactID == "" {
		return fmt.Errorf("%w: contactID is required", apperrors.ErrBadRequest)
	}

	columns := make(map[string]interface{})
	custom := make(map[string]interface{})
	for fieldID, value := range fields {
		switch fieldID {
		case "id", "status", "campaignId":
			return fmt.Errorf("%w: field %q cannot be edited", apperrors.ErrBadRequest, fieldID)
		}
		if col, ok := fieldmap.ColumnForField(fieldID); ok {
			if fieldID == fieldmap.FieldPhoneNumber && !isValidPhoneNumber(value) {
				return fmt.Errorf("%w: %s", apperrors.ErrValidation, model.RejectReasonInvalidPhone)
			}
			columns[col] = value
			continue
		}
		custom[fieldID] = value
	}

	contact, err := s.contactRepo.FindByID(ctx, contactID)
	if err != nil {
		return err
	}
	if err := s.contactRepo.UpdateFields(ctx, contactID, columns, custom); err != nil {
		return err
	}

	// The edit may have rewritten dedup key material of stored rows.
	s.dedup.InvalidateCampaign(contact.CampaignID, "")
	return nil
}
