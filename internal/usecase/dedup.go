package usecase

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/fieldmap"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
)

// dedupKeySeparator joins field values inside a dedup key. The unit
// separator cannot appear in user data coming from the API boundary, so
// concatenation of different value splits cannot collide.
const dedupKeySeparator = "\x1f"

// DedupKeyForRecord derives the composite dedup key of an import record:
// the ordered concatenation of the configured logical fields' values,
// missing values as empty string.
func DedupKeyForRecord(record model.ImportRecord, fieldIDs []string) string {
	values := make([]string, len(fieldIDs))
	for i, fieldID := range fieldIDs {
		values[i] = record[fieldID]
	}
	return strings.Join(values, dedupKeySeparator)
}

// DedupKeyForContact derives the dedup key of a stored contact using the
// same key function as DedupKeyForRecord.
func DedupKeyForContact(contact model.Contact, fieldIDs []string) string {
	values := make([]string, len(fieldIDs))
	for i, fieldID := range fieldIDs {
		values[i] = contactFieldValue(contact, fieldID)
	}
	return strings.Join(values, dedupKeySeparator)
}

func contactFieldValue(contact model.Contact, fieldID string) string {
	switch fieldID {
	case fieldmap.FieldPhoneNumber:
		return contact.PhoneNumber
	case fieldmap.FieldFirstName:
		return contact.FirstName
	case fieldmap.FieldLastName:
		return contact.LastName
	case fieldmap.FieldPostalCode:
		return contact.PostalCode
	default:
		if contact.CustomFields == nil {
			return ""
		}
		switch v := contact.CustomFields[fieldID].(type) {
		case nil:
			return ""
		case string:
			return v
		default:
			return fmt.Sprint(v)
		}
	}
}

// isValidPhoneNumber reports whether the phone value is non-empty and
// digits-only.
func isValidPhoneNumber(phone string) bool {
	if phone == "" {
		return false
	}
	for i := 0; i < len(phone); i++ {
		if phone[i] < '0' || phone[i] > '9' {
			return false
		}
	}
	return true
}

// ClassifyRecords runs the pure half of the import pipeline: phone
// validation and duplicate detection over the input records, in input order.
// existingKeys seeds the running key set with the keys of already-stored
// contacts; records accepted earlier in the same batch extend it, so
// within-batch duplicates are rejected too. No I/O happens here.
func ClassifyRecords(campaignID string, records []model.ImportRecord, cfg model.DedupConfig, existingKeys map[string]struct{}) ([]model.Contact, []model.RejectedRecord) {
	staged := make([]model.Contact, 0, len(records))
	rejected := make([]model.RejectedRecord, 0)

	seen := make(map[string]struct{}, len(existingKeys)+len(records))
	for k := range existingKeys {
		seen[k] = struct{}{}
	}

	for _, record := range records {
		if !isValidPhoneNumber(record[fieldmap.FieldPhoneNumber]) {
			rejected = append(rejected, model.RejectedRecord{Record: record, Reason: model.RejectReasonInvalidPhone})
			continue
		}

		if cfg.Enabled {
			key := DedupKeyForRecord(record, cfg.FieldIDs)
			if _, dup := seen[key]; dup {
				rejected = append(rejected, model.RejectedRecord{Record: record, Reason: model.RejectReasonDuplicate})
				continue
			}
			seen[key] = struct{}{}
		}

		staged = append(staged, contactFromRecord(campaignID, record))
	}

	return staged, rejected
}

// contactFromRecord builds a pending contact from a logical-field-keyed
// record. Standard fields land in their columns; everything else goes into
// the custom-fields document, which defaults to an empty map.
func contactFromRecord(campaignID string, record model.ImportRecord) model.Contact {
	custom := datatypes.JSONMap{}
	contact := model.Contact{
		ID:         uuid.New().String(),
		CampaignID: campaignID,
		Status:     model.ContactStatusPending,
	}
	for fieldID, value := range record {
		switch fieldID {
		case fieldmap.FieldPhoneNumber:
			contact.PhoneNumber = value
		case fieldmap.FieldFirstName:
			contact.FirstName = value
		case fieldmap.FieldLastName:
			contact.LastName = value
		case fieldmap.FieldPostalCode:
			contact.PostalCode = value
		default:
			custom[fieldID] = value
		}
	}
	contact.CustomFields = custom
	return contact
}
