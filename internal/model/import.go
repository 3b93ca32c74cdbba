package model

// Rejection reasons surfaced in ImportOutcome. These are row-level
// classifications, not errors.
const (
	RejectReasonInvalidPhone = "invalid phone number"
	RejectReasonDuplicate    = "duplicate"
)

// ImportRecord is one row of a bulk contact import, keyed by logical field
// name (phoneNumber, firstName, ...). Keys that do not map to a standard
// storage column pass through as custom fields.
type ImportRecord map[string]string

// DedupConfig controls duplicate detection during import. FieldIDs is the
// ordered set of logical field names composing the dedup key.
type DedupConfig struct {
	Enabled  bool     `json:"enabled"`
	FieldIDs []string `json:"field_ids"`
}

// RejectedRecord pairs an input row with its human-readable rejection reason.
type RejectedRecord struct {
	Record ImportRecord `json:"record"`
	Reason string       `json:"reason"`
}

// ImportOutcome is the transient result of one import call. Accepted and
// Rejected both preserve input order. Accepted reflects only rows that were
// durably committed.
type ImportOutcome struct {
	Accepted []Contact        `json:"accepted"`
	Rejected []RejectedRecord `json:"rejected"`
}
