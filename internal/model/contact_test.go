package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactStatusValid(t *testing.T) {
	assert.True(t, ContactStatusPending.Valid())
	assert.True(t, ContactStatusCalled.Valid())
	assert.True(t, ContactStatusQualified.Valid())
	assert.True(t, ContactStatusExcluded.Valid())
	assert.False(t, ContactStatus("archived").Valid())
	assert.False(t, ContactStatus("").Valid())
}

func TestContactStatusTransitions(t *testing.T) {
	// The lifecycle moves forward only
	assert.True(t, ContactStatusPending.CanTransitionTo(ContactStatusCalled))
	assert.True(t, ContactStatusCalled.CanTransitionTo(ContactStatusQualified))

	assert.False(t, ContactStatusPending.CanTransitionTo(ContactStatusQualified))
	assert.False(t, ContactStatusCalled.CanTransitionTo(ContactStatusPending))
	assert.False(t, ContactStatusQualified.CanTransitionTo(ContactStatusCalled))
	assert.False(t, ContactStatusQualified.CanTransitionTo(ContactStatusPending))
	assert.False(t, ContactStatusExcluded.CanTransitionTo(ContactStatusCalled))
}

func TestContactStatusScan(t *testing.T) {
	var s ContactStatus
	require.NoError(t, s.Scan("called"))
	assert.Equal(t, ContactStatusCalled, s)

	require.NoError(t, s.Scan([]byte("qualified")))
	assert.Equal(t, ContactStatusQualified, s)

	require.NoError(t, s.Scan(nil))
	assert.Equal(t, ContactStatus(""), s)

	assert.Error(t, s.Scan(42))
}

func TestContactStatusValue(t *testing.T) {
	v, err := ContactStatusPending.Value()
	require.NoError(t, err)
	assert.Equal(t, "pending", v)

	_, err = ContactStatus("archived").Value()
	assert.Error(t, err)
}

func TestDialingModeValid(t *testing.T) {
	assert.True(t, DialingModePredictive.Valid())
	assert.True(t, DialingModeProgressive.Valid())
	assert.True(t, DialingModeManual.Valid())
	assert.False(t, DialingMode("TURBO").Valid())
}

func TestQuotaRulesRoundTrip(t *testing.T) {
	rules := QuotaRules{
		SchemaVersion: 1,
		Enabled:       true,
		Rules: []QuotaRule{
			{FieldID: "postalCode", Operator: "equals", Value: "75011", Limit: 100},
		},
	}

	v, err := rules.Value()
	require.NoError(t, err)

	var decoded QuotaRules
	require.NoError(t, decoded.Scan(v))
	assert.Equal(t, rules, decoded)
}

func TestQuotaRulesValueDefaultsSchemaVersion(t *testing.T) {
	v, err := QuotaRules{Enabled: true}.Value()
	require.NoError(t, err)

	var decoded QuotaRules
	require.NoError(t, decoded.Scan(v))
	assert.Equal(t, 1, decoded.SchemaVersion)
}

func TestFilterRulesScanNil(t *testing.T) {
	var rules FilterRules
	require.NoError(t, rules.Scan(nil))
	assert.Equal(t, 1, rules.SchemaVersion)
	assert.Empty(t, rules.Clauses)
}
