package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlertType(t *testing.T) {
	tests := []struct {
		raw     string
		want    AlertType
		wantErr bool
	}{
		{"HIGH_FALSE_POSITIVE_RATE", AlertHighFalsePositiveRate, false},
		{"high_bot_activity", AlertHighBotActivity, false},
		{"  THRESHOLD_DRIFT ", AlertThresholdDrift, false},
		{"ANOMALY_DETECTED", AlertAnomalyDetected, false},
		{"DISK_FULL", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAlertType(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAlertType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity("")
	require.NoError(t, err)
	assert.Equal(t, SeverityInfo, s)

	s, err = ParseSeverity("ERROR")
	require.NoError(t, err)
	assert.Equal(t, SeverityError, s)

	_, err = ParseSeverity("critical")
	assert.ErrorIs(t, err, ErrInvalidSeverity)
}

func TestBuiltinAlertDefaults(t *testing.T) {
	defaults := BuiltinAlertDefaults()

	expected := map[AlertType][2]float64{
		AlertHighFalsePositiveRate: {10, 60},
		AlertHighBotActivity:       {200, 60},
		AlertThresholdDrift:        {80, 240},
		AlertAnomalyDetected:       {50, 120},
	}

	rules := defaults.Rules()
	require.Len(t, rules, 4)
	for _, rule := range rules {
		want := expected[rule.Type]
		assert.True(t, rule.IsEnabled())
		assert.Equal(t, want[0], *rule.Threshold)
		assert.Equal(t, int(want[1]), *rule.CooldownMinutes)
		assert.Nil(t, rule.LastTriggered)
	}
}

func TestAlertRule_MergeDefaultsFillsOnlyMissingFields(t *testing.T) {
	disabled := false
	rule := &AlertRule{Type: AlertThresholdDrift, Enabled: &disabled}

	require.NoError(t, rule.MergeDefaults(BuiltinAlertDefaults()))

	assert.False(t, rule.IsEnabled())
	assert.Equal(t, 80.0, *rule.Threshold)
	assert.Equal(t, 240, *rule.CooldownMinutes)
	assert.Equal(t, 240*time.Minute, rule.Cooldown())
}

func TestAlertRule_MergeDefaultsUnknownType(t *testing.T) {
	rule := &AlertRule{Type: "NOPE"}
	assert.ErrorIs(t, rule.MergeDefaults(BuiltinAlertDefaults()), ErrInvalidAlertType)
}

func TestAlertRule_CloneIsDeep(t *testing.T) {
	rule, err := BuiltinAlertDefaults().Rule(AlertHighBotActivity)
	require.NoError(t, err)
	now := time.Now()
	rule.LastTriggered = &now

	clone := rule.Clone()
	*clone.CooldownMinutes = 5
	*clone.LastTriggered = now.Add(time.Hour)

	assert.Equal(t, 60, *rule.CooldownMinutes)
	assert.Equal(t, now, *rule.LastTriggered)
}

func TestAlertData_ScanValue(t *testing.T) {
	data := AlertData{"rate": 12.5, "source": "detector"}

	value, err := data.Value()
	require.NoError(t, err)

	var scanned AlertData
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, data, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestNewNotification_SeverityPresentation(t *testing.T) {
	event := &AlertEvent{
		ID:       uuid.New(),
		Type:     AlertHighBotActivity,
		Message:  "bot traffic at 250 req/min",
		Severity: SeverityError,
	}

	n := NewNotification(event)
	assert.Equal(t, "High bot activity", n.Title)
	assert.Equal(t, event.Message, n.Body)
	assert.True(t, n.RequireInteraction)

	event.Severity = SeverityWarning
	assert.False(t, NewNotification(event).RequireInteraction)
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityInfo.Rank(), SeverityWarning.Rank())
	assert.Less(t, SeverityWarning.Rank(), SeverityError.Rank())
}
