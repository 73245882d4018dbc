package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileServicePattern(t *testing.T) {
	re, err := CompileServicePattern("web-*")
	require.NoError(t, err)
	assert.True(t, re.MatchString("web-1"))
	assert.True(t, re.MatchString("web-prod-eu"))
	assert.False(t, re.MatchString("db-1"))
	assert.False(t, re.MatchString("prefix-web-1"), "pattern is anchored at both ends")

	re, err = CompileServicePattern("*-prod")
	require.NoError(t, err)
	assert.True(t, re.MatchString("api-prod"))
	assert.False(t, re.MatchString("api-prod-2"))

	// Regex metacharacters in the pattern are not escaped: a dot matches
	// any character, not only a literal dot.
	re, err = CompileServicePattern("web.1-*")
	require.NoError(t, err)
	assert.True(t, re.MatchString("web.1-a"))
	assert.True(t, re.MatchString("webX1-a"))
	assert.False(t, re.MatchString("webXY-a"), "dot matches exactly one character")

	_, err = CompileServicePattern("web-[*")
	assert.Error(t, err)
}

func TestAlertRuleValidate(t *testing.T) {
	valid := NewAlertRule("high-cpu", "cpu_usage", OperatorGT, 90, AlertLevelCritical, "*")
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*AlertRule)
		field  string
	}{
		{"missing name", func(r *AlertRule) { r.Name = "" }, "name"},
		{"missing metric", func(r *AlertRule) { r.MetricName = "" }, "metricName"},
		{"bad operator", func(r *AlertRule) { r.Operator = "between" }, "operator"},
		{"bad level", func(r *AlertRule) { r.Level = "severe" }, "level"},
		{"nan threshold", func(r *AlertRule) { r.Threshold = math.NaN() }, "threshold"},
		{"inf threshold", func(r *AlertRule) { r.Threshold = math.Inf(1) }, "threshold"},
		{"empty pattern", func(r *AlertRule) { r.ServicePattern = "" }, "servicePattern"},
		{"broken pattern", func(r *AlertRule) { r.ServicePattern = "web-[*" }, "servicePattern"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := NewAlertRule("high-cpu", "cpu_usage", OperatorGT, 90, AlertLevelCritical, "*")
			tc.mutate(rule)

			err := rule.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestOperatorWord(t *testing.T) {
	assert.Equal(t, "above", OperatorGT.Word())
	assert.Equal(t, "below", OperatorLT.Word())
	assert.Equal(t, "at or above", OperatorGE.Word())
	assert.Equal(t, "at or below", OperatorLE.Word())
	assert.Equal(t, "equal to", OperatorEQ.Word())
	assert.Equal(t, "not equal to", OperatorNEQ.Word())
}

func TestNewAlertIsUnresolvedAndUnacknowledged(t *testing.T) {
	rule := NewAlertRule("high-cpu", "cpu_usage", OperatorGT, 90, AlertLevelCritical, "*")
	metric := NewMetric("cpu_usage", MetricKindGauge, 95, "%", "web-1")

	alert := NewAlert(rule, metric, "msg")
	assert.True(t, alert.Active())
	assert.False(t, alert.Acknowledged)
	assert.Equal(t, rule.Threshold, alert.Threshold)
	assert.Equal(t, metric.Value, alert.CurrentValue)
}

func TestMetricValidate(t *testing.T) {
	metric := NewMetric("cpu_usage", MetricKindGauge, 50, "%", "web-1")
	require.NoError(t, metric.Validate())

	metric.Value = math.Inf(-1)
	assert.Error(t, metric.Validate())
}
