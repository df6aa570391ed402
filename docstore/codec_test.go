// ABOUTME: Tests for the document codec and Timestamp type
// ABOUTME: Covers sentinel resolution, nested values and JSON round trips
package docstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampJSON(t *testing.T) {
	when := time.Date(2024, 2, 29, 23, 59, 58, 123456789, time.UTC)
	ts := TimestampOf(when)

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_ts":"2024-02-29T23:59:58.123456789Z"}`, string(data))

	var back Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ts, back)
	assert.True(t, when.Equal(back.Time()))
}

func TestTimestampUnmarshalRejectsOtherShapes(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`{"seconds":1}`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`"2024-01-01"`), &ts))
}

func TestTimestampOfNonUTC(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	when := time.Date(2024, 1, 1, 6, 0, 0, 0, loc)
	assert.Equal(t, "2024-01-01T12:00:00.000000000Z", TimestampOf(when).String())
}

func TestEncodeDecode(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fields := Fields{
		"name":      "Acme",
		"retainer":  100,
		"active":    true,
		"missing":   nil,
		"createdAt": ServerTimestamp,
		"contract":  now.Add(-time.Hour),
		"tags":      []interface{}{"a", ServerTimestamp},
		"aiAnalysis": map[string]interface{}{
			"lastAnalyzed": ServerTimestamp,
			"riskFactors":  []string{"late"},
		},
	}

	data, err := Encode(fields, now)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "Acme", got["name"])
	assert.Equal(t, float64(100), got["retainer"])
	assert.Equal(t, true, got["active"])
	assert.Nil(t, got["missing"])
	assert.Equal(t, TimestampOf(now), got["createdAt"])
	assert.Equal(t, TimestampOf(now.Add(-time.Hour)), got["contract"])
	assert.Equal(t, []interface{}{"a", TimestampOf(now)}, got["tags"])

	nested := got["aiAnalysis"].(map[string]interface{})
	assert.Equal(t, TimestampOf(now), nested["lastAnalyzed"])
	assert.Equal(t, []interface{}{"late"}, nested["riskFactors"])
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	dst := Fields{"a": 1, "b": map[string]interface{}{"x": 1}}
	got := Merge(dst, Fields{"b": map[string]interface{}{"y": 2}, "c": 3})
	assert.Equal(t, Fields{"a": 1, "b": map[string]interface{}{"y": 2}, "c": 3}, got)

	assert.Equal(t, Fields{"a": 1}, Merge(nil, Fields{"a": 1}))
}
