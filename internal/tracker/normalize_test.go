package tracker

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRows(t *testing.T, body string) []Raw {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var rows []Raw
	require.NoError(t, dec.Decode(&rows))
	return rows
}

func TestNormalizeState_MixedShapes(t *testing.T) {
	millis := t0.UnixMilli()
	rows := decodeRows(t, `[
		{"user_id":"`+userA.String()+`","project_id":"`+projA.String()+`","current_day_seconds":"3000","running_since":"`+itoa(millis)+`","hidden_by_user":"1"},
		{"userId":"`+userA.String()+`","projectId":"`+projB.String()+`","baseSeconds":42,"runningSince":null,"sessionComment":"review"},
		{"user_id":"`+userA.String()+`","project_id":"`+projC.String()+`","base_seconds":"abc","running_since":"not a date"},
		{"user_id":"bad","project_id":"`+projC.String()+`"}
	]`)

	states := NormalizeStates(rows)
	require.Len(t, states, 3)

	a := states[0]
	assert.Equal(t, int64(3000), a.BaseSeconds)
	require.NotNil(t, a.RunningSince)
	assert.True(t, t0.Equal(*a.RunningSince))
	assert.True(t, a.IsHiddenForUser)

	b := states[1]
	assert.Equal(t, projB, b.ProjectID)
	assert.Equal(t, int64(42), b.BaseSeconds)
	assert.Nil(t, b.RunningSince)
	require.NotNil(t, b.SessionComment)
	assert.Equal(t, "review", *b.SessionComment)

	c := states[2]
	assert.Equal(t, int64(0), c.BaseSeconds)
	assert.Nil(t, c.RunningSince)
}

func TestNormalizeState_Timestamps(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  *time.Time
	}{
		{name: "rfc3339", value: "2024-06-01T09:00:00Z", want: &t0},
		{name: "millis number", value: json.Number(itoa(t0.UnixMilli())), want: &t0},
		{name: "millis float", value: float64(t0.UnixMilli()), want: &t0},
		{name: "zero", value: "0", want: nil},
		{name: "empty", value: "", want: nil},
		{name: "null text", value: "null", want: nil},
		{name: "garbage", value: "soon", want: nil},
		{name: "bool", value: true, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := NormalizeState(Raw{"user_id": userA.String(), "project_id": projA.String(), "running_since": tt.value})
			require.True(t, ok)
			if tt.want == nil {
				assert.Nil(t, s.RunningSince)
				return
			}
			require.NotNil(t, s.RunningSince)
			assert.True(t, tt.want.Equal(*s.RunningSince))
		})
	}
}

func TestNormalizeState_NegativeBaseClamped(t *testing.T) {
	s, ok := NormalizeState(Raw{"userId": userA.String(), "projectId": projA.String(), "baseSeconds": -12.0})
	require.True(t, ok)
	assert.Equal(t, int64(0), s.BaseSeconds)
}

func TestNormalizeLogs(t *testing.T) {
	rows := decodeRows(t, `[
		{"id":"`+projC.String()+`","userId":"`+userA.String()+`","projectId":"`+projA.String()+`","projectName":"Alpha","date":"2024-05-31","duration":"3600","type":"manual","comment":""},
		{"id":"`+projB.String()+`","user_id":"`+userA.String()+`","project_id":"`+projA.String()+`","date":"2024-05-31","duration_seconds":0},
		{"id":"`+projA.String()+`","user_id":"`+userA.String()+`","project_id":"`+projA.String()+`","date":"2024-05-31","duration_seconds":5,"kind":"weird"}
	]`)

	logs := NormalizeLogs(rows)
	require.Len(t, logs, 2)
	assert.Equal(t, int64(3600), logs[0].DurationSeconds)
	assert.Equal(t, "MANUAL", string(logs[0].Kind))
	assert.Equal(t, "Alpha", logs[0].ProjectName)
	assert.Nil(t, logs[0].Comment)
	assert.Equal(t, "NORMAL", string(logs[1].Kind))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
