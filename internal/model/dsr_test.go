package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-04-24 ")
	require.NoError(t, err)
	assert.Equal(t, "2025-04-24", d.String())

	_, err = ParseDate("24/04/2025")
	assert.Error(t, err)
}

func TestDateOf_TruncatesToUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	d := DateOf(time.Date(2025, 4, 25, 2, 30, 0, 0, loc))
	assert.Equal(t, "2025-04-24", d.String())
}

func TestCaps(t *testing.T) {
	assert.False(t, OverRecordCap(8))
	assert.True(t, OverRecordCap(8.0000000001))
	assert.False(t, OverDailyCap(8.0000000001))
	assert.True(t, OverDailyCap(8.01))
}

func TestDSR_JSONShape(t *testing.T) {
	d, _ := ParseDate("2025-04-24")
	out, err := json.Marshal(DSR{ID: 3, UserID: 7, Project: "apollo", Date: d, EstimatedHour: 6, Description: "api"})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "2025-04-24", m["date"])
	assert.Equal(t, float64(7), m["userId"])
	assert.Equal(t, float64(6), m["estimatedHour"])
}

func TestUser_HidesPasswordHash(t *testing.T) {
	out, err := json.Marshal(User{ID: 1, Email: "a@b.c", PasswordHash: "$2a$10$secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
	assert.Contains(t, string(out), `"profilePicture":null`)
}
