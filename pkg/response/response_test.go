package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopes(t *testing.T) {
	ok := Success(200, map[string]int{"n": 1})
	assert.Equal(t, "success", ok.Status)
	assert.Empty(t, ok.Error)

	bad := Error(409, "stale")
	assert.Equal(t, "error", bad.Status)
	assert.Nil(t, bad.Data)
	assert.Nil(t, bad.Details)
}

func TestErrorWithDetails(t *testing.T) {
	raw, err := json.Marshal(ErrorWithDetails(409, "stale", map[string]interface{}{"current_status": "accepted"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","status_code":409,"error":"stale","details":{"current_status":"accepted"}}`, string(raw))

	raw, err = json.Marshal(ErrorWithDetails(400, "bad", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","status_code":400,"error":"bad"}`, string(raw))
}
