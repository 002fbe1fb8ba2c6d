package sqlutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeRoundTrip(t *testing.T) {
	assert.Nil(t, FromSqlTime(ToSqlTime(nil)))

	now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	got := FromSqlTime(ToSqlTime(&now))
	assert.Equal(t, now, *got)
}

func TestNullRawMessage(t *testing.T) {
	assert.False(t, ToNullRawMessage(nil).Valid)
	assert.Nil(t, FromNullRawMessage(ToNullRawMessage(nil)))

	doc := json.RawMessage(`{"a":1}`)
	v := ToNullRawMessage(doc)
	assert.True(t, v.Valid)
	assert.JSONEq(t, `{"a":1}`, string(FromNullRawMessage(v)))
}
