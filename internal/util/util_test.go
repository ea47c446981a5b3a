package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewULID(t *testing.T) {
	a, b := NewULID(), NewULID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
	assert.True(t, IsULID(a))
	assert.False(t, IsULID("not-a-ulid"))
}

func TestSQLHelpers(t *testing.T) {
	assert.False(t, StringToNullString("").Valid)
	assert.Equal(t, "x", StringToNullString("x").String)

	now := time.Now()
	assert.False(t, TimePtrToNullTime(nil).Valid)
	nt := TimePtrToNullTime(&now)
	assert.True(t, nt.Valid)
	assert.Equal(t, now, *NullTimeToPtr(nt))
	assert.Nil(t, NullTimeToPtr(TimePtrToNullTime(nil)))

	assert.Equal(t, 1, BoolToFlag(true))
	assert.Equal(t, 0, BoolToFlag(false))
	assert.True(t, FlagToBool(1))
	assert.False(t, FlagToBool(0))
}
