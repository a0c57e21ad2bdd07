package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCachedItem(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ci CachedItem
	assert.True(t, ci.NeedUpdate(now))
	ci.Update(now, nil)
	assert.False(t, ci.NeedUpdate(now.Add(InterfaceListTTL-time.Second)))
	assert.True(t, ci.NeedUpdate(now.Add(InterfaceListTTL)))
	ci.Invalidate()
	assert.True(t, ci.NeedUpdate(now))
}

func TestCachedItemFailedRefresh(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ci := CachedItem{TTL: time.Hour}
	ci.Update(now, errors.New("no interfaces"))
	assert.False(t, ci.NeedUpdate(now.Add(FailedRefreshTTL-time.Second)))
	assert.True(t, ci.NeedUpdate(now.Add(FailedRefreshTTL)))

	short := CachedItem{TTL: time.Second}
	short.Update(now, errors.New("no interfaces"))
	assert.True(t, short.NeedUpdate(now.Add(time.Second)))
}
