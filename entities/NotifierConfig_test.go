package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateNotifyURL(t *testing.T) {
	u, err := ValidateNotifyURL("")
	assert.NoError(t, err)
	assert.Empty(t, u)
	u, err = ValidateNotifyURL("http://collector:8080/datagrams")
	assert.NoError(t, err)
	assert.Equal(t, "http://collector:8080/datagrams", u)
	_, err = ValidateNotifyURL("ftp://collector/datagrams")
	assert.Error(t, err)
	_, err = ValidateNotifyURL("collector")
	assert.Error(t, err)
	assert.False(t, NotificationConfig{}.Enabled())
	assert.True(t, NotificationConfig{URL: u}.Enabled())
}
