package exception

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomErrorMessage(t *testing.T) {
	err := &CustomError{
		Status:  http.StatusNotFound,
		Code:    DatagramNotFound,
		Message: DatagramNotFoundMsg,
		Params:  map[string]interface{}{"key": "s1_0001"},
	}
	assert.Equal(t, "datagram s1_0001 not found", err.Error())
	err.Debug = "archive miss"
	assert.Equal(t, "datagram s1_0001 not found (archive miss)", err.Error())
}
