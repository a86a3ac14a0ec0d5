package elevate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireMatchesIsPrivileged(t *testing.T) {
	if IsPrivileged() {
		assert.NoError(t, Require())
	} else {
		assert.Error(t, Require())
	}
}
