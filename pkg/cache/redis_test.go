package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "educollab:schedule:s1:*", Key("schedule", "s1", "*"))
	assert.Equal(t, "educollab:summary", Key("summary"))
}
