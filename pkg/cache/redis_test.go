package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "memo:academic:structure", Key("academic", "structure"))
	assert.Equal(t, "memo:subjects:_:7", Key("subjects", "", "7"))
}
