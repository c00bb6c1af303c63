package ids

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Format(t *testing.T) {
	id := New(Bike)
	require.True(t, strings.HasPrefix(id, "bike-"))
	_, err := uuid.Parse(strings.TrimPrefix(id, "bike-"))
	assert.NoError(t, err)
}

func TestNew_UniqueUnderRapidCalls(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := New(Payment)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
