package orders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderNumber(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		number, err := GenerateOrderNumber()
		require.NoError(t, err)
		assert.Len(t, number, 6)
		for _, r := range number {
			assert.True(t, strings.ContainsRune(orderNumberAlphabet, r),
				"unexpected character %q in %s", r, number)
		}
		seen[number] = true
	}
	// 36^6 codes; 100 draws colliding would point at a broken generator.
	assert.Greater(t, len(seen), 95)
}

func TestValidStatus(t *testing.T) {
	for _, status := range []string{
		StatusPending, StatusConfirmed, StatusPaid, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded,
	} {
		assert.True(t, ValidStatus(status), status)
	}
	assert.False(t, ValidStatus(""))
	assert.False(t, ValidStatus("CONFIRMED"))
	assert.False(t, ValidStatus("returned"))
}
