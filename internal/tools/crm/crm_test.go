package crm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSourceHistory(t *testing.T) {
	resp, err := MockSource{}.Fetch(context.Background(), "Jane Smith")
	require.NoError(t, err)

	history, ok := resp.Result.(History)
	require.True(t, ok)
	assert.Equal(t, "Jane Smith", history.ContactName)
	require.Len(t, history.Interactions, 2)
	for _, item := range history.Interactions {
		assert.NotEmpty(t, item.Date)
		assert.NotEmpty(t, item.Type)
		assert.NotEmpty(t, item.Note)
	}
}

func TestMockSourceLatencyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MockSource{Latency: time.Second}.Fetch(ctx, "John Doe")
	assert.ErrorIs(t, err, context.Canceled)
}
