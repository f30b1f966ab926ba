package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"A2A-Supervisor/internal/protocol"
)

func newEchoAgent() *Base {
	return NewBase("echo-agent", map[string]MethodFunc{
		"echo": func(_ context.Context, params map[string]any) (any, error) {
			value, err := RequireString(params, "text")
			if err != nil {
				return nil, err
			}
			return map[string]any{"text": value}, nil
		},
		"boom": func(context.Context, map[string]any) (any, error) {
			panic("kaboom")
		},
		"typed": func(context.Context, map[string]any) (any, error) {
			return nil, protocol.NewError(-32099, "custom")
		},
		"": func(context.Context, map[string]any) (any, error) { return nil, nil },
	})
}

func TestSupportedMethodsAreFixed(t *testing.T) {
	ag := newEchoAgent()
	methods := ag.SupportedMethods()
	assert.Equal(t, []string{"boom", "echo", "typed"}, methods)

	methods[0] = "mutated"
	assert.Equal(t, []string{"boom", "echo", "typed"}, ag.SupportedMethods())
}

func TestInvokeUnknownMethod(t *testing.T) {
	_, err := newEchoAgent().Invoke(context.Background(), "nope", nil)

	var rpcErr *protocol.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, protocol.CodeMethodNotFound, rpcErr.Code)
	assert.Equal(t, "Method 'nope' not found", rpcErr.Message)
}

func TestInvokeTranslatesFailures(t *testing.T) {
	ag := newEchoAgent()

	t.Run("missing parameter", func(t *testing.T) {
		_, err := ag.Invoke(context.Background(), "echo", map[string]any{})
		rpcErr := AsRPCError(err)
		require.NotNil(t, rpcErr)
		assert.Equal(t, protocol.CodeInvocationFailed, rpcErr.Code)
		assert.Equal(t, "Missing 'text' parameter.", rpcErr.Message)
	})

	t.Run("panic", func(t *testing.T) {
		_, err := ag.Invoke(context.Background(), "boom", nil)
		rpcErr := AsRPCError(err)
		require.NotNil(t, rpcErr)
		assert.Equal(t, protocol.CodeInvocationFailed, rpcErr.Code)
		assert.Equal(t, "kaboom", rpcErr.Message)
	})

	t.Run("typed error kept", func(t *testing.T) {
		_, err := ag.Invoke(context.Background(), "typed", nil)
		assert.Equal(t, -32099, AsRPCError(err).Code)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := ag.Invoke(context.Background(), "echo", map[string]any{"text": 42})
		assert.Contains(t, AsRPCError(err).Message, "Invalid 'text' parameter")
	})
}

func TestHandleRoundTripsID(t *testing.T) {
	ag := newEchoAgent()
	req := protocol.NewRequest("req-1", "echo", map[string]any{"text": "hi"})

	resp := Handle(context.Background(), ag, req)
	require.True(t, resp.OK())
	assert.Equal(t, "req-1", resp.ID)
	assert.Equal(t, map[string]any{"text": "hi"}, resp.Result)

	failed := Handle(context.Background(), ag, protocol.NewRequest("req-2", "echo", nil))
	require.False(t, failed.OK())
	assert.Nil(t, failed.Result)
	assert.Equal(t, "req-2", failed.ID)
	assert.Equal(t, protocol.CodeInvocationFailed, failed.Error.Code)
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "echo-agent", NameOf(newEchoAgent()))
}
