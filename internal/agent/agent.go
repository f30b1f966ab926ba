package agent

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"

	"A2A-Supervisor/internal/protocol"
)

// Agent 是所有领域智能体需要实现的能力接口。
//
// Invoke 不允许让任何故障逃逸：未知方法与执行失败都以 *protocol.RPCError 的形式返回。
type Agent interface {
	SupportedMethods() []string
	Invoke(ctx context.Context, method string, params map[string]any) (any, error)
}

// Named 由能够报告自身标识的智能体实现。
type Named interface {
	Name() string
}

// MethodFunc 是方法表中的单个可调用操作。
type MethodFunc func(ctx context.Context, params map[string]any) (any, error)

// Base 基于固定方法表实现 Agent，具体智能体通过组合 Base 获得统一的错误转换。
type Base struct {
	name    string
	methods map[string]MethodFunc
	names   []string
}

// NewBase 创建方法表，构造之后不再变化。
func NewBase(name string, methods map[string]MethodFunc) *Base {
	table := make(map[string]MethodFunc, len(methods))
	names := make([]string, 0, len(methods))
	for method, fn := range methods {
		if strings.TrimSpace(method) == "" || fn == nil {
			continue
		}
		table[method] = fn
		names = append(names, method)
	}
	sort.Strings(names)
	return &Base{name: name, methods: table, names: names}
}

// Name 返回智能体标识。
func (b *Base) Name() string {
	return b.name
}

// SupportedMethods 返回方法名列表的副本。
func (b *Base) SupportedMethods() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Invoke 查找并执行方法，把所有失败转换为结构化错误。
func (b *Base) Invoke(ctx context.Context, method string, params map[string]any) (result any, err error) {
	fn, ok := b.methods[method]
	if !ok {
		return nil, protocol.Errorf(protocol.CodeMethodNotFound, "Method '%s' not found", method)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = protocol.NewError(protocol.CodeInvocationFailed, fmt.Sprint(r))
		}
	}()

	result, err = fn(ctx, protocol.CloneParams(params))
	if err != nil {
		return nil, AsRPCError(err)
	}
	return result, nil
}

// AsRPCError 将任意错误转换为 -32000 的 RPCError；已经是 RPCError 的保持原样。
func AsRPCError(err error) *protocol.RPCError {
	if err == nil {
		return nil
	}
	var rpcErr *protocol.RPCError
	if stdErrors.As(err, &rpcErr) {
		return rpcErr
	}
	return protocol.NewError(protocol.CodeInvocationFailed, err.Error())
}

// Handle 以请求/响应信封的形式调用智能体，响应 ID 始终与请求一致。
func Handle(ctx context.Context, ag Agent, req protocol.TaskRequest) protocol.TaskResponse {
	if ag == nil {
		return protocol.Failure(req.ID, protocol.Errorf(protocol.CodeMethodNotFound, "Method %s not found", req.Method))
	}
	result, err := ag.Invoke(ctx, req.Method, req.Params)
	if err != nil {
		return protocol.Failure(req.ID, AsRPCError(err))
	}
	return protocol.Success(req.ID, result)
}

// NameOf 返回智能体名称，未实现 Named 时返回类型名。
func NameOf(ag Agent) string {
	if named, ok := ag.(Named); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", ag)
}
