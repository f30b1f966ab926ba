package protocol

import (
	"encoding/json"
	"fmt"
)

// Version 是请求与响应信封中固定的协议版本。
const Version = "2.0"

// 系统使用的 JSON-RPC 错误码。
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvocationFailed = -32000
	CodeTimeout          = -32001
	CodeUnhandled        = -32002
)

// TaskRequest 描述一次发往智能体的结构化调用。
type TaskRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      string         `json:"id"`
}

// NewRequest 构造带协议版本的任务请求，params 会被浅拷贝。
func NewRequest(id, method string, params map[string]any) TaskRequest {
	return TaskRequest{
		JSONRPC: Version,
		Method:  method,
		Params:  CloneParams(params),
		ID:      id,
	}
}

// RPCError 是响应中的错误对象，同时实现 error 接口，便于在调用链中作为值传递。
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error 实现 error 接口。
func (e *RPCError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewError 创建 RPCError。
func NewError(code int, message string) *RPCError {
	return &RPCError{Code: code, Message: message}
}

// Errorf 按格式创建 RPCError。
func Errorf(code int, format string, args ...any) *RPCError {
	return &RPCError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// TaskResponse 是统一的响应信封，Result 与 Error 互斥。
type TaskResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
	ID      string    `json:"id"`
}

// Success 构造成功响应。
func Success(id string, result any) TaskResponse {
	return TaskResponse{JSONRPC: Version, Result: result, ID: id}
}

// Failure 构造失败响应。
func Failure(id string, err *RPCError) TaskResponse {
	if err == nil {
		err = NewError(CodeUnhandled, "unspecified failure")
	}
	return TaskResponse{JSONRPC: Version, Error: err, ID: id}
}

// OK 报告响应是否成功。
func (r TaskResponse) OK() bool {
	return r.Error == nil
}

// MarshalJSON 保证成功响应即使 result 为 nil 也会输出 result 字段。
func (r TaskResponse) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			JSONRPC string    `json:"jsonrpc"`
			Error   *RPCError `json:"error"`
			ID      string    `json:"id"`
		}{r.JSONRPC, r.Error, r.ID})
	}
	return json.Marshal(struct {
		JSONRPC string `json:"jsonrpc"`
		Result  any    `json:"result"`
		ID      string `json:"id"`
	}{r.JSONRPC, r.Result, r.ID})
}

// CloneParams 返回参数表的浅拷贝。
func CloneParams(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{}
	}
	cloned := make(map[string]any, len(params))
	for key, value := range params {
		cloned[key] = value
	}
	return cloned
}
