package agent

import "fmt"

// RequireString 读取必填的字符串参数，缺失或为空时返回与参数名对应的错误。
func RequireString(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("Missing '%s' parameter.", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("Invalid '%s' parameter: expected string, got %T.", key, raw)
	}
	if value == "" {
		return "", fmt.Errorf("Missing '%s' parameter.", key)
	}
	return value, nil
}
