package client

import (
	"errors"
	"fmt"
)

// ErrUnavailable 外部服务未配置
var ErrUnavailable = errors.New("service not configured")

// APIError 外部服务返回的非 2xx 响应
type APIError struct {
	Service string
	Status  int
	Body    string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("%s 错误 [%d]: %s", e.Service, e.Status, body)
}
