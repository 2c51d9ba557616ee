package net

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// BuildRequest 通用 JSON 请求构建器
// 职责：统一封装鉴权头 (x-api-key) 和标准头 (Accept, Content-Type)
// 注意：body 为 nil 时不设置 Content-Type
func BuildRequest(ctx context.Context, method, url string, body io.Reader, apiKey string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}

	return req, nil
}

// BuildJSONRequest 将 payload 编码为 JSON 后构建请求
// bytes.Reader 使 http.NewRequest 自动设置 GetBody，便于重试
func BuildJSONRequest(ctx context.Context, method, url string, payload any, apiKey string) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return BuildRequest(ctx, method, url, bytes.NewReader(data), apiKey)
}

// BuildPostRequest 构建 POST JSON 请求
func BuildPostRequest(ctx context.Context, url string, payload any, apiKey string) (*http.Request, error) {
	return BuildJSONRequest(ctx, http.MethodPost, url, payload, apiKey)
}
