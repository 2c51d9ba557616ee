package net

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Dispatcher 网络调度器 (通用组件)
type Dispatcher interface {
	// Send 发送 HTTP 请求，网络错误时自动重试
	Send(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Options 调度器参数
type Options struct {
	Timeout     time.Duration
	MaxAttempts int           // 总尝试次数，含首次
	BaseBackoff time.Duration // 第 n 次重试等待 BaseBackoff * 2^(n-1)
}

// httpDispatcher 是 Dispatcher 接口的具体实现
// 注意：它是私有的，外部只能通过 NewDispatcher 获取接口
type httpDispatcher struct {
	client      *http.Client
	maxAttempts int
	baseBackoff time.Duration
}

var _ Dispatcher = (*httpDispatcher)(nil)

// NewDispatcher 默认两次尝试，首次重试前等待 500ms
func NewDispatcher(opts Options) Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 2
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConns = 100
	tr.MaxIdleConnsPerHost = 10
	tr.IdleConnTimeout = 90 * time.Second

	return &httpDispatcher{
		client:      &http.Client{Transport: tr, Timeout: opts.Timeout},
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.BaseBackoff,
	}
}

// Send 发送 HTTP 请求
// 只有网络层错误才重试；收到任何 HTTP 响应（包括 5xx）都直接返回给调用方
func (d *httpDispatcher) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for i := 0; i < d.maxAttempts; i++ {
		if i > 0 {
			wait := d.baseBackoff << (i - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}

			// 请求体只能读一次，重试前重建
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("reset request body: %w", err)
				}
				req.Body = body
			}
		}

		resp, err := d.client.Do(req.WithContext(ctx))
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", d.maxAttempts, lastErr)
}
