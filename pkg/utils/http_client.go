package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// ClientOptions Resty 客户端参数
type ClientOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Debug   bool
}

// NewRestClient 创建一个配置好超时、鉴权头与重试的 Resty 客户端
// 它是外部 HTTP 服务（地理位置、市场数据）的统一入口
func NewRestClient(opts ClientOptions) *resty.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetDebug(opts.Debug).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "Rental-Listing-Go/1.0").
		SetRetryCount(1).
		SetRetryWaitTime(300 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)

	if opts.APIKey != "" {
		client.SetHeader("x-api-key", opts.APIKey)
	}

	return client
}
