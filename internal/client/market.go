package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"rental_listing_v1/pkg/utils"
)

// MarketData 区域市场概况
type MarketData struct {
	Area          string  `json:"area"`
	PropertyType  string  `json:"property_type"`
	AverageRate   float64 `json:"average_rate"`
	MedianRate    float64 `json:"median_rate"`
	OccupancyRate float64 `json:"occupancy_rate"`
	ActiveCount   int     `json:"active_listings"`
	Currency      string  `json:"currency"`
}

// Comparable 可比房源
type Comparable struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	PropertyType string  `json:"property_type"`
	Bedrooms     int     `json:"bedrooms"`
	NightlyRate  float64 `json:"nightly_rate"`
	CleaningFee  float64 `json:"cleaning_fee"`
	Rating       float64 `json:"rating"`
	DistanceKm   float64 `json:"distance_km"`
}

// ComparablesQuery 可比房源查询
type ComparablesQuery struct {
	Area         string
	PropertyType string
	Bedrooms     int
	Limit        int
}

// Insight 市场洞察
type Insight struct {
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// MarketClient 市场数据服务
type MarketClient struct {
	http  *resty.Client
	cache *utils.TTLCache[*MarketData]
}

// NewMarketClient http 为 nil 表示未配置
func NewMarketClient(http *resty.Client, cache *utils.TTLCache[*MarketData]) *MarketClient {
	return &MarketClient{http: http, cache: cache}
}

// MarketData 区域概况，按区域与房型缓存
func (c *MarketClient) MarketData(ctx context.Context, area, propertyType string) (*MarketData, error) {
	if c.http == nil {
		return nil, ErrUnavailable
	}
	key := strings.ToLower(area + "|" + propertyType)
	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			return data, nil
		}
	}

	var data MarketData
	req := c.http.R().SetContext(ctx).SetResult(&data)
	if propertyType != "" {
		req.SetQueryParam("property_type", propertyType)
	}
	resp, err := req.Get("/markets/" + url.PathEscape(area))
	if err != nil {
		return nil, fmt.Errorf("获取市场数据失败: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Service: "market", Status: resp.StatusCode(), Body: resp.String()}
	}

	if c.cache != nil {
		c.cache.Set(key, &data)
	}
	return &data, nil
}

// Comparables 可比房源列表
func (c *MarketClient) Comparables(ctx context.Context, q ComparablesQuery) ([]Comparable, error) {
	if c.http == nil {
		return nil, ErrUnavailable
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}

	params := map[string]string{"limit": strconv.Itoa(q.Limit)}
	if q.PropertyType != "" {
		params["property_type"] = q.PropertyType
	}
	if q.Bedrooms > 0 {
		params["bedrooms"] = strconv.Itoa(q.Bedrooms)
	}

	var out struct {
		Comparables []Comparable `json:"comparables"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get("/markets/" + url.PathEscape(q.Area) + "/comparables")
	if err != nil {
		return nil, fmt.Errorf("获取可比房源失败: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Service: "market", Status: resp.StatusCode(), Body: resp.String()}
	}
	return out.Comparables, nil
}

// Insights 区域市场洞察
func (c *MarketClient) Insights(ctx context.Context, area string) ([]Insight, error) {
	if c.http == nil {
		return nil, ErrUnavailable
	}

	var out struct {
		Insights []Insight `json:"insights"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/markets/" + url.PathEscape(area) + "/insights")
	if err != nil {
		return nil, fmt.Errorf("获取市场洞察失败: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Service: "market", Status: resp.StatusCode(), Body: resp.String()}
	}
	if out.Insights == nil {
		out.Insights = []Insight{}
	}
	return out.Insights, nil
}
