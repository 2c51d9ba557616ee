package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"rental_listing_v1/pkg/utils"
)

// Place 地点
type Place struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postal_code"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// LocationClient 地点搜索与逆地理编码
type LocationClient struct {
	http  *resty.Client
	cache *utils.TTLCache[[]Place]
}

// NewLocationClient http 为 nil 表示未配置
func NewLocationClient(http *resty.Client, cache *utils.TTLCache[[]Place]) *LocationClient {
	return &LocationClient{http: http, cache: cache}
}

// SearchPlaces 按关键字搜索地点，结果按查询缓存
func (c *LocationClient) SearchPlaces(ctx context.Context, query string, limit int) ([]Place, error) {
	if c.http == nil {
		return nil, ErrUnavailable
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []Place{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	key := fmt.Sprintf("%s|%d", strings.ToLower(query), limit)
	if c.cache != nil {
		if places, ok := c.cache.Get(key); ok {
			return places, nil
		}
	}

	var out struct {
		Places []Place `json:"places"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"q": query, "limit": strconv.Itoa(limit)}).
		SetResult(&out).
		Get("/places/search")
	if err != nil {
		return nil, fmt.Errorf("地点搜索失败: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Service: "location", Status: resp.StatusCode(), Body: resp.String()}
	}

	if out.Places == nil {
		out.Places = []Place{}
	}
	if c.cache != nil {
		c.cache.Set(key, out.Places)
	}
	return out.Places, nil
}

// ReverseGeocode 坐标转地址
func (c *LocationClient) ReverseGeocode(ctx context.Context, lat, lng float64) (*Place, error) {
	if c.http == nil {
		return nil, ErrUnavailable
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("坐标越界: %f,%f", lat, lng)
	}

	var place Place
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat": strconv.FormatFloat(lat, 'f', 6, 64),
			"lng": strconv.FormatFloat(lng, 'f', 6, 64),
		}).
		SetResult(&place).
		Get("/places/reverse")
	if err != nil {
		return nil, fmt.Errorf("逆地理编码失败: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Service: "location", Status: resp.StatusCode(), Body: resp.String()}
	}
	return &place, nil
}
