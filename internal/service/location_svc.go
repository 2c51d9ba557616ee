package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"rental_listing_v1/internal/client"
	"rental_listing_v1/internal/smartform"
)

// PlaceSearcher 地点服务接口
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, query string, limit int) ([]client.Place, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (*client.Place, error)
}

// ErrInvalidQuery 查询参数无效
var ErrInvalidQuery = errors.New("invalid query")

const placesModel = "places"

// LocationService 地点搜索，同时为地址字段提供建议
type LocationService struct {
	places PlaceSearcher
	limit  int
	logger *zap.Logger
}

var _ smartform.SuggestionSource = (*LocationService)(nil)

// NewLocationService 创建地点服务
func NewLocationService(places PlaceSearcher, logger *zap.Logger) *LocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationService{places: places, limit: 5, logger: logger.With(zap.String("component", "location"))}
}

// Search 地点搜索
func (s *LocationService) Search(ctx context.Context, query string, limit int) ([]client.Place, error) {
	if len([]rune(query)) < 2 {
		return nil, fmt.Errorf("%w: 查询至少 2 个字符", ErrInvalidQuery)
	}
	if limit <= 0 || limit > 20 {
		limit = s.limit
	}
	return s.places.SearchPlaces(ctx, query, limit)
}

// Reverse 逆地理编码
func (s *LocationService) Reverse(ctx context.Context, lat, lng float64) (*client.Place, error) {
	return s.places.ReverseGeocode(ctx, lat, lng)
}

// GetSmartSuggestions 地址 / 城市字段按当前输入搜索地点
func (s *LocationService) GetSmartSuggestions(ctx context.Context, _ smartform.Session, field string, form smartform.Form) ([]smartform.Suggestion, error) {
	var pick func(client.Place) string
	switch field {
	case "location.city":
		pick = func(p client.Place) string { return p.City }
	case "location.address":
		pick = func(p client.Place) string { return p.Address }
	default:
		return nil, nil
	}

	query := formString(form, field)
	if len([]rune(query)) < 2 {
		return nil, nil
	}

	places, err := s.places.SearchPlaces(ctx, query, s.limit)
	if err != nil {
		return nil, err
	}

	out := make([]smartform.Suggestion, 0, len(places))
	for i, p := range places {
		v := pick(p)
		if v == "" {
			continue
		}
		// 按搜索排序递减
		conf := 0.8 - 0.1*float64(i)
		out = append(out, smartform.NewAISuggestion(field, v, conf, p.Name, placesModel))
	}
	return out, nil
}

// ==================== 建议来源组合 ====================

// sourceChain 依次调用多个建议来源并拼接结果
// 全部失败时返回最后一个错误
type sourceChain []smartform.SuggestionSource

func (c sourceChain) GetSmartSuggestions(ctx context.Context, sess smartform.Session, field string, form smartform.Form) ([]smartform.Suggestion, error) {
	var (
		out     []smartform.Suggestion
		lastErr error
		ok      bool
	)
	for _, src := range c {
		if src == nil {
			continue
		}
		list, err := src.GetSmartSuggestions(ctx, sess, field, form)
		if err != nil {
			lastErr = err
			continue
		}
		ok = true
		out = append(out, list...)
	}
	if !ok && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
