package dto

// SearchPlacesRequest 地点搜索
type SearchPlacesRequest struct {
	Query string `form:"q" binding:"required"`
	Limit int    `form:"limit,default=5"`
}

// ReverseGeocodeRequest 逆地理编码
type ReverseGeocodeRequest struct {
	Lat *float64 `form:"lat" binding:"required"`
	Lng *float64 `form:"lng" binding:"required"`
}
