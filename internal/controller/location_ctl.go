package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental_listing_v1/internal/api/dto"
	"rental_listing_v1/internal/service"
)

// LocationController 地点控制器
type LocationController struct {
	location *service.LocationService
}

func NewLocationController(location *service.LocationService) *LocationController {
	return &LocationController{location: location}
}

// Search 地点搜索
// @Summary 地点搜索
// @Tags Location
// @Param q query string true "关键词"
// @Param limit query int false "数量" default(5)
// @Success 200 {array} client.Place
// @Router /api/locations/search [get]
func (ctrl *LocationController) Search(c *gin.Context) {
	var req dto.SearchPlacesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	places, err := ctrl.location.Search(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, places)
}

// Reverse 逆地理编码
// @Summary 坐标转地址
// @Tags Location
// @Param lat query number true "纬度"
// @Param lng query number true "经度"
// @Success 200 {object} client.Place
// @Router /api/locations/reverse [get]
func (ctrl *LocationController) Reverse(c *gin.Context) {
	var req dto.ReverseGeocodeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	place, err := ctrl.location.Reverse(c.Request.Context(), *req.Lat, *req.Lng)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, place)
}
