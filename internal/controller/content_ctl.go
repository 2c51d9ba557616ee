package controller

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rental_listing_v1/internal/api/dto"
	"rental_listing_v1/internal/middleware"
	"rental_listing_v1/internal/service"
)

// ContentController AI 内容控制器
type ContentController struct {
	content *service.ContentService
}

func NewContentController(content *service.ContentService) *ContentController {
	return &ContentController{content: content}
}

// sessionOf 请求体未带会话时取请求头
func sessionOf(c *gin.Context, sessionID string) string {
	if sessionID != "" {
		return sessionID
	}
	return c.GetHeader(middleware.SessionHeader)
}

// GenerateDescription 生成房源描述
// @Summary AI 生成房源描述
// @Tags AI
// @Accept json
// @Param body body dto.GenerateDescriptionRequest true "表单"
// @Success 200 {object} client.DescriptionResult
// @Failure 429 {object} map[string]interface{}
// @Router /api/ai/description [post]
func (ctrl *ContentController) GenerateDescription(c *gin.Context) {
	var req dto.GenerateDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	req.SessionID = sessionOf(c, req.SessionID)

	result, err := ctrl.content.GenerateDescription(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// OptimizeSEO SEO 优化
// @Summary AI 优化标题与描述 SEO
// @Tags AI
// @Accept json
// @Param body body dto.OptimizeSEORequest true "内容"
// @Success 200 {object} client.SEOResult
// @Router /api/ai/seo [post]
func (ctrl *ContentController) OptimizeSEO(c *gin.Context) {
	var req dto.OptimizeSEORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	req.SessionID = sessionOf(c, req.SessionID)

	result, err := ctrl.content.OptimizeSEO(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// SuggestPricing 定价建议
// @Summary AI + 可比房源定价建议
// @Tags AI
// @Accept json
// @Param body body dto.SuggestPricingRequest true "表单"
// @Success 200 {object} dto.PricingResult
// @Router /api/ai/pricing [post]
func (ctrl *ContentController) SuggestPricing(c *gin.Context) {
	var req dto.SuggestPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	req.SessionID = sessionOf(c, req.SessionID)

	result, err := ctrl.content.SuggestPricing(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// AnalyzeContent 内容分析
// @Summary 标题与描述质量分析
// @Tags AI
// @Accept json
// @Param body body dto.AnalyzeContentRequest true "内容"
// @Success 200 {object} dto.ContentAnalysisResult
// @Router /api/ai/analyze [post]
func (ctrl *ContentController) AnalyzeContent(c *gin.Context) {
	var req dto.AnalyzeContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	req.SessionID = sessionOf(c, req.SessionID)

	result, err := ctrl.content.AnalyzeContent(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// Query 流式问答
// @Summary AI 流式问答（SSE）
// @Tags AI
// @Accept json
// @Param body body dto.QueryRequest true "问题"
// @Produce text/event-stream
// @Router /api/ai/query [post]
func (ctrl *ContentController) Query(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	req.SessionID = sessionOf(c, req.SessionID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	err := ctrl.content.StreamQuery(c.Request.Context(), &req, func(chunk string) error {
		c.SSEvent("chunk", chunk)
		c.Writer.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		c.SSEvent("error", gin.H{"message": err.Error()})
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", gin.H{})
	c.Writer.Flush()
}

// Usage 会话或草稿 AI 用量
// @Summary 会话/草稿 AI 调用用量（draft_id 优先）
// @Tags AI
// @Param session_id query string false "会话ID"
// @Param draft_id query int false "草稿ID"
// @Success 200 {object} repository.AIUsageStats
// @Router /api/ai/usage [get]
func (ctrl *ContentController) Usage(c *gin.Context) {
	if raw := c.Query("draft_id"); raw != "" {
		draftID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || draftID <= 0 {
			badRequest(c, "无效的草稿ID")
			return
		}
		result, err := ctrl.content.DraftUsage(c.Request.Context(), draftID)
		if err != nil {
			fail(c, err)
			return
		}
		success(c, http.StatusOK, result)
		return
	}

	sessionID := sessionOf(c, c.Query("session_id"))
	if sessionID == "" {
		badRequest(c, "session_id 或 draft_id 不能为空")
		return
	}

	result, err := ctrl.content.SessionUsage(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// UsageReport AI 用量报表
// @Summary 时间段内 AI 费用、按类型与按天统计
// @Tags AI
// @Param from query string false "开始日期 (2006-01-02)，默认 7 天前"
// @Param to query string false "结束日期 (2006-01-02)，默认今天"
// @Success 200 {object} dto.AIUsageReport
// @Router /api/ai/usage/report [get]
func (ctrl *ContentController) UsageReport(c *gin.Context) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	from, err := parseDate(c.Query("from"), today.AddDate(0, 0, -7))
	if err != nil {
		badRequest(c, "from 格式应为 2006-01-02")
		return
	}
	to, err := parseDate(c.Query("to"), today)
	if err != nil {
		badRequest(c, "to 格式应为 2006-01-02")
		return
	}

	// to 包含当天
	result, err := ctrl.content.UsageReport(c.Request.Context(), from, to.Add(24*time.Hour-time.Nanosecond))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

func parseDate(raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	return time.Parse("2006-01-02", raw)
}

// MarketOverview 区域市场概况
// @Summary 区域市场数据、洞察与 AI 分析
// @Tags Market
// @Param area path string true "区域/城市"
// @Param property_type query string false "房源类型"
// @Param bedrooms query int false "卧室数"
// @Success 200 {object} dto.MarketOverview
// @Router /api/market/{area} [get]
func (ctrl *ContentController) MarketOverview(c *gin.Context) {
	area := strings.TrimSpace(c.Param("area"))
	if area == "" {
		badRequest(c, "area 不能为空")
		return
	}
	bedrooms, _ := strconv.Atoi(c.DefaultQuery("bedrooms", "0"))

	result, err := ctrl.content.AnalyzeMarket(c.Request.Context(), &dto.MarketAnalysisRequest{
		SessionID:    c.GetHeader(middleware.SessionHeader),
		Area:         area,
		PropertyType: c.Query("property_type"),
		Bedrooms:     bedrooms,
	})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}
