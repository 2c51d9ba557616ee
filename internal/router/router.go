package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental_listing_v1/internal/controller"
	"rental_listing_v1/internal/middleware"
)

// Controllers 路由依赖的控制器集合
type Controllers struct {
	SmartForm *controller.SmartFormController
	Draft     *controller.DraftController
	Content   *controller.ContentController
	Location  *controller.LocationController
}

// Options 路由选项
type Options struct {
	Logger  *zap.Logger
	Limiter *middleware.CooldownLimiter
	// Cooldown 覆盖所有 AI 功能的冷却间隔，为 0 时使用默认间隔
	Cooldown time.Duration
}

// SetupRouter 创建 gin 引擎并注册所有路由
func SetupRouter(ctls *Controllers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Limiter == nil {
		opts.Limiter = middleware.NewCooldownLimiter()
	}

	r := gin.New()
	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(middleware.IdentityContext())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	InitRoutes(r, ctls, opts)
	return r
}

// InitRoutes 注册 API 路由
func InitRoutes(r *gin.Engine, ctls *Controllers, opts Options) {
	cooldown := func(feature middleware.Feature) gin.HandlerFunc {
		return middleware.Cooldown(opts.Limiter, feature, opts.Cooldown)
	}

	api := r.Group("/api")
	{
		// 智能表单会话
		if sf := ctls.SmartForm; sf != nil {
			sessions := api.Group("/smart-form/sessions")
			{
				sessions.POST("", sf.CreateSession)
				sessions.GET("/:id", sf.GetSession)
				sessions.DELETE("/:id", sf.CloseSession)
				// GET /api/smart-form/sessions/:id/stream (SSE)
				sessions.GET("/:id/stream", sf.Stream)

				sessions.POST("/:id/fields/:field/focus", sf.Focus)
				sessions.POST("/:id/fields/:field/input", sf.Input)
				sessions.POST("/:id/fields/:field/blur", sf.Blur)
				sessions.GET("/:id/fields/:field/suggestions", sf.Suggestions)
				sessions.GET("/:id/autocomplete", sf.Autocomplete)

				sessions.POST("/:id/suggestions/apply", sf.ApplySuggestion)
				sessions.POST("/:id/validate", sf.Validate)
				sessions.POST("/:id/autofill", sf.AutoFill)
				sessions.GET("/:id/analysis", sf.Analysis)
			}
		}

		// 向导草稿
		if dc := ctls.Draft; dc != nil {
			drafts := api.Group("/drafts")
			{
				drafts.POST("", dc.CreateDraft)
				drafts.GET("", dc.ListDrafts)
				drafts.GET("/:id", dc.GetDraft)
				drafts.PUT("/:id", dc.UpdateDraft)
				drafts.DELETE("/:id", dc.DeleteDraft)
				drafts.PUT("/:id/steps/:step", dc.SaveStep)
				drafts.POST("/:id/submit", dc.SubmitDraft)
			}
		}

		// AI 内容，生成类接口按会话冷却
		if cc := ctls.Content; cc != nil {
			ai := api.Group("/ai")
			{
				ai.POST("/description", cooldown(middleware.FeatureDescription), cc.GenerateDescription)
				ai.POST("/seo", cooldown(middleware.FeatureSEO), cc.OptimizeSEO)
				ai.POST("/pricing", cooldown(middleware.FeaturePricing), cc.SuggestPricing)
				ai.POST("/analyze", cooldown(middleware.FeatureAnalyze), cc.AnalyzeContent)
				ai.POST("/query", cc.Query)
				ai.GET("/usage", cc.Usage)
				ai.GET("/usage/report", cc.UsageReport)
			}
			api.GET("/market/:area", cc.MarketOverview)
		}

		// 地点
		if lc := ctls.Location; lc != nil {
			locations := api.Group("/locations")
			{
				locations.GET("/search", lc.Search)
				locations.GET("/reverse", lc.Reverse)
			}
		}
	}
}
