package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rental_listing_v1/internal/api/dto"
	"rental_listing_v1/internal/middleware"
	"rental_listing_v1/internal/service"
)

// ==================== 控制器 ====================

// SmartFormController 智能表单会话控制器
type SmartFormController struct {
	svc       *service.SmartFormService
	heartbeat time.Duration
}

func NewSmartFormController(svc *service.SmartFormService) *SmartFormController {
	return &SmartFormController{svc: svc, heartbeat: 30 * time.Second}
}

// ==================== 会话 ====================

// CreateSession 创建会话
// @Summary 创建智能表单会话
// @Tags SmartForm
// @Accept json
// @Produce json
// @Param body body dto.CreateSessionRequest true "会话参数"
// @Success 201 {object} smartform.Snapshot
// @Router /api/smart-form/sessions [post]
func (ctrl *SmartFormController) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	if req.UserID == 0 {
		req.UserID = middleware.GetUserID(c.Request.Context())
	}

	snap, err := ctrl.svc.CreateSession(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusCreated, snap)
}

// GetSession 会话快照
// @Summary 获取会话快照
// @Tags SmartForm
// @Param id path string true "会话ID"
// @Success 200 {object} smartform.Snapshot
// @Router /api/smart-form/sessions/{id} [get]
func (ctrl *SmartFormController) GetSession(c *gin.Context) {
	snap, err := ctrl.svc.Snapshot(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, snap)
}

// CloseSession 关闭会话
// @Summary 关闭会话，关联草稿时回写表单
// @Tags SmartForm
// @Param id path string true "会话ID"
// @Router /api/smart-form/sessions/{id} [delete]
func (ctrl *SmartFormController) CloseSession(c *gin.Context) {
	if err := ctrl.svc.CloseSession(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "会话已关闭",
	})
}

// ==================== 字段交互 ====================

// Focus 字段获得焦点
// @Summary 字段获得焦点并预加载建议
// @Tags SmartForm
// @Param id path string true "会话ID"
// @Param field path string true "字段路径"
// @Success 200 {object} dto.FieldResponse
// @Router /api/smart-form/sessions/{id}/fields/{field}/focus [post]
func (ctrl *SmartFormController) Focus(c *gin.Context) {
	result, err := ctrl.svc.Focus(c.Request.Context(), c.Param("id"), c.Param("field"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// Input 字段输入
// @Summary 字段输入（防抖自动补全与校验）
// @Tags SmartForm
// @Accept json
// @Param id path string true "会话ID"
// @Param field path string true "字段路径"
// @Param body body dto.FieldInputRequest true "输入值"
// @Success 200 {object} dto.FieldResponse
// @Router /api/smart-form/sessions/{id}/fields/{field}/input [post]
func (ctrl *SmartFormController) Input(c *gin.Context) {
	var req dto.FieldInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := ctrl.svc.Input(c.Param("id"), c.Param("field"), req.Value)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// Blur 字段失焦
// @Summary 字段失焦
// @Tags SmartForm
// @Param id path string true "会话ID"
// @Param field path string true "字段路径"
// @Success 200 {object} dto.FieldResponse
// @Router /api/smart-form/sessions/{id}/fields/{field}/blur [post]
func (ctrl *SmartFormController) Blur(c *gin.Context) {
	result, err := ctrl.svc.Blur(c.Param("id"), c.Param("field"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// Suggestions 拉取字段建议
// @Summary 拉取字段建议（AI / 历史 / 市场）
// @Tags SmartForm
// @Param id path string true "会话ID"
// @Param field path string true "字段路径"
// @Success 200 {array} smartform.Suggestion
// @Router /api/smart-form/sessions/{id}/fields/{field}/suggestions [get]
func (ctrl *SmartFormController) Suggestions(c *gin.Context) {
	list, err := ctrl.svc.Suggestions(c.Request.Context(), c.Param("id"), c.Param("field"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, list)
}

// Autocomplete 自动补全
// @Summary 自动补全，少于 2 个字符返回空
// @Tags SmartForm
// @Param id path string true "会话ID"
// @Param field query string true "字段路径"
// @Param q query string true "输入"
// @Success 200 {array} smartform.Suggestion
// @Router /api/smart-form/sessions/{id}/autocomplete [get]
func (ctrl *SmartFormController) Autocomplete(c *gin.Context) {
	field := strings.TrimSpace(c.Query("field"))
	if field == "" {
		badRequest(c, "field 不能为空")
		return
	}

	list, err := ctrl.svc.Autocomplete(c.Request.Context(), c.Param("id"), field, c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, list)
}

// ApplySuggestion 采纳建议
// @Summary 采纳建议
// @Tags SmartForm
// @Accept json
// @Param id path string true "会话ID"
// @Param body body dto.ApplySuggestionRequest true "建议"
// @Success 200 {object} dto.ApplyResult
// @Router /api/smart-form/sessions/{id}/suggestions/apply [post]
func (ctrl *SmartFormController) ApplySuggestion(c *gin.Context) {
	var req dto.ApplySuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := ctrl.svc.Apply(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// Validate 立即校验
// @Summary 立即校验表单
// @Tags SmartForm
// @Param id path string true "会话ID"
// @Success 200 {object} dto.ValidateResult
// @Router /api/smart-form/sessions/{id}/validate [post]
func (ctrl *SmartFormController) Validate(c *gin.Context) {
	result, err := ctrl.svc.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// AutoFill 自动填充
// @Summary 用缓存建议填充空的必填字段
// @Tags SmartForm
// @Param id path string true "会话ID"
// @Success 200 {object} dto.AutoFillResult
// @Router /api/smart-form/sessions/{id}/autofill [post]
func (ctrl *SmartFormController) AutoFill(c *gin.Context) {
	result, err := ctrl.svc.AutoFill(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// Analysis 表单分析
// @Summary 完整度、质量与建议/问题汇总
// @Tags SmartForm
// @Param id path string true "会话ID"
// @Success 200 {object} smartform.FormFieldAnalysis
// @Router /api/smart-form/sessions/{id}/analysis [get]
func (ctrl *SmartFormController) Analysis(c *gin.Context) {
	result, err := ctrl.svc.Analysis(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// ==================== SSE ====================

// Stream SSE 推送会话事件
// @Summary SSE 实时推送建议、自动补全与校验结果
// @Tags SmartForm
// @Param id path string true "会话ID"
// @Produce text/event-stream
// @Router /api/smart-form/sessions/{id}/stream [get]
func (ctrl *SmartFormController) Stream(c *gin.Context) {
	sessionID := c.Param("id")

	snap, err := ctrl.svc.Snapshot(sessionID)
	if err != nil {
		fail(c, err)
		return
	}
	eventCh, err := ctrl.svc.Subscribe(sessionID)
	if err != nil {
		fail(c, err)
		return
	}
	defer ctrl.svc.Unsubscribe(sessionID, eventCh)

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	c.SSEvent("snapshot", snap)
	c.Writer.Flush()

	ticker := time.NewTicker(ctrl.heartbeat)
	defer ticker.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return
		case <-ticker.C:
			// 心跳
			c.SSEvent("heartbeat", gin.H{"time": time.Now().Unix()})
			c.Writer.Flush()
		case event, ok := <-eventCh:
			if !ok {
				// 会话已关闭
				c.SSEvent("closed", gin.H{"session_id": sessionID})
				c.Writer.Flush()
				return
			}
			c.SSEvent(string(event.Kind), event)
			c.Writer.Flush()
		}
	}
}
