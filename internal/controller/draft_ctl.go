package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rental_listing_v1/internal/api/dto"
	"rental_listing_v1/internal/middleware"
	"rental_listing_v1/internal/service"
)

// ==================== 控制器 ====================

// DraftController 向导草稿控制器
type DraftController struct {
	wizard *service.WizardService
}

func NewDraftController(wizard *service.WizardService) *DraftController {
	return &DraftController{wizard: wizard}
}

// ==================== API 方法 ====================

// CreateDraft 创建草稿
// @Summary 创建房源向导草稿
// @Tags Draft
// @Accept json
// @Produce json
// @Param body body dto.CreateDraftRequest true "创建请求"
// @Success 201 {object} dto.DraftVO
// @Router /api/drafts [post]
func (ctrl *DraftController) CreateDraft(c *gin.Context) {
	var req dto.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	if req.UserID == 0 {
		req.UserID = middleware.GetUserID(c.Request.Context())
	}

	result, err := ctrl.wizard.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusCreated, result)
}

// GetDraft 获取草稿详情
// @Summary 获取草稿详情与进度
// @Tags Draft
// @Param id path int true "草稿ID"
// @Success 200 {object} dto.DraftVO
// @Router /api/drafts/{id} [get]
func (ctrl *DraftController) GetDraft(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	result, err := ctrl.wizard.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// UpdateDraft 整体替换表单
// @Summary 替换草稿表单
// @Tags Draft
// @Accept json
// @Param id path int true "草稿ID"
// @Param body body dto.UpdateDraftRequest true "表单"
// @Success 200 {object} dto.DraftVO
// @Router /api/drafts/{id} [put]
func (ctrl *DraftController) UpdateDraft(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	var req dto.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := ctrl.wizard.Replace(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// SaveStep 保存步骤
// @Summary 保存向导步骤数据
// @Tags Draft
// @Accept json
// @Param id path int true "草稿ID"
// @Param step path string true "步骤(basic_info/location/pricing/media/availability/review)"
// @Param body body dto.SaveStepRequest true "步骤数据"
// @Success 200 {object} dto.DraftVO
// @Router /api/drafts/{id}/steps/{step} [put]
func (ctrl *DraftController) SaveStep(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	var req dto.SaveStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := ctrl.wizard.SaveStep(c.Request.Context(), id, c.Param("step"), req.Data)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// SubmitDraft 提交草稿
// @Summary 提交草稿（需完整度 100 且无 error 级问题）
// @Tags Draft
// @Param id path int true "草稿ID"
// @Success 200 {object} dto.SubmitDraftResult
// @Router /api/drafts/{id}/submit [post]
func (ctrl *DraftController) SubmitDraft(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	result, err := ctrl.wizard.Submit(c.Request.Context(), id)
	if errors.Is(err, service.ErrDraftInvalid) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":    422,
			"message": err.Error(),
			"data":    result,
		})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// DeleteDraft 删除草稿
// @Summary 删除草稿
// @Tags Draft
// @Param id path int true "草稿ID"
// @Router /api/drafts/{id} [delete]
func (ctrl *DraftController) DeleteDraft(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	if err := ctrl.wizard.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "删除成功",
	})
}

// ListDrafts 获取草稿列表
// @Summary 获取草稿列表
// @Tags Draft
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Param status query string false "状态筛选"
// @Param city query string false "城市筛选"
// @Success 200 {object} map[string]interface{}
// @Router /api/drafts [get]
func (ctrl *DraftController) ListDrafts(c *gin.Context) {
	var req dto.ListDraftsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	if req.UserID == 0 {
		req.UserID = middleware.GetUserID(c.Request.Context())
	}

	list, total, err := ctrl.wizard.List(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":     0,
		"message":  "success",
		"data":     list,
		"total":    total,
		"page":     req.Page,
		"pageSize": req.PageSize,
	})
}

// draftID 解析路径中的草稿 ID
func draftID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "无效的草稿ID")
		return 0, false
	}
	return id, true
}
