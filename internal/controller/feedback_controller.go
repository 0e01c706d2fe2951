package controller

import (
	"errors"
	"strconv"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/service"
	"edu_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// FeedbackController 批注接口。教师端可增删改,学生端只读渲染。
type FeedbackController struct {
	AnnotationService *service.AnnotationService
	AssignmentService *service.AssignmentService
}

func NewFeedbackController(annotationService *service.AnnotationService, assignmentService *service.AssignmentService) *FeedbackController {
	return &FeedbackController{
		AnnotationService: annotationService,
		AssignmentService: assignmentService,
	}
}

// CreateFeedbackRequest 新建批注。isGeneral 为真时忽略 text/position。
type CreateFeedbackRequest struct {
	Text      string          `json:"text"`
	Position  *model.Position `json:"position"`
	IsGeneral bool            `json:"isGeneral"`
	Comment   string          `json:"comment" binding:"required"`
}

// Create godoc
// @Summary 新建批注
// @Description 选区批注要求选中文本确实出现在学生作答中;整体批注不绑定选区
// @Tags 批注
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作业ID"
// @Param   body body CreateFeedbackRequest true "批注内容"
// @Success 201 {object} util.Response{data=[]model.Feedback} "返回完整批注集合"
// @Failure 400 {object} util.Response "选区为空或评语为空"
// @Failure 422 {object} util.Response "选中文本不在作答内容中"
// @Router /api/teacher/assignments/{id}/feedback [post]
func (c *FeedbackController) Create(ctx *gin.Context) {
	var req CreateFeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	var pending *service.PendingAnnotation
	if req.IsGeneral {
		pending = c.AnnotationService.BeginGeneral()
	} else {
		var pos model.Position
		if req.Position != nil {
			pos = *req.Position
		}
		p, ok := c.AnnotationService.BeginFromSelection(req.Text, pos)
		if !ok {
			util.BadRequest(ctx, util.ErrEmptySelection.Error())
			return
		}
		pending = p
	}

	feedbacks, err := c.AnnotationService.Commit(ctx.Param("id"), pending, req.Comment)
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Created(ctx, feedbacks)
}

// EditFeedbackRequest 修改评语
type EditFeedbackRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// Edit godoc
// @Summary 修改批注评语
// @Description 选区锚文本与坐标保持不变,只改评语和时间戳
// @Tags 批注
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作业ID"
// @Param   feedbackId path int true "批注ID"
// @Param   body body EditFeedbackRequest true "评语"
// @Success 200 {object} util.Response{data=[]model.Feedback}
// @Failure 404 {object} util.Response "批注不存在"
// @Router /api/teacher/assignments/{id}/feedback/{feedbackId} [put]
func (c *FeedbackController) Edit(ctx *gin.Context) {
	feedbackID, err := strconv.ParseInt(ctx.Param("feedbackId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的批注ID")
		return
	}

	var req EditFeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	feedbacks, err := c.AnnotationService.Edit(ctx.Param("id"), feedbackID, req.Comment)
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Success(ctx, feedbacks)
}

// Remove godoc
// @Summary 删除批注
// @Description 删除不存在的批注按成功处理
// @Tags 批注
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作业ID"
// @Param   feedbackId path int true "批注ID"
// @Success 200 {object} util.Response{data=[]model.Feedback}
// @Router /api/teacher/assignments/{id}/feedback/{feedbackId} [delete]
func (c *FeedbackController) Remove(ctx *gin.Context) {
	feedbackID, err := strconv.ParseInt(ctx.Param("feedbackId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的批注ID")
		return
	}

	feedbacks, err := c.AnnotationService.Remove(ctx.Param("id"), feedbackID)
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Success(ctx, feedbacks)
}

// Annotated godoc
// @Summary 带批注标记的作答内容
// @Description 返回注入 mark 标签后的 HTML,选区失配的批注只出现在列表里
// @Tags 批注
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作业ID"
// @Success 200 {object} util.Response
// @Router /api/assignments/{id}/annotated [get]
func (c *FeedbackController) Annotated(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var (
		assignment *model.Assignment
		err        error
	)
	readOnly := claims.Role == model.Student
	if readOnly {
		assignment, err = c.AssignmentService.GetForStudent(ctx.Param("id"), claims.UserID)
	} else {
		assignment, err = c.AssignmentService.Get(ctx.Param("id"))
	}
	if err != nil {
		c.renderError(ctx, err)
		return
	}

	html := service.RenderAnnotated(assignment.Content.StudentContent, assignment.Feedbacks, readOnly)
	util.Success(ctx, gin.H{
		"html":             html,
		"feedbacks":        service.SpannedFeedbacks(assignment.Feedbacks),
		"generalFeedbacks": service.GeneralFeedbacks(assignment.Feedbacks),
	})
}

func (c *FeedbackController) renderError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAssignmentNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrFeedbackNotFound):
		util.Error(ctx, 404, err.Error())
	case errors.Is(err, util.ErrEmptyComment), errors.Is(err, util.ErrEmptySelection):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrTextNotInContent):
		util.Error(ctx, 422, err.Error())
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
