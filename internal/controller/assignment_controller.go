package controller

import (
	"errors"
	"time"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/service"
	"edu_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	AssignmentService *service.AssignmentService
}

func NewAssignmentController(assignmentService *service.AssignmentService) *AssignmentController {
	return &AssignmentController{AssignmentService: assignmentService}
}

// DistributeRequest 按课时批量下发作业
type DistributeRequest struct {
	LessonID    string     `json:"lessonId" binding:"required"`
	CycleID     string     `json:"cycleId" binding:"required"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Template    string     `json:"template"`
}

// Distribute godoc
// @Summary 批量下发作业
// @Description 给周期内所有激活学生创建作业,已有作业的学生跳过
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body DistributeRequest true "下发参数"
// @Success 200 {object} util.Response "created 字段为新建数量"
// @Router /api/teacher/assignments/distribute [post]
func (c *AssignmentController) Distribute(ctx *gin.Context) {
	var req DistributeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	created, err := c.AssignmentService.Distribute(service.DistributeInput{
		LessonID:    req.LessonID,
		CycleID:     req.CycleID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Template:    req.Template,
	})
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"created": created})
}

// Get godoc
// @Summary 作业详情
// @Description 学生只能读取自己的作业
// @Tags 作业
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作业ID"
// @Success 200 {object} util.Response{data=model.Assignment}
// @Router /api/assignments/{id} [get]
func (c *AssignmentController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var (
		assignment *model.Assignment
		err        error
	)
	if claims.Role == model.Student {
		assignment, err = c.AssignmentService.GetForStudent(ctx.Param("id"), claims.UserID)
	} else {
		assignment, err = c.AssignmentService.Get(ctx.Param("id"))
	}
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Success(ctx, assignment)
}

// List godoc
// @Summary 作业列表
// @Description 学生返回本人作业;教师需要 lessonId 参数
// @Tags 作业
// @Produce  json
// @Security BearerAuth
// @Param   lessonId query string false "课程ID(教师端)"
// @Success 200 {object} util.Response{data=[]model.Assignment}
// @Router /api/assignments [get]
func (c *AssignmentController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	if claims.Role == model.Student {
		assignments, err := c.AssignmentService.ListByStudent(claims.UserID)
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		util.Success(ctx, assignments)
		return
	}

	lessonID := ctx.Query("lessonId")
	if lessonID == "" {
		util.BadRequest(ctx, "lessonId 不能为空")
		return
	}
	assignments, err := c.AssignmentService.ListByLesson(lessonID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, assignments)
}

// SaveContentRequest 学生保存作业内容
type SaveContentRequest struct {
	Content string `json:"content"`
}

// SaveContent godoc
// @Summary 保存作业内容
// @Description 仅草稿和待修改状态可写,其它状态返回 409
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作业ID"
// @Param   body body SaveContentRequest true "作业内容"
// @Success 200 {object} util.Response{data=model.Assignment}
// @Failure 409 {object} util.Response "当前状态不可编辑"
// @Router /api/assignments/{id}/content [put]
func (c *AssignmentController) SaveContent(ctx *gin.Context) {
	var req SaveContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	assignment, err := c.AssignmentService.SaveContent(ctx.Param("id"), claims.UserID, req.Content)
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Success(ctx, assignment)
}

// Submit godoc
// @Summary 提交/重新提交作业
// @Tags 作业
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作业ID"
// @Success 200 {object} util.Response{data=model.Assignment}
// @Failure 409 {object} util.Response "当前状态不可提交"
// @Router /api/assignments/{id}/submit [post]
func (c *AssignmentController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	assignment, err := c.AssignmentService.Submit(ctx.Param("id"), claims.UserID)
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Success(ctx, assignment)
}

// ActionRequest 教师批改动作
type ActionRequest struct {
	Action string `json:"action" binding:"required,oneof=review revision completed"`
}

// Action godoc
// @Summary 教师批改动作
// @Description review=开始批改 revision=退回修改 completed=批改完成;终态动作给学生发邮件
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作业ID"
// @Param   body body ActionRequest true "动作"
// @Success 200 {object} util.Response{data=model.Assignment}
// @Failure 409 {object} util.Response "状态流转不合法"
// @Router /api/teacher/assignments/{id}/action [post]
func (c *AssignmentController) Action(ctx *gin.Context) {
	var req ActionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assignment, err := c.AssignmentService.TeacherAction(ctx.Param("id"), req.Action)
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Success(ctx, assignment)
}

func (c *AssignmentController) renderError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAssignmentNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrContentLocked), errors.Is(err, util.ErrInvalidTransition):
		util.Error(ctx, 409, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
