package controller

import (
	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/service"
	"edu_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

// LessonRequest 课程创建/修改请求
type LessonRequest struct {
	CycleID     string `json:"cycleId" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Content     string `json:"content"`
	OrderIndex  int    `json:"orderIndex"`
}

// Create godoc
// @Summary 创建课程
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body LessonRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Router /api/teacher/lessons [post]
func (c *LessonController) Create(ctx *gin.Context) {
	var req LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson := &model.Lesson{
		CycleID:     req.CycleID,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		OrderIndex:  req.OrderIndex,
	}
	if err := c.LessonService.Create(lesson); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// Get godoc
// @Summary 课程详情
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/lessons/{id} [get]
func (c *LessonController) Get(ctx *gin.Context) {
	lesson, err := c.LessonService.Get(ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, lesson)
}

// ListByCycle godoc
// @Summary 周期下课程列表,按 orderIndex 排序
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   cycleId query string true "周期ID"
// @Success 200 {object} util.Response{data=[]model.Lesson}
// @Router /api/lessons [get]
func (c *LessonController) ListByCycle(ctx *gin.Context) {
	cycleID := ctx.Query("cycleId")
	if cycleID == "" {
		util.BadRequest(ctx, "cycleId 不能为空")
		return
	}

	lessons, err := c.LessonService.ListByCycle(cycleID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// Update godoc
// @Summary 修改课程
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "课程ID"
// @Param   body body LessonRequest true "课程信息"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/teacher/lessons/{id} [put]
func (c *LessonController) Update(ctx *gin.Context) {
	lesson, err := c.LessonService.Get(ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return
	}

	var req LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson.CycleID = req.CycleID
	lesson.Title = req.Title
	lesson.Description = req.Description
	lesson.Content = req.Content
	lesson.OrderIndex = req.OrderIndex

	if err := c.LessonService.Update(lesson); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// Delete godoc
// @Summary 删除课程
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/lessons/{id} [delete]
func (c *LessonController) Delete(ctx *gin.Context) {
	if err := c.LessonService.Delete(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Publish godoc
// @Summary 发布课程
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/teacher/lessons/{id}/publish [post]
func (c *LessonController) Publish(ctx *gin.Context) {
	lesson, err := c.LessonService.Publish(ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, lesson)
}

// UploadMaterial godoc
// @Summary 上传课件素材
// @Description 视频文件会先探测时长再入库
// @Tags 课程
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "课程ID"
// @Param   file formData file true "课件文件"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/teacher/lessons/{id}/materials [post]
func (c *LessonController) UploadMaterial(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少上传文件")
		return
	}

	lesson, err := c.LessonService.AttachMaterial(ctx.Request.Context(), ctx.Param("id"), file)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}
