package controller

import (
	"strconv"
	"time"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/service"
	"edu_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CycleController struct {
	CycleService *service.CycleService
	UserService  *service.UserService
}

func NewCycleController(cycleService *service.CycleService, userService *service.UserService) *CycleController {
	return &CycleController{CycleService: cycleService, UserService: userService}
}

// CycleRequest 周期创建/修改请求
type CycleRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	IsActive    *bool      `json:"isActive"`
}

// Create godoc
// @Summary 创建学习周期
// @Tags 周期
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body CycleRequest true "周期信息"
// @Success 201 {object} util.Response{data=model.Cycle}
// @Router /api/teacher/cycles [post]
func (c *CycleController) Create(ctx *gin.Context) {
	var req CycleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	cycle := &model.Cycle{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsActive:    true,
	}
	if req.IsActive != nil {
		cycle.IsActive = *req.IsActive
	}

	if err := c.CycleService.Create(cycle); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, cycle)
}

// Get godoc
// @Summary 周期详情,含课程列表
// @Tags 周期
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "周期ID"
// @Success 200 {object} util.Response{data=model.Cycle}
// @Router /api/cycles/{id} [get]
func (c *CycleController) Get(ctx *gin.Context) {
	cycle, err := c.CycleService.Get(ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, cycle)
}

// List godoc
// @Summary 周期列表
// @Tags 周期
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/cycles [get]
func (c *CycleController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	cycles, total, err := c.CycleService.List(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.SuccessPage(ctx, cycles, total, page, limit)
}

// Update godoc
// @Summary 修改周期
// @Tags 周期
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "周期ID"
// @Param   body body CycleRequest true "周期信息"
// @Success 200 {object} util.Response{data=model.Cycle}
// @Router /api/teacher/cycles/{id} [put]
func (c *CycleController) Update(ctx *gin.Context) {
	cycle, err := c.CycleService.Get(ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return
	}

	var req CycleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	cycle.Name = req.Name
	cycle.Description = req.Description
	cycle.StartDate = req.StartDate
	cycle.EndDate = req.EndDate
	if req.IsActive != nil {
		cycle.IsActive = *req.IsActive
	}

	if err := c.CycleService.Update(cycle); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, cycle)
}

// Delete godoc
// @Summary 删除周期
// @Tags 周期
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "周期ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/cycles/{id} [delete]
func (c *CycleController) Delete(ctx *gin.Context) {
	if err := c.CycleService.Delete(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Students godoc
// @Summary 周期内激活学生名单
// @Tags 周期
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "周期ID"
// @Success 200 {object} util.Response{data=[]model.User}
// @Router /api/teacher/cycles/{id}/students [get]
func (c *CycleController) Students(ctx *gin.Context) {
	students, err := c.UserService.ListStudentsByCycle(ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, students)
}
