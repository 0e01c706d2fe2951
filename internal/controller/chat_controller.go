package controller

import (
	"errors"
	"strconv"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/service"
	"edu_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ChatController 作业聊天。REST 接口服务会话的打开/发送/标记已读,
// websocket 端点负责快照实时推送。
type ChatController struct {
	ChatService       *service.ChatService
	ChatHub           *service.ChatHub
	AssignmentService *service.AssignmentService
}

func NewChatController(chatService *service.ChatService, hub *service.ChatHub, assignmentService *service.AssignmentService) *ChatController {
	return &ChatController{
		ChatService:       chatService,
		ChatHub:           hub,
		AssignmentService: assignmentService,
	}
}

func chatRoleOf(role model.UserRole) model.ChatRole {
	if role == model.Student {
		return model.RoleStudent
	}
	// 管理员按教师参与会话
	return model.RoleTeacher
}

// participantsOf 以作业归属推导会话双方;打开方是教师时顺带补全教师槽位
func (c *ChatController) participantsOf(assignment *model.Assignment, claims *util.Claims) model.Participants {
	p := model.Participants{
		StudentID: strconv.FormatUint(uint64(assignment.StudentID), 10),
	}
	if chatRoleOf(claims.Role) == model.RoleTeacher {
		p.TeacherID = strconv.FormatUint(uint64(claims.UserID), 10)
	}
	return p
}

func (c *ChatController) loadAssignment(ctx *gin.Context, claims *util.Claims) (*model.Assignment, bool) {
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
		if errors.Is(err, util.ErrPermissionDenied) {
			util.Forbidden(ctx)
		} else {
			util.NotFound(ctx)
		}
		return nil, false
	}
	return assignment, true
}

// Open godoc
// @Summary 打开作业会话
// @Description 不存在则创建;有历史消息时清零打开方的未读计数
// @Tags 聊天
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作业ID"
// @Success 200 {object} util.Response{data=model.ChatSnapshot}
// @Router /api/assignments/{id}/chat/open [post]
func (c *ChatController) Open(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	assignment, ok := c.loadAssignment(ctx, claims)
	if !ok {
		return
	}

	userID := strconv.FormatUint(uint64(claims.UserID), 10)
	handle, snapshot, err := c.ChatService.Open(
		assignment.ID, userID, chatRoleOf(claims.Role), c.participantsOf(assignment, claims))
	if err != nil {
		util.Error(ctx, 500, err.Error())
		return
	}
	// REST 打开不保持订阅,实时推送走 websocket
	c.ChatService.Close(handle)

	util.Success(ctx, snapshot)
}

// SendMessageRequest 发送消息
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// Send godoc
// @Summary 发送消息
// @Description 追加消息并给对端未读计数原子加一
// @Tags 聊天
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作业ID"
// @Param   body body SendMessageRequest true "消息内容"
// @Success 200 {object} util.Response{data=model.ChatSnapshot}
// @Failure 400 {object} util.Response "消息为空"
// @Router /api/assignments/{id}/chat/messages [post]
func (c *ChatController) Send(ctx *gin.Context) {
	var req SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	assignment, ok := c.loadAssignment(ctx, claims)
	if !ok {
		return
	}

	userID := strconv.FormatUint(uint64(claims.UserID), 10)
	snapshot, err := c.ChatService.Send(assignment.ID, userID, chatRoleOf(claims.Role), req.Content)
	if err != nil {
		if errors.Is(err, util.ErrEmptyMessage) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, snapshot)
}

// Snapshot godoc
// @Summary 会话快照
// @Tags 聊天
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作业ID"
// @Success 200 {object} util.Response{data=model.ChatSnapshot}
// @Router /api/assignments/{id}/chat [get]
func (c *ChatController) Snapshot(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	assignment, ok := c.loadAssignment(ctx, claims)
	if !ok {
		return
	}

	snapshot, err := c.ChatService.Snapshot(assignment.ID)
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, snapshot)
}

// MarkRead godoc
// @Summary 清零本方未读计数
// @Tags 聊天
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作业ID"
// @Success 200 {object} util.Response
// @Router /api/assignments/{id}/chat/read [post]
func (c *ChatController) MarkRead(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	assignment, ok := c.loadAssignment(ctx, claims)
	if !ok {
		return
	}

	if err := c.ChatService.MarkRead(assignment.ID, chatRoleOf(claims.Role)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Ws godoc
// @Summary 聊天 websocket
// @Description 客户端通过 OPEN_CHAT / SEND_MESSAGE / CLOSE_CHAT 消息驱动,服务端推送 CHAT_SNAPSHOT
// @Tags 聊天
// @Security BearerAuth
// @Router /api/ws/chat [get]
func (c *ChatController) Ws(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	userID := strconv.FormatUint(uint64(claims.UserID), 10)
	service.ServeChatWs(c.ChatHub, c.ChatService, ctx.Writer, ctx.Request, userID, chatRoleOf(claims.Role))
}
