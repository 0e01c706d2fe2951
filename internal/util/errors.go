package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrFeedbackNotFound   = errors.New("feedback not found")
	ErrEmptySelection     = errors.New("selection is empty")
	ErrEmptyComment       = errors.New("comment is empty")
	ErrTextNotInContent   = errors.New("selected text not found in student content")
	ErrContentLocked      = errors.New("submission is locked after submit")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidRole        = errors.New("invalid chat role")
	ErrInvalidUserRole    = errors.New("invalid user role")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrChatUnavailable    = errors.New("聊天初始化失败")
	ErrInvalidToken       = errors.New("无效的令牌")
)
