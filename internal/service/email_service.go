package service

import (
	"fmt"

	"edu_portal_backend/internal/config"
	"edu_portal_backend/internal/model"
	"edu_portal_backend/pkg/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// EmailService 发送事务性邮件。实现要求非阻塞失败:发送失败只记录日志,
// 不影响调用方的业务流程。
type EmailService interface {
	SendStatusChange(student *model.User, assignmentTitle string, state model.ReviewState) error
}

type statusTemplate struct {
	subject string
	body    string
}

func templateFor(state model.ReviewState, assignmentTitle string) (statusTemplate, bool) {
	switch state {
	case model.StateCompleted:
		return statusTemplate{
			subject: "作业已批改完成",
			body:    fmt.Sprintf("你的作业《%s》已批改完成,登录学习门户查看教师反馈。", assignmentTitle),
		}, true
	case model.StateRevisionRequested:
		return statusTemplate{
			subject: "作业需要修改",
			body:    fmt.Sprintf("教师对你的作业《%s》提出了修改意见,请登录学习门户查看标注并重新提交。", assignmentTitle),
		}, true
	case model.StateUnderReview:
		return statusTemplate{
			subject: "作业批改中",
			body:    fmt.Sprintf("你的作业《%s》已进入批改流程。", assignmentTitle),
		}, true
	}
	return statusTemplate{}, false
}

// SendgridEmailService 通过 SendGrid 发送邮件
type SendgridEmailService struct {
	client      *sendgrid.Client
	fromName    string
	fromAddress string
}

func NewSendgridEmailService(cfg config.EmailConfig) *SendgridEmailService {
	return &SendgridEmailService{
		client:      sendgrid.NewSendClient(cfg.SendgridAPIKey),
		fromName:    cfg.FromName,
		fromAddress: cfg.FromAddress,
	}
}

func (s *SendgridEmailService) SendStatusChange(student *model.User, assignmentTitle string, state model.ReviewState) error {
	tpl, ok := templateFor(state, assignmentTitle)
	if !ok {
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromAddress)
	to := mail.NewEmail(student.FullName, student.Email)
	message := mail.NewSingleEmail(from, tpl.subject, to, tpl.body, tpl.body)

	resp, err := s.client.Send(message)
	if err != nil {
		logger.Log.Warn("邮件发送失败",
			zap.String("email", student.Email),
			zap.Error(err))
		return err
	}
	if resp.StatusCode >= 400 {
		logger.Log.Warn("邮件服务返回错误",
			zap.String("email", student.Email),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("sendgrid: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ConsoleEmailService 开发环境实现,把邮件内容写进日志
type ConsoleEmailService struct{}

func NewConsoleEmailService() *ConsoleEmailService {
	return &ConsoleEmailService{}
}

func (s *ConsoleEmailService) SendStatusChange(student *model.User, assignmentTitle string, state model.ReviewState) error {
	tpl, ok := templateFor(state, assignmentTitle)
	if !ok {
		return nil
	}
	logger.Log.Info("邮件(console)",
		zap.String("to", student.Email),
		zap.String("subject", tpl.subject),
		zap.String("body", tpl.body))
	return nil
}

// NewEmailService 按配置选择实现,默认 console
func NewEmailService(cfg config.EmailConfig) EmailService {
	if cfg.Provider == "sendgrid" && cfg.SendgridAPIKey != "" {
		return NewSendgridEmailService(cfg)
	}
	return NewConsoleEmailService()
}
