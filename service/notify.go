package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"menuboard/apperr"
	"menuboard/config"
	"menuboard/logger"

	"gopkg.in/gomail.v2"
)

// ReconcileEvent 存储与数据库不一致时发出的事件，收到后应执行一次对账
type ReconcileEvent struct {
	Op    string
	Slug  string
	Kind  apperr.Kind
	Paths []string
	Cause string
	At    time.Time
}

// Notifier 接收对账事件
type Notifier interface {
	Notify(ctx context.Context, ev ReconcileEvent)
}

// LogNotifier 只写日志
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("service", "ReconcileNotifier")}
}

func (n *LogNotifier) Notify(_ context.Context, ev ReconcileEvent) {
	n.log.Error("存储与数据库不一致，需要执行对账",
		"op", ev.Op,
		"slug", ev.Slug,
		"kind", ev.Kind,
		"paths", ev.Paths,
		"cause", ev.Cause,
	)
}

// EmailNotifier 发送告警邮件
type EmailNotifier struct {
	cfg  *config.EmailConfig
	log  *logger.Logger
	send func(to, subject, body string) error
}

// NewEmailNotifier 创建邮件告警
func NewEmailNotifier(cfg *config.EmailConfig, log *logger.Logger) *EmailNotifier {
	n := &EmailNotifier{cfg: cfg, log: log.With("service", "EmailNotifier")}
	n.send = n.sendEmail
	return n
}

// Notify 邮件在后台发送，不阻塞请求
func (n *EmailNotifier) Notify(_ context.Context, ev ReconcileEvent) {
	if !n.cfg.Enabled || n.cfg.AlertTo == "" {
		return
	}
	subject := fmt.Sprintf("【菜单发布】%s 需要对账: %s", ev.Op, ev.Slug)
	body := n.generateAlertBody(ev)
	go func() {
		if err := n.send(n.cfg.AlertTo, subject, body); err != nil {
			n.log.Warn("发送对账告警邮件失败", "error", err, "slug", ev.Slug)
		}
	}()
}

// generateAlertBody 生成告警邮件内容
func (n *EmailNotifier) generateAlertBody(ev ReconcileEvent) string {
	var paths strings.Builder
	for _, p := range ev.Paths {
		fmt.Fprintf(&paths, "<li><code>%s</code></li>", html.EscapeString(p))
	}
	if paths.Len() == 0 {
		paths.WriteString("<li>无</li>")
	}
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, #f59e0b, #d97706); color: white; padding: 24px; text-align: center; }
        .header h1 { margin: 0; font-size: 22px; }
        .content { padding: 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 12px; }
        .warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0; border-radius: 4px; }
        .footer { background: #f8f9fa; padding: 16px 30px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>菜单存储需要对账</h1>
        </div>
        <div class="content">
            <p>操作：<strong>%s</strong></p>
            <p>菜单：<strong>%s</strong></p>
            <p>类型：%s</p>
            <p>时间：%s</p>
            <p>涉及的存储对象：</p>
            <ul>%s</ul>
            <div class="warning">
                <p>原因：%s</p>
                <p>请在管理后台执行「从存储同步」，或运行 menuboard -reconcile。</p>
            </div>
        </div>
        <div class="footer">
            <p>此邮件由系统自动发送，请勿回复</p>
        </div>
    </div>
</body>
</html>
`, html.EscapeString(ev.Op), html.EscapeString(ev.Slug), ev.Kind,
		ev.At.Format("2006-01-02 15:04:05"), paths.String(), html.EscapeString(ev.Cause))
}

// sendEmail 发送邮件
func (n *EmailNotifier) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(n.cfg.Username, n.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.Username, n.cfg.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	return nil
}

// MultiNotifier 依次通知多个接收方
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, ev ReconcileEvent) {
	for _, n := range m {
		n.Notify(ctx, ev)
	}
}
