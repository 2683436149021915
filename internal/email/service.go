package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

type Service interface {
	SendVerification(ctx context.Context, email string, token string) error
	SendWelcome(ctx context.Context, email string, name string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string
}

type smtpService struct {
	cfg    Config
	dialer *gomail.Dialer
}

func NewSMTPService(cfg Config) Service {
	return &smtpService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpService) SendVerification(ctx context.Context, email string, token string) error {
	link := fmt.Sprintf("%s/api/v1/auth/verify?token=%s", s.cfg.BaseURL, token)
	body := fmt.Sprintf("<p>Welcome to RoundBuy!</p><p>Please <a href=%q>verify your email</a> to activate your account.</p>", link)
	return s.send(email, "Verify your RoundBuy account", body)
}

func (s *smtpService) SendWelcome(ctx context.Context, email string, name string) error {
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your RoundBuy account is ready. Happy trading!</p>", name)
	return s.send(email, "Welcome to RoundBuy", body)
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// NoopService satisfies Service for deployments without SMTP configured.
type NoopService struct{}

func (NoopService) SendVerification(ctx context.Context, email string, token string) error { return nil }
func (NoopService) SendWelcome(ctx context.Context, email string, name string) error       { return nil }
