package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/atlantishq/dispatchd/internal/config"
	"github.com/atlantishq/dispatchd/pkg/models"
)

const (
	smtpSecurityNone     = "none"
	smtpSecurityStartTLS = "starttls"
	smtpSecurityTLS      = "tls"
)

// EmailSender delivers over SMTP.
type EmailSender struct {
	host          string
	port          int
	username      string
	password      string
	from          string
	subject       string
	security      string
	timeout       time.Duration
	skipTLSVerify bool
}

// NewEmailSender creates an SMTP sender from config.
func NewEmailSender(cfg config.SMTPConfig) (*EmailSender, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return nil, fmt.Errorf("smtp host, port and from address are required")
	}

	security := strings.ToLower(strings.TrimSpace(cfg.Security))
	switch security {
	case smtpSecurityNone, smtpSecurityStartTLS, smtpSecurityTLS:
	default:
		security = smtpSecurityStartTLS
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &EmailSender{
		host:          strings.TrimSpace(cfg.Host),
		port:          cfg.Port,
		username:      strings.TrimSpace(cfg.Username),
		password:      cfg.Password,
		from:          strings.TrimSpace(cfg.From),
		subject:       cfg.Subject,
		security:      security,
		timeout:       timeout,
		skipTLSVerify: cfg.SkipTLSVerify,
	}, nil
}

func (s *EmailSender) Method() models.DeliveryMethod {
	return models.MethodEmail
}

func (s *EmailSender) Send(ctx context.Context, view models.DispatchView) error {
	if view.Email == "" {
		return fmt.Errorf("recipient %q has no email address", view.Username)
	}
	return s.sendEmail(ctx, view.Email, s.buildMessage(view))
}

func (s *EmailSender) buildMessage(view models.DispatchView) []byte {
	subject := s.subject
	if view.Title != "" {
		subject = view.Title
	}
	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", view.Email),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}
	body := view.Message
	if view.Link != "" && !strings.Contains(body, view.Link) {
		body = body + "\n" + view.Link
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body + "\r\n")
}

func (s *EmailSender) sendEmail(ctx context.Context, recipient string, message []byte) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(s.from); err != nil {
		return err
	}
	if err := client.Rcpt(recipient); err != nil {
		return err
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write(message); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (s *EmailSender) connect(ctx context.Context) (*smtp.Client, error) {
	address := fmt.Sprintf("%s:%d", s.host, s.port)
	dialer := &net.Dialer{Timeout: s.timeout}
	var (
		conn net.Conn
		err  error
	)
	if s.security == smtpSecurityTLS {
		tlsConfig := &tls.Config{ServerName: s.host, InsecureSkipVerify: s.skipTLSVerify} // #nosec G402
		conn, err = tls.DialWithDialer(dialer, "tcp", address, tlsConfig)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}
	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if s.security == smtpSecurityStartTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			_ = client.Close()
			return nil, fmt.Errorf("smtp server does not support STARTTLS")
		}
		tlsConfig := &tls.Config{ServerName: s.host, InsecureSkipVerify: s.skipTLSVerify} // #nosec G402
		if err := client.StartTLS(tlsConfig); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	if s.username != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}
