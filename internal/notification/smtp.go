package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// TLSMode selects how the connection to the mail server is secured
type TLSMode string

const (
	// TLSImplicit wraps the connection in TLS from the first byte (port 465)
	TLSImplicit TLSMode = "implicit"
	// TLSStartTLS requires the server to upgrade with STARTTLS
	TLSStartTLS TLSMode = "starttls"
	// TLSOpportunistic upgrades with STARTTLS when the server offers it
	TLSOpportunistic TLSMode = "opportunistic"
	// TLSNone sends in plain text
	TLSNone TLSMode = "none"
)

// SMTPConfig holds outbound mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      TLSMode
	Timeout  time.Duration
}

// mailClient is the part of the go-mail client the sender needs
type mailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPSender renders messages and delivers them over SMTP
type SMTPSender struct {
	client   mailClient
	from     *mail.Address
	domain   string
	renderer *Renderer
	logger   *slog.Logger
}

// NewSMTPSender creates an SMTPSender. Auth is only used when a username is set.
func NewSMTPSender(cfg SMTPConfig, renderer *Renderer, logger *slog.Logger) (*SMTPSender, error) {
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", cfg.From, err)
	}

	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPSender{
		client:   client,
		from:     from,
		domain:   domainOf(from.Address),
		renderer: renderer,
		logger:   logger,
	}, nil
}

func clientOptions(cfg SMTPConfig) ([]gomail.Option, error) {
	var opts []gomail.Option

	switch cfg.TLS {
	case TLSImplicit:
		opts = append(opts, gomail.WithSSL())
	case TLSStartTLS:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	case TLSOpportunistic, "":
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	case TLSNone:
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	default:
		return nil, fmt.Errorf("unknown smtp tls mode %q", cfg.TLS)
	}

	// port last so the TLS options cannot move it
	opts = append(opts, gomail.WithPort(cfg.Port))

	if cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.Timeout))
	}

	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	return opts, nil
}

// Dispatch renders msg and hands it to the SMTP server. Invalid messages
// fail with ErrInvalidMessage; transport failures are returned as is.
func (s *SMTPSender) Dispatch(ctx context.Context, msg Message) error {
	email, err := s.renderer.Render(&msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	m, err := s.buildMsg(email, msg.ID, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}

	s.logger.Info("Email sent",
		slog.String("message_id", msg.ID),
		slog.String("kind", string(msg.Kind)),
		slog.String("to", email.To),
	)
	return nil
}

// buildMsg assembles a multipart/alternative mail with a plain-text body and
// an HTML alternative
func (s *SMTPSender) buildMsg(email *Email, messageID string, date time.Time) (*gomail.Msg, error) {
	m := gomail.NewMsg()

	if err := m.FromFormat(s.from.Name, s.from.Address); err != nil {
		return nil, fmt.Errorf("failed to set sender: %w", err)
	}
	if err := m.To(email.To); err != nil {
		return nil, fmt.Errorf("failed to set recipient %q: %w", email.To, err)
	}

	m.Subject(email.Subject)
	m.SetMessageIDWithValue(messageID + "@" + s.domain)
	m.SetDateWithValue(date)
	m.SetBodyString(gomail.TypeTextPlain, email.Text)
	m.AddAlternativeString(gomail.TypeTextHTML, email.HTML)

	return m, nil
}

func domainOf(address string) string {
	for i := len(address) - 1; i >= 0; i-- {
		if address[i] == '@' {
			return address[i+1:]
		}
	}
	return "localhost"
}
