package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"net/textproto"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/tenantconf"
)

// SMTPOption configures the behaviour of the SMTP client.
type SMTPOption func(*SMTPClient)

// WithSMTPDialer swaps the network dialer used to establish SMTP connections.
func WithSMTPDialer(d Dialer) SMTPOption {
	return func(c *SMTPClient) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithSMTPTLSConfig overrides the TLS configuration used when negotiating STARTTLS.
func WithSMTPTLSConfig(cfg *tls.Config) SMTPOption {
	return func(c *SMTPClient) {
		c.tlsConfig = cfg
	}
}

// WithSMTPHelloName customises the EHLO/HELO identity presented to servers.
func WithSMTPHelloName(name string) SMTPOption {
	return func(c *SMTPClient) {
		if strings.TrimSpace(name) != "" {
			c.helloName = strings.TrimSpace(name)
		}
	}
}

// WithSMTPClock overrides the clock used for timestamps.
func WithSMTPClock(now func() time.Time) SMTPOption {
	return func(c *SMTPClient) {
		if now != nil {
			c.now = now
		}
	}
}

// Dialer abstracts net.Dialer to simplify testing.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// SMTPClient delivers email over a tenant's own SMTP relay. Host and
// credentials arrive with each call, so a single client serves all tenants.
type SMTPClient struct {
	logger    zerolog.Logger
	dialer    Dialer
	tlsConfig *tls.Config
	now       func() time.Time
	helloName string
}

// NewSMTPClient constructs an SMTP client.
func NewSMTPClient(logger zerolog.Logger, opts ...SMTPOption) *SMTPClient {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	c := &SMTPClient{
		logger:    logger,
		dialer:    &net.Dialer{Timeout: 30 * time.Second},
		now:       time.Now,
		helloName: "localhost",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Send delivers the payload through the relay described by cfg.
func (c *SMTPClient) Send(ctx context.Context, cfg tenantconf.SMTPSettings, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, errors.New("smtp: payload is required")
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp: host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("smtp: invalid port %d", cfg.Port)
	}
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("smtp: recipient is required")
	}

	from := strings.TrimSpace(payload.From)
	if from == "" {
		from = cfg.FromAddress
	}
	if from == "" {
		from = cfg.Username
	}

	message := c.buildMessage(payload, from)

	resp := &RawResponse{
		ID:        payload.MessageID,
		Timestamp: c.now(),
	}

	if err := c.deliver(ctx, cfg, from, payload.To, message); err != nil {
		resp.Body = err.Error()
		return resp, err
	}

	resp.Code = 250
	resp.Body = "smtp: message accepted"
	return resp, nil
}

func (c *SMTPClient) deliver(ctx context.Context, cfg tenantconf.SMTPSettings, from, to string, message []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp: dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp: new client: %w", err)
	}
	defer client.Close()

	if err := client.Hello(c.helloName); err != nil {
		return fmt.Errorf("smtp: hello: %w", err)
	}

	if tlsCfg := c.sessionTLSConfig(cfg.Host); tlsCfg != nil {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("smtp: starttls: %w", err)
			}
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp: rcpt to %s: %w", to, err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}
	if _, err := writer.Write(message); err != nil {
		_ = writer.Close()
		return fmt.Errorf("smtp: data write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp: data close: %w", err)
	}

	if err := client.Quit(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("smtp: quit: %w", err)
	}

	return ctx.Err()
}

func (c *SMTPClient) buildMessage(payload *Payload, from string) []byte {
	// Keys are canonicalized on insertion so the sorted emit loop below
	// always finds them again.
	headers := make(map[string]string)
	set := func(key, value string) {
		headers[textproto.CanonicalMIMEHeaderKey(key)] = value
	}

	set("From", from)
	set("To", payload.To)
	set("Date", c.now().UTC().Format(time.RFC1123Z))
	set("MIME-Version", "1.0")
	if payload.Subject != "" {
		set("Subject", sanitizeHeaderValue(payload.Subject))
	}
	if payload.MessageID != "" {
		set("Message-Id", sanitizeHeaderValue(payload.MessageID))
	}

	body := payload.Text
	contentType := `text/plain; charset="UTF-8"`
	if strings.TrimSpace(payload.HTML) != "" {
		body = payload.HTML
		contentType = `text/html; charset="UTF-8"`
	}
	set("Content-Type", contentType)

	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, key := range keys {
		value := headers[key]
		if value == "" {
			continue
		}
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.WriteString(normalizeBody(body))

	return buf.Bytes()
}

func (c *SMTPClient) sessionTLSConfig(host string) *tls.Config {
	if c.tlsConfig != nil {
		cfg := c.tlsConfig.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = host
		}
		return cfg
	}
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}

func sanitizeHeaderValue(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return strings.ReplaceAll(body, "\n", "\r\n")
}
