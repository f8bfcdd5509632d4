// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/pdiddy/roi-brief/pkg/types"
)

const defaultSMTPPort = 587

// SMTP sends through an SMTP relay using PLAIN auth when credentials are
// configured.
type SMTP struct {
	addr string
	host string
	auth smtp.Auth

	// sendMail delivers msg over one SMTP session; tests replace it.
	sendMail func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now      func() time.Time
}

// NewSMTP builds an SMTP notifier.
func NewSMTP(cfg types.EmailConfig) (*SMTP, error) {
	if cfg.SMTPHost == "" {
		return nil, errors.New("smtp: host required")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = defaultSMTPPort
	}
	s := &SMTP{
		addr: net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(port)),
		host: cfg.SMTPHost,
		now:  time.Now,
	}
	s.sendMail = s.deliver
	if cfg.SMTPUsername != "" {
		s.auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return s, nil
}

// Send composes the MIME message and hands it to the relay. The session
// is abandoned when ctx is done.
func (s *SMTP) Send(ctx context.Context, e Email) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	msgID := newMessageID(s.host)
	msg, err := BuildMessage(e, s.now(), msgID)
	if err != nil {
		return "", err
	}
	from, err := mail.ParseAddress(e.From)
	if err != nil {
		return "", fmt.Errorf("parsing sender: %w", err)
	}
	to, err := mail.ParseAddress(e.To)
	if err != nil {
		return "", fmt.Errorf("parsing recipient: %w", err)
	}
	if err := s.sendMail(ctx, s.addr, s.auth, from.Address, []string{to.Address}, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("smtp send to %s: %w: %w", to.Address, ctxErr, err)
		}
		return "", fmt.Errorf("smtp send to %s: %w", to.Address, err)
	}
	return msgID, nil
}

// deliver runs the smtp.SendMail exchange on a connection bound to ctx.
// The connection is closed as soon as ctx is done, which unblocks any
// pending read or write.
func (s *SMTP) deliver(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// BuildMessage renders e as a single-part text/html MIME message.
func BuildMessage(e Email, date time.Time, messageID string) ([]byte, error) {
	from, err := mail.ParseAddress(e.From)
	if err != nil {
		return nil, fmt.Errorf("parsing sender: %w", err)
	}
	to, err := mail.ParseAddress(e.To)
	if err != nil {
		return nil, fmt.Errorf("parsing recipient: %w", err)
	}

	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject(e.Subject)
	if messageID != "" {
		h.SetMessageID(messageID)
	}
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(w, e.HTML); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}
	return buf.Bytes(), nil
}

func newMessageID(host string) string {
	return uuid.NewString() + "@" + host
}
