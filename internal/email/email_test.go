package email

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"hr-center/internal/config"
)

// smtpSink accepts one SMTP session per connection and keeps the DATA payloads.
type smtpSink struct {
	listener net.Listener
	mu       sync.Mutex
	messages []string
	rcpts    []string
}

func newSMTPSink(t *testing.T) *smtpSink {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	s := &smtpSink{listener: l}
	t.Cleanup(func() { l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *smtpSink) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { conn.Write([]byte(line + "\r\n")) }

	reply("220 localhost ESMTP sink")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 localhost")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			reply("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO"):
			s.mu.Lock()
			s.rcpts = append(s.rcpts, strings.TrimSpace(line))
			s.mu.Unlock()
			reply("250 OK")
		case cmd == "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			s.mu.Lock()
			s.messages = append(s.messages, b.String())
			s.mu.Unlock()
			reply("250 OK queued")
		case cmd == "QUIT":
			reply("221 Bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func (s *smtpSink) config() *config.EmailConfig {
	host, port, _ := net.SplitHostPort(s.listener.Addr().String())
	return &config.EmailConfig{
		SMTPHost:  host,
		SMTPPort:  port,
		SMTPFrom:  "hr@example.com",
		PortalURL: "https://portal.example.com",
		Enabled:   true,
	}
}

func (s *smtpSink) snapshot() ([]string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...), append([]string(nil), s.rcpts...)
}

func TestSendAssignmentCreated(t *testing.T) {
	sink := newSMTPSink(t)
	svc := NewService(sink.config())

	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.SendAssignmentCreated(ctx, "anna@example.com", "Anna <Admin>", "NDA", 12, &due); err != nil {
		t.Fatalf("SendAssignmentCreated failed: %v", err)
	}

	messages, rcpts := sink.snapshot()
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}
	msg := messages[0]
	for _, want := range []string{
		"Subject: Document to sign: NDA",
		"To: anna@example.com",
		"https://portal.example.com/documents/12",
		"March 1, 2026",
		"Anna &lt;Admin&gt;",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected message to contain %q", want)
		}
	}
	if len(rcpts) != 1 || !strings.Contains(rcpts[0], "anna@example.com") {
		t.Errorf("Unexpected recipients %v", rcpts)
	}
}

func TestSendOverdue(t *testing.T) {
	sink := newSMTPSink(t)
	svc := NewService(sink.config())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	due := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	if err := svc.SendOverdue(ctx, "max@example.com", "Max", "Handbook", 7, due); err != nil {
		t.Fatalf("SendOverdue failed: %v", err)
	}

	messages, _ := sink.snapshot()
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}
	for _, want := range []string{
		"Subject: OVERDUE: Handbook - Action Required",
		"October 1, 2026",
		"https://portal.example.com/documents/7",
	} {
		if !strings.Contains(messages[0], want) {
			t.Errorf("Expected message to contain %q", want)
		}
	}
}

func TestSendDisabled(t *testing.T) {
	svc := NewService(&config.EmailConfig{SMTPHost: "127.0.0.1", SMTPPort: "1", Enabled: false})
	if err := svc.SendReminder(context.Background(), "a@example.com", "A", "NDA", 1); err != nil {
		t.Errorf("Expected disabled email to be a no-op, got %v", err)
	}
}

func TestSendConnectionFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	host, port, _ := net.SplitHostPort(l.Addr().String())
	l.Close()

	svc := NewService(&config.EmailConfig{SMTPHost: host, SMTPPort: port, Enabled: true})
	err = svc.SendSigningConfirmation(context.Background(), "a@example.com", "A", "NDA", "https://dl", time.Now())
	if err == nil {
		t.Error("Expected connection error")
	}
}
