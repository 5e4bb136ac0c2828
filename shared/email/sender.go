package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"
	"time"

	"yt-analytics/internal/models"
	"yt-analytics/internal/predictor"
	"yt-analytics/internal/query"
	"yt-analytics/shared/config"
)

//go:embed templates/digest.html
var templates embed.FS

var digestTemplate = template.Must(template.New("digest.html").Funcs(template.FuncMap{
	"inc":       func(i int) int { return i + 1 },
	"pct":       func(rate float64) string { return fmt.Sprintf("%.2f%%", rate*100) },
	"thousands": thousands,
}).ParseFS(templates, "templates/digest.html"))

// DigestReport is the content of one trending digest.
type DigestReport struct {
	RunID   string
	Date    time.Time
	Query   string
	Summary query.Summary
	Videos  []models.VideoView
	Model   *predictor.Evaluation
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Sender struct {
	config *config.EmailConfig
	send   sendFunc
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
		send:   smtp.SendMail,
	}
}

// SendDigest mails the report. A report without videos is not sent.
func (s *Sender) SendDigest(report *DigestReport) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}
	if len(report.Videos) == 0 {
		return nil
	}

	subject := fmt.Sprintf("YouTube Trending Digest - %d Videos (%s)",
		len(report.Videos), report.Date.Format("Jan 2, 2006"))

	body, err := RenderDigest(report)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return s.SendHTML(subject, body)
}

// SendHTML sends an email with custom HTML content
func (s *Sender) SendHTML(subject, htmlBody string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.config.ToEmail, s.config.FromEmail, subject, htmlBody))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	if err := s.send(addr, auth, s.config.FromEmail, to, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// RenderDigest renders the HTML body of a digest.
func RenderDigest(report *DigestReport) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
