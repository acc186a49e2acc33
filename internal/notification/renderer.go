package notification

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Email is a rendered message ready for a mail transport
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Renderer turns logical messages into emails using the embedded templates
type Renderer struct {
	frontendURL string
	html        *htmltemplate.Template
	text        *texttemplate.Template
}

type view struct {
	Message
	Job            JobSummary
	SentAt         time.Time
	SettingsURL    string
	UnsubscribeURL string
	EditAlertURL   string
	AlertURL       string
	InterviewURL   string
}

// NewRenderer parses the embedded templates. Links point at frontendURL.
func NewRenderer(frontendURL string) (*Renderer, error) {
	frontendURL = strings.TrimRight(frontendURL, "/")

	funcs := map[string]any{
		"jobURL":         func(id string) string { return frontendURL + "/jobs/" + id },
		"capitalize":     capitalize,
		"formatDate":     formatDate,
		"formatSalary":   formatSalary,
		"formatLocation": formatLocation,
		"formatDay":      formatDay,
		"formatClock":    formatClock,
	}

	html, err := htmltemplate.New("html").Funcs(funcs).ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}

	text, err := texttemplate.New("text").Funcs(funcs).ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}

	return &Renderer{frontendURL: frontendURL, html: html, text: text}, nil
}

// Render produces the HTML and plain-text bodies for msg
func (r *Renderer) Render(msg *Message) (*Email, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	v := view{
		Message: *msg,
		SentAt:  msg.CreatedAt,
	}
	if len(msg.Data.Jobs) > 0 {
		v.Job = msg.Data.Jobs[0]
	}
	if v.SentAt.IsZero() {
		v.SentAt = time.Now()
	}

	switch msg.Kind {
	case KindCompanyJob:
		v.SettingsURL = r.frontendURL + "/settings/subscriptions"
		v.UnsubscribeURL = fmt.Sprintf("%s/subscriptions/%s/unsubscribe", r.frontendURL, msg.Data.SubscriptionID)
	case KindCustomAlert, KindBatchDigest:
		v.SettingsURL = r.frontendURL + "/settings/job-alerts"
		v.EditAlertURL = fmt.Sprintf("%s/job-alerts/%s/edit", r.frontendURL, msg.Data.AlertID)
		v.AlertURL = fmt.Sprintf("%s/job-alerts/%s", r.frontendURL, msg.Data.AlertID)
	case KindInterviewReminder:
		v.InterviewURL = fmt.Sprintf("%s/user/interviews/%s", r.frontendURL, msg.Data.Interview.ID)
	}

	var html, text bytes.Buffer
	if err := r.html.ExecuteTemplate(&html, string(msg.Kind)+".html.tmpl", v); err != nil {
		return nil, fmt.Errorf("failed to render html for %s: %w", msg.Kind, err)
	}
	if err := r.text.ExecuteTemplate(&text, string(msg.Kind)+".txt.tmpl", v); err != nil {
		return nil, fmt.Errorf("failed to render text for %s: %w", msg.Kind, err)
	}

	return &Email{
		To:      msg.Recipient.Email,
		Subject: msg.Subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

func formatDay(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}

func formatClock(t time.Time) string {
	return t.Format("03:04 PM MST")
}

func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func formatSalary(j JobSummary) string {
	if j.SalaryMin == nil && j.SalaryMax == nil {
		return "Not specified"
	}

	var b strings.Builder
	if j.SalaryCurrency != "" {
		b.WriteString(j.SalaryCurrency + " ")
	}
	if j.SalaryMin != nil {
		b.WriteString(formatAmount(*j.SalaryMin))
	}
	if j.SalaryMax != nil {
		if j.SalaryMin != nil {
			b.WriteString(" - ")
		}
		b.WriteString(formatAmount(*j.SalaryMax))
	} else {
		b.WriteString("+")
	}
	return b.String()
}

func formatLocation(j JobSummary) string {
	if j.LocationType == "remote" {
		return "Remote"
	}

	var parts []string
	for _, p := range []string{j.City, j.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return capitalize(j.LocationType)
	}
	return strings.Join(parts, ", ")
}
