// Package notify mails the outcome of an invocation.
package notify

import (
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"
)

// Policy decides which invocations produce a mail.
type Policy string

const (
	PolicyAll      Policy = "All"
	PolicyWarnings Policy = "Warnings"
	PolicyErrors   Policy = "Errors"
	PolicyNone     Policy = "None"
)

// ParsePolicy accepts a policy name in any letter case.
func ParsePolicy(s string) (Policy, error) {
	for _, p := range []Policy{PolicyAll, PolicyWarnings, PolicyErrors, PolicyNone} {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return PolicyAll, fmt.Errorf("invalid notify policy %q: valid values are All, Warnings, Errors or None", s)
}

// Wants reports whether an invocation with the given result should be mailed.
func (p Policy) Wants(failed, warned bool) bool {
	switch p {
	case PolicyAll:
		return true
	case PolicyWarnings:
		return failed || warned
	case PolicyErrors:
		return failed
	}
	return false
}

// Config holds SMTP settings.
type Config struct {
	From        string
	To          string
	Host        string
	Port        int
	Credentials string // "user,password"; a trailing ",domain" is ignored
	Policy      Policy
}

// Enabled reports whether mail can be sent at all.
func (c Config) Enabled() bool {
	return c.Policy != PolicyNone && c.From != "" && c.To != "" && strings.TrimSpace(c.Host) != ""
}

// Message is the outcome of one invocation.
type Message struct {
	Command      string
	Targets      string
	Failed       bool
	Warned       bool
	ParamSummary string
	Log          string
}

// Subject returns the mail subject line.
func (m Message) Subject() string {
	status := "OK"
	if m.Failed {
		status = "ERROR"
	}
	return strings.TrimSpace(fmt.Sprintf("SCU %s: %s %s", status, m.Command, m.Targets))
}

// Body returns the plain text body: a headline, the parameter summary and
// the processing log.
func (m Message) Body() string {
	var sb strings.Builder
	if m.Failed {
		fmt.Fprintf(&sb, "Error processing request for command: %s\n", m.Command)
	} else {
		fmt.Fprintf(&sb, "Successfully completed processing request for command: %s\n", m.Command)
	}
	sb.WriteString(m.ParamSummary)
	sb.WriteString("\n\n--------------\nProcessing Log\n--------------\n")
	sb.WriteString(m.Log)
	return sb.String()
}

// Sender delivers composed messages.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Notifier sends outcome mails according to its policy.
type Notifier struct {
	cfg    Config
	sender Sender
}

// New returns a Notifier that delivers through an SMTP dialer.
func New(cfg Config) *Notifier {
	user, pass := splitCredentials(cfg.Credentials)
	port := cfg.Port
	if port == 0 {
		port = 25
	}
	return NewWithSender(cfg, gomail.NewDialer(strings.TrimSpace(cfg.Host), port, user, pass))
}

// NewWithSender returns a Notifier that delivers through s.
func NewWithSender(cfg Config, s Sender) *Notifier {
	return &Notifier{cfg: cfg, sender: s}
}

// Notify mails m when the configuration is complete and the policy asks for
// it. It reports whether a mail was sent.
func (n *Notifier) Notify(m Message) (bool, error) {
	if !n.cfg.Enabled() || !n.cfg.Policy.Wants(m.Failed, m.Warned) {
		return false, nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.cfg.From)
	msg.SetHeader("To", splitAddresses(n.cfg.To)...)
	msg.SetHeader("Subject", m.Subject())
	if m.Failed {
		msg.SetHeader("X-Priority", "1")
		msg.SetHeader("Importance", "high")
	}
	msg.SetBody("text/html", "<pre>"+html.EscapeString(m.Body())+"</pre>")

	if err := n.sender.DialAndSend(msg); err != nil {
		return false, fmt.Errorf("send notification: %w", err)
	}
	return true, nil
}

func splitCredentials(s string) (user, pass string) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return "", ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func splitAddresses(s string) []string {
	var out []string
	for _, a := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
