// Package notify manda un mail de resumen al terminar un plan de
// mantenimiento (opcional; los sites suelen avisar al turno siguiente).
package notify

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/mailmaint/internal/observability/logger"
	"github.com/dropDatabas3/mailmaint/internal/sequencer"
)

// SMTPNotifier manda los resúmenes por SMTP.
type SMTPNotifier struct {
	Host    string
	Port    int
	From    string
	User    string
	Pass    string
	TLSMode string // "auto" | "starttls" | "ssl" | "none"
	To      []string
}

// PlanFinished arma y envía el resumen del outcome.
func (n *SMTPNotifier) PlanFinished(out sequencer.Outcome) error {
	if len(n.To) == 0 {
		return nil
	}
	log := logger.Named("notify").With(
		logger.PlanName(out.Plan),
		logger.Server(out.Server),
	)

	subject := fmt.Sprintf("[mailmaint] %s %s: %s", out.Plan, out.Server, statusWord(out))
	body := summary(out)

	m := mail.NewMessage()
	m.SetHeader("From", n.From)
	m.SetHeader("To", n.To...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := mail.NewDialer(n.Host, n.Port, n.User, n.Pass)
	d.TLSConfig = &tls.Config{ServerName: n.Host}
	switch n.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} // solo dev
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		log.Warn("summary mail failed", logger.Err(err))
		return fmt.Errorf("notify: send summary: %w", err)
	}
	log.Info("summary mail sent", logger.Count(len(n.To)))
	return nil
}

func statusWord(out sequencer.Outcome) string {
	switch {
	case out.OK() && len(out.Warnings()) > 0:
		return "completed with warnings"
	case out.OK():
		return "completed"
	default:
		return "FAILED"
	}
}

// summary produce el cuerpo en texto plano, un paso por línea.
func summary(out sequencer.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan:    %s\nServer:  %s\nRun ID:  %s\nResult:  %s\nTook:    %s\n\n",
		out.Plan, out.Server, out.RunID, statusWord(out), out.Took.Round(time.Millisecond))
	for _, s := range out.Steps {
		line := fmt.Sprintf("  [%s] %s", s.Status, s.Label)
		if s.Detail != "" {
			line += " — " + s.Detail
		}
		b.WriteString(line + "\n")
	}
	if out.Err != nil {
		fmt.Fprintf(&b, "\nAborted: %v\n", out.Err)
	}
	if out.Record != nil && out.Record.Policy != "" {
		fmt.Fprintf(&b, "\nPre-maintenance activation policy: %s (restore it on exit)\n", out.Record.Policy)
	}
	return b.String()
}
