package services

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"liftplanner/models"

	"golang.org/x/net/html"
)

// convertHTMLToText converts an HTML report body to a plain-text alternative
// for mail clients that render text only.
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "table", "tr":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "td", "th":
				text.WriteString(" | ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}
	extractText(doc)

	result := strings.ReplaceAll(text.String(), "\n\n\n", "\n\n")
	return strings.TrimSpace(result)
}

// EmailService sends report-share emails over SMTP. Connection settings come
// from SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD and SMTP_FROM.
type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
	baseURL  string
}

// NewEmailService reads the SMTP configuration from the environment.
func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
		baseURL:  os.Getenv("PUBLIC_BASE_URL"),
	}
}

// ShareReport emails a rendered report summary plus a link to the recipient.
// The body is built from the report view model only; no computation here.
func (es *EmailService) ShareReport(to string, view models.ReportView, senderName string) error {
	if es.host == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	subject := fmt.Sprintf("%s shared a crane lift report with you", senderName)
	link := fmt.Sprintf("%s/reports/%s", strings.TrimRight(es.baseURL, "/"), view.CalculationID)

	htmlBody := fmt.Sprintf(`
		<h2>%s</h2>
		<p>%s shared a crane lift calculation for %s.</p>
		<table>
			<tr><th>Total load</th><td>%.1f t</td></tr>
			<tr><th>Boom angle</th><td>%.1f&deg;</td></tr>
			<tr><th>Minimum boom length</th><td>%.1f m</td></tr>
			<tr><th>Vertical clearance</th><td>%.1f m</td></tr>
		</table>
		<p><a href="%s">Open the full report</a></p>`,
		view.ProjectName, senderName, view.ProjectLocation,
		view.TotalLoad, view.BoomAngle, view.MinBoomLength, view.MinVerticalHeight,
		link,
	)

	return es.sendEmail(to, subject, convertHTMLToText(htmlBody))
}

// SendPasswordReset emails a reset link. The token is single-use and expires
// server-side; the email never states whether the account exists.
func (es *EmailService) SendPasswordReset(to, token string) error {
	if es.host == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	link := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(es.baseURL, "/"), token)
	body := fmt.Sprintf("A password reset was requested for this address.\n\n"+
		"Open the link below to choose a new password:\n\n%s\n\n"+
		"The link expires in 15 minutes. If you did not request this, ignore this email.", link)

	return es.sendEmail(to, "Reset your password", body)
}

func (es *EmailService) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", es.user, es.password, es.host)

	headers := []string{
		"From: " + es.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}
	msg := []byte(strings.Join(headers, "\r\n") + "\r\n")

	return smtp.SendMail(es.host+":"+es.port, auth, es.from, []string{to}, msg)
}
