package notify

import (
	"fmt"
	"html"
	"time"

	"github.com/tarqumi/agency-api/pkg/models"
)

func submissionSubject(sub *models.ContactSubmission) string {
	subject := "New message"
	if sub.Subject != nil && *sub.Subject != "" {
		subject = *sub.Subject
	}
	return fmt.Sprintf("[Tarqumi Contact Form] %s - from %s", subject, sub.Name)
}

func renderSubmissionHTML(sub *models.ContactSubmission) string {
	phone := "-"
	if sub.Phone != nil && *sub.Phone != "" {
		phone = html.EscapeString(*sub.Phone)
	}
	subject := "-"
	if sub.Subject != nil && *sub.Subject != "" {
		subject = html.EscapeString(*sub.Subject)
	}

	return fmt.Sprintf(`
		<html>
		<body>
			<h2>New Contact Form Submission</h2>
			<table cellpadding="6">
				<tr><td><strong>Name</strong></td><td>%s</td></tr>
				<tr><td><strong>Email</strong></td><td>%s</td></tr>
				<tr><td><strong>Phone</strong></td><td>%s</td></tr>
				<tr><td><strong>Subject</strong></td><td>%s</td></tr>
				<tr><td><strong>Language</strong></td><td>%s</td></tr>
				<tr><td><strong>Submitted</strong></td><td>%s</td></tr>
				<tr><td><strong>IP</strong></td><td>%s</td></tr>
			</table>
			<h3>Message</h3>
			<p>%s</p>
		</body>
		</html>
	`,
		html.EscapeString(sub.Name),
		html.EscapeString(sub.Email),
		phone,
		subject,
		sub.Language,
		sub.SubmittedAt.Format(time.RFC1123),
		sub.IPAddress,
		html.EscapeString(sub.Message),
	)
}

func renderSubmissionText(sub *models.ContactSubmission) string {
	phone := "-"
	if sub.Phone != nil && *sub.Phone != "" {
		phone = *sub.Phone
	}
	subject := "-"
	if sub.Subject != nil && *sub.Subject != "" {
		subject = *sub.Subject
	}

	return fmt.Sprintf(`New contact form submission

Name: %s
Email: %s
Phone: %s
Subject: %s
Language: %s
Submitted: %s
IP: %s

Message:
%s
`,
		sub.Name,
		sub.Email,
		phone,
		subject,
		sub.Language,
		sub.SubmittedAt.Format(time.RFC1123),
		sub.IPAddress,
		sub.Message,
	)
}

func renderPasswordResetHTML(name, resetURL string) string {
	return fmt.Sprintf(`
		<html>
		<body>
			<h2>Password Reset Request</h2>
			<p>Hi %s,</p>
			<p>We received a request to reset your password for your Tarqumi account.</p>
			<p><a href="%s" style="background-color: #2196F3; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">Reset Password</a></p>
			<p>Or copy and paste this link into your browser:</p>
			<p><a href="%s">%s</a></p>
			<p><strong>This link will expire in 1 hour.</strong></p>
			<p>If you didn't request a password reset, you can safely ignore this email.</p>
			<p>Thanks,<br>The Tarqumi Team</p>
		</body>
		</html>
	`, html.EscapeString(name), resetURL, resetURL, resetURL)
}

func renderPasswordResetText(name, resetURL string) string {
	return fmt.Sprintf(`Hi %s,

We received a request to reset your password for your Tarqumi account.

Click the link below to reset your password:

%s

This link will expire in 1 hour.

If you didn't request a password reset, you can safely ignore this email.

Thanks,
The Tarqumi Team
`, name, resetURL)
}
