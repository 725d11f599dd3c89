package mailer

import (
	"fmt"
	"html"
	"strings"
)

// OrgSummary is one line of the forgot-organization-id email.
type OrgSummary struct {
	Name       string
	Identifier string
	Role       string
}

const emailStyle = `body{font-family:Arial,sans-serif;line-height:1.6;color:#333}` +
	`.container{max-width:600px;margin:0 auto;padding:20px}` +
	`.header{background:#d97706;color:#fff;padding:20px;text-align:center}` +
	`.content{padding:20px;background:#f9f9f9}` +
	`.button{display:inline-block;padding:12px 24px;background:#d97706;color:#fff;text-decoration:none;border-radius:5px;margin:20px 0}` +
	`.org-id{font-family:monospace;font-size:18px;font-weight:bold;color:#92400e}` +
	`.footer{text-align:center;padding:20px;color:#666;font-size:12px}`

func wrap(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head><style>%s</style></head><body>`+
		`<div class="container"><div class="header"><h2>%s</h2></div>`+
		`<div class="content">%s</div>`+
		`<div class="footer">This is an automated message from Cayco.</div>`+
		`</div></body></html>`, emailStyle, html.EscapeString(title), body)
}

// InviteEmail builds the invitation email. The recipient needs both the
// accept link and the organization identifier they will later log in with.
func InviteEmail(companyName, role, identifier, link string) (subject, body string) {
	subject = fmt.Sprintf("Invitation to join %s on Cayco", companyName)
	content := fmt.Sprintf(
		`<p>You have been invited to join <strong>%s</strong> as <strong>%s</strong>.</p>`+
			`<p>Your organization ID: <span class="org-id">%s</span></p>`+
			`<p>Keep it safe; you will need it every time you log in.</p>`+
			`<p><a class="button" href="%s">Accept Invitation</a></p>`+
			`<p>This invitation expires in 7 days.</p>`,
		html.EscapeString(companyName), html.EscapeString(role),
		html.EscapeString(identifier), link)
	return subject, wrap("You're invited", content)
}

func PasswordResetEmail(companyName, identifier, link string) (subject, body string) {
	subject = fmt.Sprintf("Password reset for %s", companyName)
	content := fmt.Sprintf(
		`<p>A password reset was requested for your account in <strong>%s</strong> `+
			`(organization ID <span class="org-id">%s</span>).</p>`+
			`<p><a class="button" href="%s">Reset Password</a></p>`+
			`<p>The link expires in 10 minutes. If you did not request this, ignore this email.</p>`,
		html.EscapeString(companyName), html.EscapeString(identifier), link)
	return subject, wrap("Reset your password", content)
}

func ForgotOrgIDEmail(orgs []OrgSummary) (subject, body string) {
	subject = "Your Cayco organization IDs"
	var rows strings.Builder
	for _, o := range orgs {
		rows.WriteString(fmt.Sprintf(
			`<li><strong>%s</strong>: <span class="org-id">%s</span> (%s)</li>`,
			html.EscapeString(o.Name), html.EscapeString(o.Identifier), html.EscapeString(o.Role)))
	}
	content := fmt.Sprintf(
		`<p>You asked for the organization IDs linked to this email address:</p><ul>%s</ul>`+
			`<p>Use the matching ID together with your email and password to log in.</p>`,
		rows.String())
	return subject, wrap("Organization IDs", content)
}

func WelcomeEmail(firstName, companyName, identifier string) (subject, body string) {
	subject = fmt.Sprintf("Welcome to %s on Cayco", companyName)
	content := fmt.Sprintf(
		`<p>Hi %s,</p>`+
			`<p>Your registration with <strong>%s</strong> is complete.</p>`+
			`<p>Your organization ID: <span class="org-id">%s</span></p>`+
			`<p>You will need it every time you log in, so keep this email handy.</p>`,
		html.EscapeString(firstName), html.EscapeString(companyName), html.EscapeString(identifier))
	return subject, wrap("Welcome aboard", content)
}

func NotificationEmail(title, bodyText, link string) (subject, body string) {
	subject = title
	content := fmt.Sprintf(`<p>%s</p>`, html.EscapeString(bodyText))
	if link != "" {
		content += fmt.Sprintf(`<p><a class="button" href="%s">View</a></p>`, link)
	}
	return subject, wrap(title, content)
}
