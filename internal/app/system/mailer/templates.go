// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// InvitationEmailData holds data for the invitation email templates.
type InvitationEmailData struct {
	SiteName         string
	OrganizationName string
	InviterName      string
	Role             string
	AcceptURL        string
	ExpiresIn        string // e.g., "7 days"
}

// BuildInvitationEmail creates an invitation email with both HTML and text bodies.
func BuildInvitationEmail(to string, data InvitationEmailData) Email {
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("You're invited to join %s on %s", data.OrganizationName, data.SiteName),
		TextBody: buildInvitationText(data),
		HTMLBody: buildInvitationHTML(data),
	}
}

func buildInvitationText(data InvitationEmailData) string {
	var buf bytes.Buffer
	if data.InviterName != "" {
		fmt.Fprintf(&buf, "%s invited you to join %s as a %s.\n\n", data.InviterName, data.OrganizationName, data.Role)
	} else {
		fmt.Fprintf(&buf, "You have been invited to join %s as a %s.\n\n", data.OrganizationName, data.Role)
	}
	buf.WriteString("Create your account here:\n")
	buf.WriteString(data.AcceptURL + "\n\n")
	fmt.Fprintf(&buf, "This invitation expires in %s.\n\n", data.ExpiresIn)
	buf.WriteString("If you were not expecting this invitation, you can ignore this email.\n")
	return buf.String()
}

var invitationTmpl = template.Must(template.New("invitation").Parse(invitationHTMLTemplate))

func buildInvitationHTML(data InvitationEmailData) string {
	var buf bytes.Buffer
	_ = invitationTmpl.Execute(&buf, data)
	return buf.String()
}

const invitationHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Invitation</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                {{if .InviterName}}{{.InviterName}} invited you{{else}}You have been invited{{end}}
                to join <strong>{{.OrganizationName}}</strong> as a <strong>{{.Role}}</strong>.
              </p>
              <div style="text-align: center; margin-bottom: 24px;">
                <a href="{{.AcceptURL}}" style="display: inline-block; padding: 12px 24px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-weight: 600; border-radius: 6px;">Accept invitation</a>
              </div>
              <p style="margin: 0; font-size: 14px; color: #6b7280; text-align: center;">
                This invitation expires in {{.ExpiresIn}}.
              </p>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you were not expecting this invitation, you can ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`
