package services

import (
	"bytes"
	"html/template"

	"booknook/internal/domain"
	"booknook/internal/textfmt"
)

const (
	SubjectOrderConfirmation = "BookNook Order Confirmation"
	SubjectConfirmEmail      = "Confirm your BookNook account"
	SubjectResetPassword     = "Reset your BookNook password"
	SubjectDeletionNotice    = "Your BookNook account is scheduled for deletion"
	SubjectDeletionCancelled = "Your BookNook account will not be deleted"
	SubjectStaffWelcome      = "Your BookNook staff account"
)

var emailTemplates = template.Must(template.New("emails").Funcs(template.FuncMap{
	"money": textfmt.Money,
}).Parse(`
{{define "order_confirmation"}}
<p>Hi {{.Name}},</p>
<p>Thank you for your order. Show the claim code at the counter to pick up each book.</p>
<table border="1" cellpadding="6" cellspacing="0">
  <tr><th>Order #</th><th>Book</th><th>Qty</th><th>Total</th><th>Claim code</th></tr>
  {{range .Orders}}
  <tr><td>{{.OrderNo}}</td><td>{{.BookTitle}}</td><td>{{.Quantity}}</td><td>{{money .TotalPrice}}</td><td><strong>{{.ClaimCode}}</strong></td></tr>
  {{end}}
</table>
<p>You can cancel an order within 24 hours of placing it.</p>
{{end}}

{{define "confirm_email"}}
<p>Hi {{.Name}},</p>
<p>Please confirm your BookNook account by <a href="{{.Link}}">clicking here</a>.</p>
{{end}}

{{define "reset_password"}}
<p>Hi {{.Name}},</p>
<p>Reset your password by <a href="{{.Link}}">clicking here</a>. The link expires in one hour.</p>
<p>If you did not ask for this, ignore this email.</p>
{{end}}

{{define "deletion_notice"}}
<p>Hi {{.Name}},</p>
<p>Your BookNook account has been scheduled for deletion by an administrator. Contact us if this is a mistake.</p>
{{end}}

{{define "deletion_cancelled"}}
<p>Hi {{.Name}},</p>
<p>The scheduled deletion of your BookNook account has been cancelled.</p>
{{end}}

{{define "staff_welcome"}}
<p>Hi {{.Name}},</p>
<p>A staff account has been created for you at BookNook. Sign in with {{.Email}} at <a href="{{.Link}}">{{.Link}}</a>.</p>
{{end}}
`))

type emailData struct {
	Name   string
	Email  string
	Link   string
	Orders []domain.Order
}

func renderEmail(name string, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
