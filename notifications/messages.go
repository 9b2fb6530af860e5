// Package notifications renders transactional emails and queues them in
// the outbox for delivery.
package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/shopspring/decimal"
)

const (
	KindWelcome              = "welcome"
	KindLoginLink            = "login_link"
	KindPasswordReset        = "password_reset"
	KindOrderReceipt         = "order_receipt"
	KindAdminOrderAlert      = "admin_order_alert"
	KindNewsletterWelcome    = "newsletter_welcome"
	KindAdminNewsletterAlert = "admin_newsletter_alert"
)

// Message is one rendered email.
type Message struct {
	Kind    string
	To      string
	Subject string
	HTML    string
}

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"naira":     Naira,
	"lineTotal": func(price int64, qty int) int64 { return price * int64(qty) },
}).ParseFS(templateFS, "templates/*.html"))

type button struct {
	URL   string
	Label string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func build(kind, to, subject, tmpl string, data any) (Message, error) {
	html, err := render(tmpl, data)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: kind, To: to, Subject: subject, HTML: html}, nil
}

func Welcome(user models.User) (Message, error) {
	return build(KindWelcome, user.Email, "Welcome to Ikeyà", "welcome.html", struct{ Name string }{user.Name})
}

func LoginLink(email, link string, expires time.Duration) (Message, error) {
	return build(KindLoginLink, email, "Your Ikeyà Login Link", "login.html", struct {
		Button  button
		Expires string
	}{button{URL: link, Label: "Complete Login"}, humanDuration(expires)})
}

func PasswordReset(email, link string, expires time.Duration) (Message, error) {
	return build(KindPasswordReset, email, "Reset Your Ikeyà Password", "reset.html", struct {
		Button  button
		Expires string
	}{button{URL: link, Label: "Reset Password"}, humanDuration(expires)})
}

type orderData struct {
	Name  string
	Email string
	Order models.Order
}

func OrderReceipt(user models.User, order models.Order) (Message, error) {
	subject := fmt.Sprintf("Your Ikeyà order %s", order.Reference)
	return build(KindOrderReceipt, user.Email, subject, "receipt.html", orderData{user.Name, user.Email, order})
}

func AdminOrderAlert(adminEmail string, user models.User, order models.Order) (Message, error) {
	subject := fmt.Sprintf("New order %s (%s)", order.Reference, Naira(order.TotalAmount))
	return build(KindAdminOrderAlert, adminEmail, subject, "admin_order.html", orderData{user.Name, user.Email, order})
}

func NewsletterWelcome(email string) (Message, error) {
	return build(KindNewsletterWelcome, email, "Welcome to the Ikeyà list", "newsletter_welcome.html", nil)
}

func AdminNewsletterAlert(adminEmail, subscriber string) (Message, error) {
	return build(KindAdminNewsletterAlert, adminEmail, "New newsletter subscriber", "admin_newsletter.html", struct{ Email string }{subscriber})
}

// Naira formats kobo as "₦1,550,000.00".
func Naira(kobo int64) string {
	s := decimal.New(kobo, -2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := "₦" + b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	}
	return fmt.Sprintf("%d minutes", d/time.Minute)
}
