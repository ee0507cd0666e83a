package mailer

import (
	"fmt"
	"net/url"
	"strings"
)

// Templates renders the account emails. ClientURL is the base of the
// frontend that hosts the verification and reset pages.
type Templates struct {
	ClientURL string
}

func (t Templates) link(path, token string) string {
	return strings.TrimSuffix(t.ClientURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func (t Templates) Verification(to, name, token string) Message {
	link := t.link("/verify-email", token)
	return Message{
		To:        to,
		ToName:    name,
		Subject:   "Verify your email address",
		PlainText: fmt.Sprintf("Hello %s,\n\nConfirm your email address by opening %s\n\nThe link expires in 24 hours.", name, link),
		HTML:      fmt.Sprintf(`<p>Hello %s,</p><p>Confirm your email address by clicking <a href="%s">this link</a>.</p><p>The link expires in 24 hours.</p>`, name, link),
	}
}

func (t Templates) PasswordReset(to, name, token string) Message {
	link := t.link("/reset-password", token)
	return Message{
		To:        to,
		ToName:    name,
		Subject:   "Reset your password",
		PlainText: fmt.Sprintf("Hello %s,\n\nReset your password by opening %s\n\nThe link expires in 1 hour. Ignore this email if you did not ask for a reset.", name, link),
		HTML:      fmt.Sprintf(`<p>Hello %s,</p><p>Reset your password by clicking <a href="%s">this link</a>.</p><p>The link expires in 1 hour. Ignore this email if you did not ask for a reset.</p>`, name, link),
	}
}

func (t Templates) AdminWelcome(to, name, password string) Message {
	return Message{
		To:        to,
		ToName:    name,
		Subject:   "Your admin account",
		PlainText: fmt.Sprintf("Hello %s,\n\nAn admin account was created for you.\nEmail: %s\nPassword: %s\n\nChange the password after your first login.", name, to, password),
		HTML:      fmt.Sprintf(`<p>Hello %s,</p><p>An admin account was created for you.</p><p>Email: %s<br>Password: <code>%s</code></p><p>Change the password after your first login.</p>`, name, to, password),
	}
}
