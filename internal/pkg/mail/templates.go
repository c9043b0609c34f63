package mail

import (
	"bytes"
	"html/template"
)

var verificationTmpl = template.Must(template.New("verify").Parse(`<p>Bonjour {{.Name}},</p>
<p>Merci pour votre inscription sur ÉpreuvesPro. Confirmez votre adresse email en cliquant sur le lien ci-dessous :</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>Ce lien expire dans 24 heures.</p>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<p>Bonjour {{.Name}},</p>
<p>Vous avez demandé la réinitialisation de votre mot de passe :</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>Ce lien expire dans 2 heures. Si vous n'êtes pas à l'origine de cette demande, ignorez ce message.</p>`))

type linkData struct {
	Name string
	Link string
}

func render(t *template.Template, name, link string) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, linkData{Name: name, Link: link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// VerificationEmail returns subject and body of the address confirmation mail.
func VerificationEmail(name, link string) (string, string, error) {
	body, err := render(verificationTmpl, name, link)
	return "Confirmez votre adresse email", body, err
}

// PasswordResetEmail returns subject and body of the password reset mail.
func PasswordResetEmail(name, link string) (string, string, error) {
	body, err := render(resetTmpl, name, link)
	return "Réinitialisation de votre mot de passe", body, err
}
