package mailer

import (
	"fmt"

	"taskboard/internal/task"
)

type template struct {
	subject string
	body    func(d task.EmailData) string
}

// Spanish is the platform's primary language; English is the fallback for
// any other language code.
var templates = map[string]map[string]template{
	task.EmailConfirmation: {
		"es": {
			subject: "Confirma tu cuenta",
			body: func(d task.EmailData) string {
				return fmt.Sprintf("Hola %s, confirma tu cuenta haciendo clic en el siguiente enlace: %s/%s", d.Name, d.URL, d.Token)
			},
		},
		"en": {
			subject: "Confirm your account",
			body: func(d task.EmailData) string {
				return fmt.Sprintf("Hi %s, confirm your account by clicking the following link: %s/%s", d.Name, d.URL, d.Token)
			},
		},
	},
	task.EmailPasswordReset: {
		"es": {
			subject: "Restablece tu contraseña",
			body: func(d task.EmailData) string {
				return fmt.Sprintf("Hola %s, restablece tu contraseña aquí: %s/%s", d.Name, d.URL, d.Token)
			},
		},
		"en": {
			subject: "Reset your password",
			body: func(d task.EmailData) string {
				return fmt.Sprintf("Hi %s, reset your password here: %s/%s", d.Name, d.URL, d.Token)
			},
		},
	},
	task.EmailWelcome: {
		"es": {
			subject: "Bienvenido a nuestra plataforma",
			body: func(d task.EmailData) string {
				return fmt.Sprintf("Hola %s, tu cuenta ya está activa. ¡Bienvenido!", d.Name)
			},
		},
		"en": {
			subject: "Welcome to our platform",
			body: func(d task.EmailData) string {
				return fmt.Sprintf("Hi %s, your account is now active. Welcome!", d.Name)
			},
		},
	},
	task.EmailGoodbye: {
		"es": {
			subject: "Hasta pronto",
			body: func(d task.EmailData) string {
				return fmt.Sprintf("Hola %s, tu cuenta ha sido eliminada. Esperamos verte de nuevo.", d.Name)
			},
		},
		"en": {
			subject: "Goodbye",
			body: func(d task.EmailData) string {
				return fmt.Sprintf("Hi %s, your account has been deleted. We hope to see you again.", d.Name)
			},
		},
	},
	task.EmailGeneric: {
		"es": {
			subject: "Notificación",
			body: func(d task.EmailData) string {
				return fmt.Sprintf("Hola %s, tienes una nueva notificación: %s", d.Name, d.URL)
			},
		},
		"en": {
			subject: "Notification",
			body: func(d task.EmailData) string {
				return fmt.Sprintf("Hi %s, you have a new notification: %s", d.Name, d.URL)
			},
		},
	},
}

// Render selects subject and body by the task's type discriminator and
// language. A task without a language renders in Spanish; an unknown
// non-empty code falls back to English. An explicit subject on the task
// overrides the template's. An unknown type is a poison payload and
// surfaces as an error.
func Render(t task.EmailTask) (Message, error) {
	byLang, ok := templates[t.Type]
	if !ok {
		return Message{}, fmt.Errorf("unknown email type: %q", t.Type)
	}

	lang := t.Language
	if lang == "" {
		lang = "es"
	}
	tpl, ok := byLang[lang]
	if !ok {
		tpl = byLang["en"]
	}

	subject := tpl.subject
	if t.Subject != "" {
		subject = t.Subject
	}

	return Message{
		To:      t.To,
		Subject: subject,
		Body:    tpl.body(t.Data),
	}, nil
}
