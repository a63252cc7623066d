// ABOUTME: Small phrase detectors used by the dialogue router before classification
// ABOUTME: Greetings, menu requests and premature personal data (email/phone)

package nlp

import (
	"regexp"
	"strings"
)

var greetings = []string{
	"hola", "buenas", "buenos dias", "buenos días", "buenas tardes", "buenas noches",
	"que tal", "qué tal", "hey", "holi", "saludos",
}

var menuWords = []string{
	"menu", "inicio", "volver al inicio", "empezar", "reiniciar", "cambiar", "otra opcion", "otra opción",
}

var (
	emailRE = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d[\d -]{6,}\d)\b`)
)

// IsGreeting reports whether the text looks like a salutation.
func IsGreeting(text string) bool {
	t := Normalize(text)
	for _, g := range greetings {
		if strings.Contains(t, g) {
			return true
		}
	}
	return false
}

// IsMenuRequest reports whether the text asks to go back to the main menu.
func IsMenuRequest(text string) bool {
	t := Normalize(text)
	for _, w := range menuWords {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

// SeemsPersonalData reports whether the user sent an email address or phone
// number before giving any context.
func SeemsPersonalData(text string) bool {
	t := Normalize(text)
	return emailRE.MatchString(t) || phoneRE.MatchString(t)
}
