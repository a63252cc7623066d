// ABOUTME: Support issue heuristics: password and 2FA signatures
// ABOUTME: Each signature is tip-then-escalate; "code not arriving" overrides directly

package dialog

import (
	"strings"

	"github.com/charlabot/charla/internal/nlp"
)

type supportIssue string

const (
	issueNone     supportIssue = ""
	issuePassword supportIssue = "password_issue"
	issue2FA      supportIssue = "2fa_issue"
)

var (
	passwordWords = []string{"contraseña", "contrasena", "password"}
	twoFAWords    = []string{"código", "codigo", "2fa", "verificación", "verificacion", "otp"}

	codeNotArrivingPhrases = []string{
		"no me llega", "no llega", "no recibo", "no recibí", "no recibi",
		"no aparece", "no llega el código", "no llega el codigo",
	}
)

// detectSupportIssue matches at most one signature; password wins when both
// are present.
func detectSupportIssue(text string) supportIssue {
	t := strings.ToLower(text)
	if containsAny(t, passwordWords) {
		return issuePassword
	}
	if containsAny(t, twoFAWords) {
		return issue2FA
	}
	return issueNone
}

// supportFlow handles a support-classified turn. It returns (result, true)
// when a heuristic produced the reply; (zero, false) means the turn falls
// through to the answer resolver.
func (r *Router) supportFlow(state *State, userText string, confidence float64, maxUnresolved int) (Result, bool) {
	supportResult := func(reply string, needsAgent bool) Result {
		return Result{
			Reply:      reply,
			Category:   nlp.CategorySoporte,
			Confidence: confidence,
			NeedsAgent: needsAgent,
		}
	}

	switch detectSupportIssue(userText) {
	case issuePassword:
		if !state.metaSet(metaPasswordTip) {
			state.Meta[metaPasswordTip] = "1"
			state.UnresolvedStreak = 0
			return supportResult("Puedes restablecer tu contraseña desde 'Olvidé mi contraseña' en el login. ¿Te llegó el correo de restablecimiento?", false), true
		}
		state.UnresolvedStreak++
		if state.UnresolvedStreak >= maxUnresolved {
			return supportResult("Veo que persiste el problema con la contraseña. "+
				"Te derivo con un agente humano para verificar tu identidad y ayudarte a recuperar el acceso.", true), true
		}
		return supportResult("Entiendo. Si ya intentaste restablecer y no funcionó, ¿te aparece algún mensaje adicional o te pide un código?", false), true

	case issue2FA:
		if !state.metaSet(meta2FATip) {
			state.Meta[meta2FATip] = "1"
			state.UnresolvedStreak = 0
			return supportResult("Ese código es de verificación en dos pasos (2FA). Revisa tu correo (incluida la carpeta de spam) "+
				"o la app autenticadora. Si no te llega en 2-3 minutos, avísame y te derivo con un agente humano.", false), true
		}
		return supportResult("Como no te llega el código, te derivo con un agente humano para verificar tu identidad y restablecer el acceso.", true), true
	}

	// After the 2FA tip, "code not arriving" phrasing escalates directly,
	// regardless of the two-step counters.
	if state.metaSet(meta2FATip) && containsAny(nlp.Normalize(userText), codeNotArrivingPhrases) {
		res := supportResult("Como el código de verificación no te está llegando, "+
			"te derivo con un agente humano para verificar tu identidad "+
			"y restablecer el acceso.", true)
		res.Confidence = 1.0
		return res, true
	}

	return Result{}, false
}
