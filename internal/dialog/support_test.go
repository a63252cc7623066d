// ABOUTME: Tests for the support heuristics sub-flow
// ABOUTME: Covers tip-then-escalate paths and the code-not-arriving override

package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSupportIssue(t *testing.T) {
	assert.Equal(t, issuePassword, detectSupportIssue("olvidé mi contraseña"))
	assert.Equal(t, issue2FA, detectSupportIssue("me pide un código"))
	// Password wins when both signatures are present.
	assert.Equal(t, issuePassword, detectSupportIssue("la contraseña y el código fallan"))
	assert.Equal(t, issueNone, detectSupportIssue("la impresora no enciende"))
}

func TestSupportFlow_PasswordTipThenEscalate(t *testing.T) {
	r := newTestRouter(t)
	state := NewState()

	res, handled := r.supportFlow(state, "olvidé mi contraseña", 0.9, 2)
	assert.True(t, handled)
	assert.False(t, res.NeedsAgent)
	assert.Contains(t, res.Reply, "restablecer tu contraseña")

	res, handled = r.supportFlow(state, "sigo sin poder con la contraseña", 0.9, 2)
	assert.True(t, handled)
	assert.False(t, res.NeedsAgent)

	res, handled = r.supportFlow(state, "la contraseña sigue sin funcionar", 0.9, 2)
	assert.True(t, handled)
	assert.True(t, res.NeedsAgent)
	assert.Contains(t, res.Reply, "agente humano")
}

func TestSupportFlow_TwoFATipThenEscalate(t *testing.T) {
	r := newTestRouter(t)
	state := NewState()

	res, handled := r.supportFlow(state, "me pide un código de verificación", 0.8, 2)
	assert.True(t, handled)
	assert.False(t, res.NeedsAgent)
	assert.Contains(t, res.Reply, "dos pasos")

	res, handled = r.supportFlow(state, "el código no sirve", 0.8, 2)
	assert.True(t, handled)
	assert.True(t, res.NeedsAgent)
}

func TestSupportFlow_CodeNotArrivingOverride(t *testing.T) {
	r := newTestRouter(t)
	state := NewState()

	r.supportFlow(state, "me pide un código", 0.8, 2)

	// No 2FA word in the message, only the not-arriving phrasing.
	res, handled := r.supportFlow(state, "no me llega nada al correo", 0.4, 2)
	assert.True(t, handled)
	assert.True(t, res.NeedsAgent)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestSupportFlow_FallsThroughWithoutSignature(t *testing.T) {
	r := newTestRouter(t)
	state := NewState()

	_, handled := r.supportFlow(state, "la página carga lento", 0.7, 2)
	assert.False(t, handled)
}
