// ABOUTME: Canned reply texts for the dialogue engine
// ABOUTME: Menu, entry prompts, defaults and every escalation message

package dialog

import "github.com/charlabot/charla/internal/nlp"

// HelpText summarizes what the assistant can do; the transport layer serves it
// on its root endpoint.
const HelpText = "Puedo ayudarte con: ventas (planes, demo, precios), soporte (errores, restablecer contraseña), " +
	"e información general (horarios, contacto). Escribe 'reiniciar' para limpiar la conversación."

// MainMenu is the canonical menu text shown on reset and whenever input can't
// be mapped to an option.
const MainMenu = "👋 ¡Hola! Soy tu asistente.\n" +
	"¿En qué te puedo ayudar?\n" +
	"1) Ventas (planes, demo, precios)\n" +
	"2) Soporte (errores, acceso, contraseña)\n" +
	"3) Información general (horarios, contacto)\n" +
	"Escribe 1, 2 o 3 — o el nombre de la opción.\n" +
	"Puedes escribir 'inicio' o 'menu' para volver aquí cuando quieras."

const (
	replyThanks = "¡Con gusto! Si necesitas algo más, aquí estaré."

	replyAgentRequested = "De acuerdo, te derivo con un agente humano. En breve te contactarán."

	replyLowConfStreak = "Veo que esto requiere más detalle. Te derivo con un agente humano para que lo revisen contigo."

	replyMisunderstood = "No estoy logrando entenderte correctamente. Para ayudarte mejor, te derivo con un asesor humano."

	replyUnresolved = "Para darte una respuesta precisa, te derivo con un asesor humano."

	replySalesEntry   = "Perfecto, hablemos de ventas. ¿Buscas precios, demo o planes?"
	replySupportEntry = "De acuerdo, voy a ayudarte con soporte. Cuéntame exactamente qué ocurre (por ejemplo: mensaje de error, en qué paso)."
	replyGeneralEntry = "Genial, información general. ¿Te interesan horarios, contacto o quiénes somos?"
)

// defaultReplyFor is the generic per-category reply used when neither resolver
// tier produced an answer.
func defaultReplyFor(category nlp.Category) string {
	switch category {
	case nlp.CategoryVentas:
		return "Sobre ventas: puedo contarte de planes, demo y precios. ¿Qué necesitas exactamente?"
	case nlp.CategorySoporte:
		return "Entiendo que necesitas soporte. ¿Puedes describirme el problema con más detalle?"
	}
	return "Con gusto. ¿Buscas información general como horarios, contacto o quiénes somos?"
}
