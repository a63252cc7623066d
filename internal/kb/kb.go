// ABOUTME: Fixed knowledge base: ordered FAQ pairs per category and the semantic QA corpus
// ABOUTME: FAQ lookup is the exact tier; the corpus feeds the semantic fallback tier

package kb

import (
	"strings"

	"github.com/charlabot/charla/internal/nlp"
)

// QA is one immutable (question, answer, category) triple of the semantic corpus.
type QA struct {
	Question string
	Answer   string
	Category nlp.Category
}

// faqEntry pairs a space-separated keyword string with its canned answer.
// Order within a category is significant: the first matching entry wins.
type faqEntry struct {
	keywords string
	answer   string
}

var faq = map[nlp.Category][]faqEntry{
	nlp.CategoryVentas: {
		{"precios precio cuesta valor costo plan planes", "Nuestros planes se ajustan a tu necesidad. ¿Buscas mensual, anual o por consumo?"},
		{"plan mensual mensualidad mensual", "Perfecto, el plan mensual es flexible. ¿Para cuántos usuarios lo necesitas y en qué país/moneda?"},
		{"plan anual anualidad anual", "¡Buen ojo! El plan anual suele tener mejor tarifa. ¿Para cuántos usuarios y en qué país/moneda?"},
		{"por consumo consumo pay as you go variable", "Entendido: plan por consumo. ¿Qué volumen aproximado esperas al mes y en qué país/moneda?"},
	},
	nlp.CategorySoporte: {
		{"error falla bug no funciona problema", "Lamentamos el inconveniente. ¿Puedes compartir el mensaje de error exacto?"},
		{"no funciona login acceso inicio sesión iniciar sesion", "Probemos: ¿recibes un mensaje específico al iniciar sesión?"},
		{"restablecer contraseña recuperar password", "Puedes restablecer tu contraseña desde 'Olvidé mi contraseña' en el login."},
		{"código codigo 2fa verificacion verificación otp", "Ese código es de verificación en dos pasos. Revisa tu correo (incluido spam) o la app autenticadora. Si no te llega, te derivo con un agente humano."},
	},
	nlp.CategoryGeneral: {
		{"horarios horario atención atencion", "Atendemos 24/7 por este canal. Los agentes humanos 9:00–18:00 (GMT-5)."},
		{"empresa quienes son quiénes son sobre", "Somos una empresa de tecnología enfocada en IA y automatización."},
		{"contacto email correo teléfono telefono", "Escríbenos a soporte@empresa.com o ventas@empresa.com."},
	},
}

// SearchFAQ scans the category's ordered FAQ entries and returns the answer of
// the first entry with any keyword present in the message. Comparison is
// accent-insensitive on both sides.
func SearchFAQ(category nlp.Category, message string) (string, bool) {
	msg := nlp.StripDiacritics(message)
	for _, entry := range faq[category] {
		for _, k := range strings.Fields(entry.keywords) {
			if strings.Contains(msg, nlp.StripDiacritics(k)) {
				return entry.answer, true
			}
		}
	}
	return "", false
}

// SemanticCorpus returns the fixed corpus backing the semantic fallback tier.
// Callers must treat the result as read-only.
func SemanticCorpus() []QA {
	return []QA{
		// ventas
		{"¿Cuánto cuesta? precios de los planes", "Nuestros planes se ajustan a tu necesidad. ¿Buscas mensual, anual o por consumo?", nlp.CategoryVentas},
		{"¿Tienen demo o prueba gratuita?", "Ofrecemos una demo gratuita de 7 días. ¿Te agendo con un asesor?", nlp.CategoryVentas},
		{"Quiero contratar / comprar / adquirir licencia", "Puedes contratar con tarjeta o transferencia. ¿País y moneda?", nlp.CategoryVentas},

		// soporte
		{"no inicia el computador / pc / equipo", "¿El equipo no enciende o el sistema no termina de cargar? Si es de hardware, te derivo con un agente técnico. Si es nuestra plataforma, ¿qué mensaje exacto aparece?", nlp.CategorySoporte},
		{"no ingresa / no entra a la página / pagina / web", "Entiendo. ¿Te aparece algún mensaje al intentar acceder (por ejemplo, 'usuario o contraseña incorrecta' o 'error 500')?", nlp.CategorySoporte},
		{"contraseña incorrecta / password incorrecto / clave mal", "Puedes restablecer tu contraseña desde 'Olvidé mi contraseña' en el login. ¿Te llegó el correo de restablecimiento?", nlp.CategorySoporte},
		{"me pide un código / 2fa / verificación / otp", "Ese código es de verificación en dos pasos (2FA). Revisa tu correo (incluida la carpeta de spam) o la app autenticadora. Si no te llega, te derivo con un agente humano.", nlp.CategorySoporte},
		{"no me llega el codigo 2fa", "Como no te llega el código, te derivo con un agente humano para verificar tu identidad y restablecer el acceso.", nlp.CategorySoporte},

		// general
		{"horarios de atención", "Atendemos 24/7 por este canal. Los agentes humanos 9:00–18:00 (GMT-5).", nlp.CategoryGeneral},
		{"contacto correo email teléfono", "Escríbenos a soporte@empresa.com o ventas@empresa.com.", nlp.CategoryGeneral},
		{"quienes son / sobre la empresa", "Somos una empresa de tecnología enfocada en IA y automatización.", nlp.CategoryGeneral},
	}
}
