// ABOUTME: Sales slot-filling sub-flow: plan, user count, country/currency
// ABOUTME: Slots fill opportunistically from any message and are first-wins

package dialog

import (
	"regexp"
	"strings"

	"github.com/charlabot/charla/internal/nlp"
)

var agreeWords = []string{
	"si", "sí", "ok", "okay", "vale", "claro", "de acuerdo", "por favor", "dale",
	"correcto", "afirmativo", "hagamoslo", "hagámoslo",
}

func isYes(text string) bool {
	t := nlp.Normalize(text)
	for _, w := range agreeWords {
		if t == w || strings.Contains(t, w) {
			return true
		}
	}
	return false
}

var userCountRE = regexp.MustCompile(`\b(\d{1,4})\b`)

// numberWords maps Spanish number words one through fifteen, checked in this
// fixed order so extraction stays deterministic.
var numberWords = []struct {
	word  string
	value string
}{
	{"uno", "1"}, {"una", "1"}, {"un", "1"},
	{"dos", "2"}, {"tres", "3"}, {"cuatro", "4"}, {"cinco", "5"},
	{"seis", "6"}, {"siete", "7"}, {"ocho", "8"}, {"nueve", "9"},
	{"diez", "10"}, {"once", "11"}, {"doce", "12"}, {"trece", "13"},
	{"catorce", "14"}, {"quince", "15"},
}

// extractUserCount pulls a user count from the message: a bounded numeric
// pattern first, else a number word. Returns "" when neither is present.
func extractUserCount(text string) string {
	if m := userCountRE.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	padded := " " + text + " "
	for _, nw := range numberWords {
		if strings.Contains(padded, " "+nw.word+" ") {
			return nw.value
		}
	}
	return ""
}

var (
	planMonthlyWords = []string{"mensual", "mensualidad", "plan mensual"}
	planAnnualWords  = []string{"anual", "anualidad", "plan anual"}
	planUsageWords   = []string{"consumo", "por consumo", "pay as you go", "variable"}
)

// Plan types stored in the plan slot.
const (
	PlanMonthly = "mensual"
	PlanAnnual  = "anual"
	PlanUsage   = "consumo"
)

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// detectPlan returns the plan type mentioned in the message, or "".
func detectPlan(text string) string {
	switch {
	case containsAny(text, planMonthlyWords):
		return PlanMonthly
	case containsAny(text, planAnnualWords):
		return PlanAnnual
	case containsAny(text, planUsageWords):
		return PlanUsage
	}
	return ""
}

var knownCurrencies = map[string]bool{
	"usd": true, "eur": true, "cop": true, "mxn": true, "ars": true, "pen": true, "clp": true,
}

var knownCountries = map[string]bool{
	"colombia": true, "mexico": true, "méxico": true, "argentina": true,
	"peru": true, "perú": true, "chile": true, "espana": true, "españa": true,
}

// extractLocation scans whitespace/comma-separated words for a known currency
// and a known country. Either result may be "".
func extractLocation(text string) (country, currency string) {
	words := strings.Fields(strings.ReplaceAll(text, ",", " "))
	for _, w := range words {
		if currency == "" && knownCurrencies[w] {
			currency = w
		}
		if country == "" && knownCountries[w] {
			country = w
		}
	}
	return country, currency
}

var planPrompts = map[string]string{
	PlanMonthly: "Perfecto, plan mensual. ¿Para cuántos usuarios y en qué país/moneda?",
	PlanAnnual:  "Genial, plan anual. ¿Para cuántos usuarios y en qué país/moneda?",
	PlanUsage:   "Ok, plan por consumo. ¿Qué volumen aproximado al mes y en qué país/moneda?",
}

func salesResult(reply string) Result {
	return Result{
		Reply:      reply,
		Category:   nlp.CategoryVentas,
		Confidence: 1.0,
	}
}

// salesFlow advances the sales sub-flow by one turn. Transition priority:
// confirmation of the escalation offer, plan detection, opportunistic slot
// extraction, then the completeness-driven next prompt.
func salesFlow(state *State, userText string) Result {
	txt := nlp.Normalize(userText)
	sales := state.Sales()

	if sales.ReadyToEscalate() && isYes(txt) {
		res := salesResult("Perfecto, te derivo con un asesor humano para que te comparta la cotización exacta. Te contactarán en breve.")
		res.NeedsAgent = true
		return res
	}

	if sales.Plan() == "" {
		if plan := detectPlan(txt); plan != "" {
			sales.SetPlan(plan)
			return salesResult(planPrompts[plan])
		}
	}

	if users := extractUserCount(txt); users != "" {
		sales.SetUsers(users)
	}

	country, currency := extractLocation(txt)
	if currency != "" {
		sales.SetCurrency(strings.ToUpper(currency))
	}
	if country != "" {
		sales.SetCountry(capitalize(country))
	}

	hasUsers := sales.Users() != ""
	hasLocation := sales.HasLocation()
	switch {
	case sales.Plan() == "":
		return salesResult("¿Buscas mensual, anual o por consumo?")
	case !hasUsers && !hasLocation:
		return salesResult("Perfecto. Para cotizarte, ¿en qué país/moneda y para cuántos usuarios lo necesitas?")
	case !hasUsers:
		return salesResult("Anotado el país/moneda. ¿Para cuántos usuarios?")
	case !hasLocation:
		return salesResult("¿En qué país/moneda lo necesitas?")
	}

	sales.MarkReady()
	return salesResult("Gracias, con esa información puedo generarte una cotización exacta. " +
		"¿Deseas que te contacte un asesor humano para cerrar los detalles?")
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

// RehydrateSales re-derives the sales slots from the replayed history. Used
// when a conversation is loaded from persistence, where only messages and the
// last category survive; it fills empty slots only, so live first-wins slots
// are never overwritten.
func (s *State) RehydrateSales() {
	if s.SelectedCategory != nlp.CategoryVentas && s.LastCategory != nlp.CategoryVentas {
		return
	}

	var parts []string
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			parts = append(parts, strings.ToLower(m.Text))
		}
	}
	text := strings.Join(parts, " ")

	sales := s.Sales()

	if sales.Plan() == "" {
		if plan := detectPlan(text); plan != "" {
			sales.SetPlan(plan)
		}
	}

	if sales.Users() == "" {
		// The most recent number wins across the whole history.
		nums := userCountRE.FindAllStringSubmatch(text, -1)
		if len(nums) > 0 {
			sales.SetUsers(nums[len(nums)-1][1])
		}
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == ',' || r == '.' || r == ';' || r == ':'
	})
	for _, w := range words {
		if sales.Currency() == "" && knownCurrencies[w] {
			sales.SetCurrency(strings.ToUpper(w))
		}
		if sales.Country() == "" && knownCountries[w] {
			sales.SetCountry(capitalize(w))
		}
	}

	// The escalation offer goes out on the turn the slots become complete, so
	// complete slots mean the offer was already made. Without this a "sí"
	// after a reload would re-offer instead of escalating.
	if sales.Plan() != "" && sales.Users() != "" && sales.HasLocation() {
		sales.MarkReady()
	}
}
