// ABOUTME: ConversationState and its typed accessors for sub-flow progress
// ABOUTME: Owned by the router for the duration of one turn, persisted between turns

package dialog

import (
	"strconv"

	"github.com/charlabot/charla/internal/nlp"
)

// Role labels a message author within a conversation.
type Role string

// Message roles.
const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Stage controls how the next user message is interpreted.
type Stage string

// Stages. Menu interprets input as a menu selection, Chat as free dialogue.
const (
	StageMenu Stage = "menu"
	StageChat Stage = "chat"
)

// Message is one turn entry in the conversation history.
type Message struct {
	Role Role
	Text string
}

// Meta keys. The set is fixed; entries are only ever removed by a full reset.
const (
	metaSalesPlan     = "sales_plan"
	metaSalesUsers    = "sales_users"
	metaSalesCountry  = "sales_country"
	metaSalesCurrency = "sales_currency"
	metaSalesReady    = "sales_ready_to_assign"
	metaPasswordTip   = "did_password_reset_tip"
	meta2FATip        = "did_2fa_tip"
	metaMisunder      = "misunder_count"
)

// State is the per-conversation dialogue state. It is rehydrated from
// persisted history before each turn and handed back for persistence after;
// it carries no cross-request identity of its own.
type State struct {
	Messages []Message
	Meta     map[string]string

	Stage            Stage
	SelectedCategory nlp.Category // sticky category chosen via menu, "" if none
	LastCategory     nlp.Category // most recently resolved category, "" if none
	LowConfStreak    int
	UnresolvedStreak int
}

// NewState returns an empty conversation positioned at the main menu.
func NewState() *State {
	return &State{
		Meta:  make(map[string]string),
		Stage: StageMenu,
	}
}

// AddUser appends a user message to the history.
func (s *State) AddUser(text string) {
	s.Messages = append(s.Messages, Message{Role: RoleUser, Text: text})
}

// AddBot appends a bot message to the history.
func (s *State) AddBot(text string) {
	s.Messages = append(s.Messages, Message{Role: RoleBot, Text: text})
}

// Reset clears the conversation back to its initial menu state.
func (s *State) Reset() {
	s.Messages = nil
	s.Meta = make(map[string]string)
	s.Stage = StageMenu
	s.SelectedCategory = ""
	s.LastCategory = ""
	s.LowConfStreak = 0
	s.UnresolvedStreak = 0
}

func (s *State) metaSet(key string) bool {
	return s.Meta[key] != ""
}

// Sales returns the typed view over the sales sub-flow's slots.
func (s *State) Sales() SalesProgress {
	return SalesProgress{s: s}
}

// SalesProgress exposes the sales slots stored in the meta map. Every slot is
// first-wins: setters are no-ops once a value is present, so a filled slot is
// immutable for the session.
type SalesProgress struct {
	s *State
}

// Plan returns the chosen plan type, or "" if the slot is unset.
func (p SalesProgress) Plan() string { return p.s.Meta[metaSalesPlan] }

// SetPlan fills the plan slot if it is still empty.
func (p SalesProgress) SetPlan(plan string) {
	if !p.s.metaSet(metaSalesPlan) {
		p.s.Meta[metaSalesPlan] = plan
	}
}

// Users returns the user count slot, or "" if unset.
func (p SalesProgress) Users() string { return p.s.Meta[metaSalesUsers] }

// SetUsers fills the user count slot if it is still empty.
func (p SalesProgress) SetUsers(users string) {
	if !p.s.metaSet(metaSalesUsers) {
		p.s.Meta[metaSalesUsers] = users
	}
}

// Country returns the country slot, or "" if unset.
func (p SalesProgress) Country() string { return p.s.Meta[metaSalesCountry] }

// SetCountry fills the country slot if it is still empty.
func (p SalesProgress) SetCountry(country string) {
	if !p.s.metaSet(metaSalesCountry) {
		p.s.Meta[metaSalesCountry] = country
	}
}

// Currency returns the currency slot, or "" if unset.
func (p SalesProgress) Currency() string { return p.s.Meta[metaSalesCurrency] }

// SetCurrency fills the currency slot if it is still empty.
func (p SalesProgress) SetCurrency(currency string) {
	if !p.s.metaSet(metaSalesCurrency) {
		p.s.Meta[metaSalesCurrency] = currency
	}
}

// HasLocation reports whether either the country or currency slot is filled.
func (p SalesProgress) HasLocation() bool {
	return p.s.metaSet(metaSalesCountry) || p.s.metaSet(metaSalesCurrency)
}

// ReadyToEscalate reports whether every slot is filled and the escalation
// offer has been made.
func (p SalesProgress) ReadyToEscalate() bool { return p.s.metaSet(metaSalesReady) }

// MarkReady records that the escalation offer went out.
func (p SalesProgress) MarkReady() { p.s.Meta[metaSalesReady] = "1" }

// misunderstandCount reads the misunderstanding counter from meta. Garbage
// values count as zero.
func (s *State) misunderstandCount() int {
	n, err := strconv.Atoi(s.Meta[metaMisunder])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *State) setMisunderstandCount(n int) {
	s.Meta[metaMisunder] = strconv.Itoa(n)
}

// bumpMisunderstand increments the counter and reports whether it reached the
// given limit.
func (s *State) bumpMisunderstand(limit int) bool {
	n := s.misunderstandCount() + 1
	s.setMisunderstandCount(n)
	return n >= limit
}

func (s *State) clearMisunderstand() {
	s.setMisunderstandCount(0)
}
