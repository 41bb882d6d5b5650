package prompt

// Phrase names a short user-facing sentence.
type Phrase string

const (
	PhraseAskMissing    Phrase = "ask_missing"
	PhraseOrdersFetched Phrase = "orders_fetched"
	PhraseNonShopping   Phrase = "non_shopping"
	PhraseTurnFailed    Phrase = "turn_failed"
)

var phrases = map[string]map[Phrase]string{
	"en": {
		PhraseAskMissing:    "Could you provide the missing information?",
		PhraseOrdersFetched: "Here is your latest order.",
		PhraseNonShopping:   "Hello! How can I help you with your shopping today?",
		PhraseTurnFailed:    "Sorry, something went wrong while handling your request.",
	},
	"de": {
		PhraseAskMissing:    "Könnten Sie die fehlenden Angaben ergänzen?",
		PhraseOrdersFetched: "Hier ist Ihre letzte Bestellung.",
		PhraseNonShopping:   "Hallo! Wobei kann ich Ihnen beim Einkaufen helfen?",
		PhraseTurnFailed:    "Entschuldigung, bei Ihrer Anfrage ist etwas schiefgelaufen.",
	},
}

// Text returns the phrase in the resolved language, falling back to English.
func Text(p Phrase, languageID string) string {
	if set, ok := phrases[Resolve(languageID)]; ok {
		if s, ok := set[p]; ok {
			return s
		}
	}
	return phrases[DefaultLanguage][p]
}
