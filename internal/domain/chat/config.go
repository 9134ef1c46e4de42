package chat

const (
	defaultMaxMessageLength = 2000
	defaultHistoryLimit     = 10
	defaultHistoryTokens    = 2000
	defaultFAQTopK          = 3
	defaultSuggestionLimit  = 4
)

// Config tunes the conversation flow.
type Config struct {
	MaxMessageLength int
	HistoryLimit     int
	HistoryTokens    int
	FAQTopK          int
	SuggestionLimit  int
	SystemPrompt     string
}

func (c Config) withDefaults() Config {
	if c.MaxMessageLength <= 0 {
		c.MaxMessageLength = defaultMaxMessageLength
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	if c.HistoryTokens <= 0 {
		c.HistoryTokens = defaultHistoryTokens
	}
	if c.FAQTopK <= 0 {
		c.FAQTopK = defaultFAQTopK
	}
	if c.SuggestionLimit <= 0 {
		c.SuggestionLimit = defaultSuggestionLimit
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	return c
}
