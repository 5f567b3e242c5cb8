package ai

// ProviderName represents an LLM provider identifier
type ProviderName string

// Provider name constants
const (
	ProviderNameOpenAI ProviderName = "openai"
	ProviderNameOllama ProviderName = "ollama"
)

// String returns the string representation of the provider name
func (p ProviderName) String() string {
	return string(p)
}

// IsValid checks if the provider name is supported
func (p ProviderName) IsValid() bool {
	switch p {
	case ProviderNameOpenAI, ProviderNameOllama:
		return true
	default:
		return false
	}
}

// AllProviderNames returns all supported provider names
func AllProviderNames() []ProviderName {
	return []ProviderName{
		ProviderNameOpenAI,
		ProviderNameOllama,
	}
}
