package catalog

// Model describes an upstream model the configured API key can reach.
type Model struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"displayName,omitempty"`
	Description      string   `json:"description,omitempty"`
	SupportedActions []string `json:"supportedActions,omitempty"`
	InputTokenLimit  int      `json:"inputTokenLimit,omitempty"`
	OutputTokenLimit int      `json:"outputTokenLimit,omitempty"`
}

// Supports reports whether the model advertises the given action, e.g. "generateContent".
func (m Model) Supports(action string) bool {
	for _, a := range m.SupportedActions {
		if a == action {
			return true
		}
	}
	return false
}

// Seed returns the fallback catalog used when the provider cannot list models.
func Seed(configured string) []Model {
	if configured == "" {
		return nil
	}
	return []Model{{
		Name:             configured,
		SupportedActions: []string{"generateContent"},
	}}
}
