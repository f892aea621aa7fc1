package models

// ProviderModel identifies one selectable language-model endpoint
type ProviderModel struct {
	ID       string `json:"id"`       // Vendor/model pair, e.g. "openai/gpt-4.1"
	Name     string `json:"name"`     // Display name
	Provider string `json:"provider"` // Vendor name
}

// AvailableModels is the catalog of provider endpoints offered to callers.
// IDs follow the OpenRouter vendor/model convention.
var AvailableModels = []ProviderModel{
	{ID: "google/gemini-2.5-flash", Name: "Gemini 2.5", Provider: "Google"},
	{ID: "deepseek/deepseek-chat-v3-0324", Name: "DeepSeek v3", Provider: "DeepSeek"},
	{ID: "x-ai/grok-4", Name: "Grok 4", Provider: "xAI"},
	{ID: "openai/gpt-4.1", Name: "OpenAI GPT4.1", Provider: "OpenAI"},
	{ID: "anthropic/claude-sonnet-4", Name: "Claude 4", Provider: "Anthropic"},
	{ID: "moonshotai/kimi-k2:free", Name: "Kimi K2", Provider: "MoonshotAI"},
	{ID: "anthropic/claude-3.7-sonnet", Name: "Claude 3.7", Provider: "Anthropic"},
}

// FindModel returns the catalog entry for an id, or nil if unknown
func FindModel(id string) *ProviderModel {
	for i := range AvailableModels {
		if AvailableModels[i].ID == id {
			return &AvailableModels[i]
		}
	}
	return nil
}

// ModelDisplayName returns the display name for a provider id, falling back
// to the id itself for models outside the catalog
func ModelDisplayName(id string) string {
	if m := FindModel(id); m != nil {
		return m.Name
	}
	return id
}
