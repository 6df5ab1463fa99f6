package models

// AIRequestType selects what the AI collaborator is asked to produce
type AIRequestType string

const (
	AIProfileGeneration   AIRequestType = "profile_generation"
	AICognitiveAssessment AIRequestType = "cognitive_assessment"
	AIFinancialCoaching   AIRequestType = "financial_coaching"
)

// AIRequest is sent to the generative AI collaborator
type AIRequest struct {
	Type    AIRequestType  `json:"type"`
	Prompt  string         `json:"prompt"`
	Context map[string]any `json:"context,omitempty"`
}

// AIResponse is returned by the generative AI collaborator.
// Success=false must be handled exactly like a transport error.
type AIResponse struct {
	Success  bool           `json:"success"`
	Data     map[string]any `json:"data,omitempty"`
	Fallback string         `json:"fallback,omitempty"`
}
