package ai

import "fmt"

// SystemInstruction scopes every extraction to hyperlocal community content.
const SystemInstruction = "You are a hyper-local news analysis assistant. Extract detailed, precise information " +
	"from local news content. Focus only on local news, events, businesses, causes/charities, and " +
	"crime/safety. Exclude national news, politics, and professional sports."

const promptTemplate = `Analyze the following local news content and extract structured information.
Focus only on hyper-local community information - news, events, businesses, causes/charities, and crime/safety.
Strictly exclude national news, politics, and professional sports.

Source URL: %s

CONTENT:
%s

Extract and return ONLY the following information in JSON format:
{
    "title": "Extracted main title or headline",
    "headline": "Secondary headline or subheading if available",
    "description": "Detailed description of the event/news",
    "summary": "Brief 1-2 sentence summary",
    "category": "Must be one of: News, Business, Cause, Event, Crime & Safety",
    "location": "Specific location mentioned in the text",
    "confidence_score": "A score from 0.0 to 1.0 indicating confidence in extraction accuracy",
    "excluded_reason": "If this is national news, politics, or sports, explain why it's excluded"
}

Only return valid JSON format, nothing else.`

// BuildPrompt renders the user prompt for one document.
func BuildPrompt(text, sourceURL string) string {
	return fmt.Sprintf(promptTemplate, sourceURL, text)
}
