package service

import (
	"fmt"

	"github.com/roshanmishra15/site-builder/internal/llm"
)

const (
	enhanceSystemPrompt  = "Enhance the user request into a clear and actionable website change request."
	generateSystemPrompt = "Return ONLY the complete updated HTML using Tailwind CSS. No explanations."
)

// Assistant notices appended to the conversation.
const (
	noticeStarted    = "Now making changes to your website..."
	noticeCompleted  = "I've updated your website. You can preview it now."
	noticeRolledBack = "Website rolled back to selected version."
)

func enhancedNotice(prompt string) string {
	return fmt.Sprintf("I've enhanced your prompt to: \"%s\"", prompt)
}

func enhancePrompt(message string) llm.Prompt {
	return llm.Prompt{System: enhanceSystemPrompt, User: message}
}

func generatePrompt(currentCode, enhanced string) llm.Prompt {
	return llm.Prompt{
		System: generateSystemPrompt,
		User:   fmt.Sprintf("Current code: %s. Change request: %s", currentCode, enhanced),
	}
}
