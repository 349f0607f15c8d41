package llm

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// Echo is an offline client for local development. Enhancement requests are
// returned unchanged and generation requests produce a placeholder page that
// shows the request, so the pipeline can be driven end to end without a key.
type Echo struct{}

func (Echo) Complete(_ context.Context, prompt Prompt) (string, error) {
	if !strings.Contains(prompt.System, "HTML") {
		return prompt.User, nil
	}
	return fmt.Sprintf("```html\n<!DOCTYPE html>\n<html>\n<body class=\"p-8\">\n<p>%s</p>\n</body>\n</html>\n```",
		html.EscapeString(prompt.User)), nil
}
