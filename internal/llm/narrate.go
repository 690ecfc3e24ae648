// Narrative prose generation with templated fallbacks. Generation
// failures degrade to the fallback text and never fail the caller.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const chroniclerSystem = `You are the royal chronicler of an ancient world of rival kingdoms.
Narrate events in 2-3 sentences of period-appropriate prose. Be vivid but
concise. Never break character, never mention dice, stats or simulations.`

// Narrate renders an event description as chronicler prose. On
// generation failure the plain description is returned unchanged.
func Narrate(ctx context.Context, gen Generator, worldContext, eventDesc string) string {
	if gen == nil {
		return eventDesc
	}
	prompt := eventDesc
	if worldContext != "" {
		prompt = fmt.Sprintf("%s\n\nEvent to narrate: %s", worldContext, eventDesc)
	}
	text, err := gen.Generate(ctx, chroniclerSystem, prompt, 200)
	if err != nil {
		slog.Debug("narration fallback", "error", err)
		return eventDesc
	}
	return strings.TrimSpace(text)
}

// Chronicle renders a year-change summary from the tick's event lines.
// Falls back to a plain listing when generation is unavailable.
func Chronicle(ctx context.Context, gen Generator, year string, lines []string) string {
	fallback := fallbackChronicle(year, lines)
	if gen == nil || len(lines) == 0 {
		return fallback
	}

	prompt := fmt.Sprintf(
		"The year %s has ended. These events took place:\n%s\n\nWrite a short chronicle entry (3-4 sentences) summarizing the year.",
		year, "- "+strings.Join(lines, "\n- "))

	text, err := gen.Generate(ctx, chroniclerSystem, prompt, 400)
	if err != nil {
		slog.Debug("chronicle fallback", "error", err)
		return fallback
	}
	return strings.TrimSpace(text)
}

func fallbackChronicle(year string, lines []string) string {
	if len(lines) == 0 {
		return fmt.Sprintf("The year %s passed quietly.", year)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Chronicle of %s:\n", year)
	for _, line := range lines {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	return strings.TrimRight(b.String(), "\n")
}
