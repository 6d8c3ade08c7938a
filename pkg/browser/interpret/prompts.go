package interpret

import (
	"fmt"
	"strings"

	"github.com/agbcloud/agb-go/pkg/browser"
)

const actSystemPrompt = `You translate one browser instruction into an ordered list of primitive operations.

Answer with a single JSON object:
{"primitives": [{"kind": "...", "selector": "...", "value": "..."}]}

Kinds and their arguments:
- "navigate": value is the absolute URL
- "click": selector locates the element
- "fill": selector locates the input, value is the text to enter
- "press": selector locates the element, value is the key (e.g. "Enter")
- "scroll": value is the vertical delta in pixels, positive scrolls down
- "wait": selector locates the element to wait for

Use selectors that appear in the page context. Return the minimal sequence
that accomplishes the instruction. Return {"primitives": []} when the
instruction requires nothing.`

const observeSystemPrompt = `You locate elements on a web page matching an instruction.

Answer with a single JSON object:
{"elements": [{"selector": "...", "description": "...", "role": "...", "text": "..."}]}

Order elements by relevance to the instruction. Use selectors that appear in
the page context. Return {"elements": []} when nothing matches; that is a
valid answer, not an error.`

const extractSystemPrompt = `You extract structured data from a web page.

Answer with a single JSON object: {"data": {...}} where the value of "data"
conforms exactly to the field schema in the request: every required field
present, every value of the declared type. Use null for optional fields you
cannot determine. Never invent values that are not on the page.`

func actUserPrompt(instruction string, page *browser.PageContext) string {
	return fmt.Sprintf("Instruction: %s\n\n%s", instruction, pageBlock(page))
}

func observeUserPrompt(instruction string, page *browser.PageContext, maxResults int) string {
	return fmt.Sprintf("Instruction: %s\nReturn at most %d elements.\n\n%s",
		instruction, maxResults, pageBlock(page))
}

func extractUserPrompt(instruction, schemaJSON string, page *browser.PageContext) string {
	return fmt.Sprintf("Instruction: %s\nField schema: %s\n\n%s",
		instruction, schemaJSON, pageBlock(page))
}

func pageBlock(page *browser.PageContext) string {
	var b strings.Builder
	b.WriteString("Current page:\n")
	fmt.Fprintf(&b, "URL: %s\n", page.URL)
	fmt.Fprintf(&b, "Title: %s\n", page.Title)
	b.WriteString("Content:\n")
	b.WriteString(page.Text)
	return b.String()
}
