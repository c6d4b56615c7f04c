package ai

import (
	"encoding/json"
	"strings"
)

// NoContentPlaceholder is shown to users when a reply carries no text.
const NoContentPlaceholder = "(no content)"

// Shape identifies which upstream response layout a reply was read from.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeOutputText
	ShapeOutputMessage
	ShapeOutputItemText
	ShapeLegacyMessage
	ShapeChatCompletion
)

func (s Shape) String() string {
	switch s {
	case ShapeOutputText:
		return "output_text"
	case ShapeOutputMessage:
		return "output_message"
	case ShapeOutputItemText:
		return "output_item_text"
	case ShapeLegacyMessage:
		return "legacy_message"
	case ShapeChatCompletion:
		return "chat_completion"
	default:
		return "unknown"
	}
}

// Reply is a normalized upstream reply. Shape is ShapeUnknown and Text is
// empty when no usable text was found.
type Reply struct {
	Shape Shape
	Text  string
}

// HasContent reports whether the reply carries text.
func (r Reply) HasContent() bool {
	return r.Shape != ShapeUnknown
}

// TextOrPlaceholder returns the reply text, or NoContentPlaceholder.
func (r Reply) TextOrPlaceholder() string {
	if !r.HasContent() {
		return NoContentPlaceholder
	}
	return r.Text
}

// resolver tries one response layout.
type resolver struct {
	shape Shape
	find  func(doc map[string]any) (string, bool)
}

// resolvers are tried in priority order; the first hit wins.
var resolvers = []resolver{
	{ShapeOutputText, fromOutputText},
	{ShapeOutputMessage, fromOutputMessages},
	{ShapeOutputItemText, fromOutputItems},
	{ShapeLegacyMessage, fromLegacyMessage},
	{ShapeChatCompletion, fromChoices},
}

// ParseReply decodes a raw response document and normalizes it. Bodies that
// are not a JSON object yield a reply without content.
func ParseReply(raw []byte) Reply {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Reply{}
	}
	return Normalize(doc)
}

// Normalize extracts the canonical reply text from a decoded document.
func Normalize(doc map[string]any) Reply {
	if doc == nil {
		return Reply{}
	}
	for _, r := range resolvers {
		if text, ok := r.find(doc); ok {
			return Reply{Shape: r.shape, Text: text}
		}
	}
	return Reply{}
}

// ExtractReplyText returns the reply text of doc, or false when there is none.
func ExtractReplyText(doc map[string]any) (string, bool) {
	r := Normalize(doc)
	return r.Text, r.HasContent()
}

func nonBlank(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func objects(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func fromOutputText(doc map[string]any) (string, bool) {
	return nonBlank(doc["output_text"])
}

func fromOutputMessages(doc map[string]any) (string, bool) {
	for _, item := range objects(doc["output"]) {
		if item["type"] != "message" {
			continue
		}
		if _, ok := item["content"].([]any); !ok {
			continue
		}
		if text, ok := fromContent(objects(item["content"])); ok {
			return text, true
		}
	}
	return "", false
}

// fromContent prefers output_text entries, then text entries, then any entry
// with a non-blank text field.
func fromContent(entries []map[string]any) (string, bool) {
	for _, tag := range []string{"output_text", "text"} {
		for _, e := range entries {
			if e["type"] != tag {
				continue
			}
			if text, ok := nonBlank(e["text"]); ok {
				return text, true
			}
		}
	}
	for _, e := range entries {
		if text, ok := nonBlank(e["text"]); ok {
			return text, true
		}
	}
	return "", false
}

func fromOutputItems(doc map[string]any) (string, bool) {
	for _, item := range objects(doc["output"]) {
		if item["type"] != "output_text" {
			continue
		}
		if text, ok := nonBlank(item["text"]); ok {
			return text, true
		}
	}
	return "", false
}

// message.content[0].text.value
func fromLegacyMessage(doc map[string]any) (string, bool) {
	msg, ok := doc["message"].(map[string]any)
	if !ok {
		return "", false
	}
	content, _ := msg["content"].([]any)
	if len(content) == 0 {
		return "", false
	}
	first, ok := content[0].(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := first["text"].(map[string]any)
	if !ok {
		return "", false
	}
	return nonBlank(text["value"])
}

// choices[0].message.content
func fromChoices(doc map[string]any) (string, bool) {
	choices, _ := doc["choices"].([]any)
	if len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := first["message"].(map[string]any)
	if !ok {
		return "", false
	}
	return nonBlank(msg["content"])
}
