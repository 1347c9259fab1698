package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type ContentKind string

const (
	ContentKindText ContentKind = "text"
	ContentKindData ContentKind = "data"
)

var ErrEmptyContent = errors.New("message content is empty")

// MessageContent is either a text body or a structured JSON document.
// The kind is fixed when the content is built at the edge of the system.
type MessageContent struct {
	Kind ContentKind     `json:"kind"`
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewTextContent(text string) MessageContent {
	return MessageContent{Kind: ContentKindText, Text: text}
}

func NewDataContent(data json.RawMessage) MessageContent {
	return MessageContent{Kind: ContentKindData, Data: data}
}

// ContentFromJSON builds content from an arbitrary JSON value. Strings become
// text content, objects and arrays become data content.
func ContentFromJSON(raw json.RawMessage) (MessageContent, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return MessageContent{}, ErrEmptyContent
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return MessageContent{}, fmt.Errorf("decoding text content: %w", err)
		}
		return NewTextContent(s), nil
	case '{', '[':
		if !json.Valid(trimmed) {
			return MessageContent{}, errors.New("content is not valid JSON")
		}
		return NewDataContent(json.RawMessage(trimmed)), nil
	default:
		return MessageContent{}, fmt.Errorf("unsupported content type %q", string(trimmed[0]))
	}
}

func (c MessageContent) IsEmpty() bool {
	switch c.Kind {
	case ContentKindText:
		return c.Text == ""
	case ContentKindData:
		d := bytes.TrimSpace(c.Data)
		return len(d) == 0 || bytes.Equal(d, []byte("null"))
	default:
		return true
	}
}

// PlainText renders the content for platforms that only accept text.
// Data content with a top level "text" field renders as that field.
func (c MessageContent) PlainText() string {
	switch c.Kind {
	case ContentKindText:
		return c.Text
	case ContentKindData:
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(c.Data, &obj); err == nil && obj.Text != "" {
			return obj.Text
		}
		return string(c.Data)
	default:
		return ""
	}
}

// Value returns the JSON value carried by the content, a string for text content.
func (c MessageContent) Value() json.RawMessage {
	if c.Kind == ContentKindData {
		return c.Data
	}
	b, _ := json.Marshal(c.Text)
	return b
}
