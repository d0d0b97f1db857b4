package model

import (
	"strings"
)

// MessageType identifies the author of a ChatMessage.
type MessageType string

const (
	MessageTypeSystem              MessageType = "SYSTEM"
	MessageTypeUser                MessageType = "USER"
	MessageTypeAi                  MessageType = "AI"
	MessageTypeToolExecutionResult MessageType = "TOOL_EXECUTION_RESULT"
)

// ChatMessage is one turn of a conversation sent to or received from a chat model.
type ChatMessage interface {
	Type() MessageType
}

// SystemMessage carries instructions for the model.
type SystemMessage struct {
	Text string `json:"text"`
}

// SystemMessageFrom builds a system message.
func SystemMessageFrom(text string) *SystemMessage {
	return &SystemMessage{Text: text}
}

func (m *SystemMessage) Type() MessageType { return MessageTypeSystem }

// ContentType is the kind of a UserMessage content part.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// Content is one part of a UserMessage.
type Content interface {
	ContentType() ContentType
}

// TextContent is a plain text part.
type TextContent struct {
	Text string `json:"text"`
}

func (c *TextContent) ContentType() ContentType { return ContentTypeText }

// ImageContent is an image part, given either inline as base64 or by URL.
type ImageContent struct {
	URL        string `json:"url,omitempty"`
	Base64Data string `json:"base64_data,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
}

func (c *ImageContent) ContentType() ContentType { return ContentTypeImage }

// Inline reports whether the image data is carried in the message itself.
func (c *ImageContent) Inline() bool {
	return c.Base64Data != ""
}

// UserMessage is a message authored by the end user.
type UserMessage struct {
	Name     string    `json:"name,omitempty"`
	Contents []Content `json:"contents"`
}

// UserMessageFrom builds a text-only user message.
func UserMessageFrom(text string) *UserMessage {
	return &UserMessage{Contents: []Content{&TextContent{Text: text}}}
}

// UserMessageFromContents builds a user message from ordered parts.
func UserMessageFromContents(contents ...Content) *UserMessage {
	return &UserMessage{Contents: contents}
}

func (m *UserMessage) Type() MessageType { return MessageTypeUser }

// SingleText returns the text of the message when it consists of exactly one text part.
func (m *UserMessage) SingleText() (string, bool) {
	if len(m.Contents) != 1 {
		return "", false
	}
	tc, ok := m.Contents[0].(*TextContent)
	if !ok {
		return "", false
	}
	return tc.Text, true
}

// Text joins every text part with newlines, ignoring images.
func (m *UserMessage) Text() string {
	var parts []string
	for _, c := range m.Contents {
		if tc, ok := c.(*TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// HasImages reports whether any part is an image.
func (m *UserMessage) HasImages() bool {
	for _, c := range m.Contents {
		if c.ContentType() == ContentTypeImage {
			return true
		}
	}
	return false
}

// AiMessage is a model reply. It has text, tool execution requests, or both.
type AiMessage struct {
	Text                  string                 `json:"text,omitempty"`
	ToolExecutionRequests []ToolExecutionRequest `json:"tool_execution_requests,omitempty"`
}

// AiMessageFrom builds a text reply.
func AiMessageFrom(text string) *AiMessage {
	return &AiMessage{Text: text}
}

// AiMessageFromToolRequests builds a reply asking for tool executions.
func AiMessageFromToolRequests(requests ...ToolExecutionRequest) *AiMessage {
	return &AiMessage{ToolExecutionRequests: requests}
}

func (m *AiMessage) Type() MessageType { return MessageTypeAi }

// HasToolExecutionRequests reports whether the model asked for tool calls.
func (m *AiMessage) HasToolExecutionRequests() bool {
	return len(m.ToolExecutionRequests) > 0
}

// ToolExecutionResultMessage returns the output of a tool to the model.
type ToolExecutionResultMessage struct {
	ID       string `json:"id"`
	ToolName string `json:"tool_name"`
	Text     string `json:"text"`
}

// ToolExecutionResultMessageFrom answers the given request.
func ToolExecutionResultMessageFrom(req ToolExecutionRequest, text string) *ToolExecutionResultMessage {
	return &ToolExecutionResultMessage{ID: req.ID, ToolName: req.Name, Text: text}
}

func (m *ToolExecutionResultMessage) Type() MessageType { return MessageTypeToolExecutionResult }

// TextOf returns the plain text carried by any message kind.
func TextOf(msg ChatMessage) string {
	switch m := msg.(type) {
	case *SystemMessage:
		return m.Text
	case *UserMessage:
		return m.Text()
	case *AiMessage:
		return m.Text
	case *ToolExecutionResultMessage:
		return m.Text
	default:
		return ""
	}
}
