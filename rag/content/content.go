// Package content holds retrieved content used to ground model answers.
package content

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/chatkit/relay/model"
)

// TextSegment is a piece of text with optional metadata describing its origin.
type TextSegment struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewTextSegment rejects blank text.
func NewTextSegment(text string, metadata map[string]string) (TextSegment, error) {
	if strings.TrimSpace(text) == "" {
		return TextSegment{}, errors.New("text cannot be null or blank")
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return TextSegment{Text: text, Metadata: metadata}, nil
}

func (s TextSegment) String() string {
	keys := make([]string, 0, len(s.Metadata))
	for k := range s.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+s.Metadata[k])
	}
	return fmt.Sprintf("TextSegment { text = %q metadata = {%s} }", s.Text, strings.Join(pairs, ", "))
}

// Content is a unit of retrieved information relevant to a user query.
type Content struct {
	TextSegment TextSegment `json:"text_segment"`
}

// From wraps plain text.
func From(text string) (*Content, error) {
	segment, err := NewTextSegment(text, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build content")
	}
	return &Content{TextSegment: segment}, nil
}

// FromSegment wraps an existing segment. Empty segments are rejected.
func FromSegment(segment TextSegment) (*Content, error) {
	if strings.TrimSpace(segment.Text) == "" {
		return nil, errors.New("textSegment cannot be null")
	}
	return &Content{TextSegment: segment}, nil
}

func (c *Content) String() string {
	return "Content { textSegment = " + c.TextSegment.String() + " }"
}

const injectionHeader = "Answer using the following information:"

// Inject returns a copy of user whose text is followed by the contents.
// Non-text parts of the message are kept in order.
func Inject(user *model.UserMessage, contents ...*Content) *model.UserMessage {
	if len(contents) == 0 {
		return user
	}

	texts := make([]string, 0, len(contents))
	for _, c := range contents {
		if c == nil {
			continue
		}
		texts = append(texts, c.TextSegment.Text)
	}
	if len(texts) == 0 {
		return user
	}
	block := injectionHeader + "\n" + strings.Join(texts, "\n\n")

	out := &model.UserMessage{Name: user.Name}
	injected := false
	for _, part := range user.Contents {
		if tc, ok := part.(*model.TextContent); ok && !injected {
			out.Contents = append(out.Contents, &model.TextContent{Text: tc.Text + "\n\n" + block})
			injected = true
			continue
		}
		out.Contents = append(out.Contents, part)
	}
	if !injected {
		out.Contents = append(out.Contents, &model.TextContent{Text: block})
	}
	return out
}
