package content

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/chatkit/relay/model"
)

func TestFrom(t *testing.T) {
	c, err := From("Paris is the capital of France")
	require.NoError(t, err)
	require.Equal(t, "Paris is the capital of France", c.TextSegment.Text)
	require.Equal(t,
		`Content { textSegment = TextSegment { text = "Paris is the capital of France" metadata = {} } }`,
		c.String())

	_, err = From("   ")
	require.Error(t, err)
}

func TestFromSegment(t *testing.T) {
	seg, err := NewTextSegment("hello", map[string]string{"source": "wiki", "page": "3"})
	require.NoError(t, err)

	c, err := FromSegment(seg)
	require.NoError(t, err)
	require.Equal(t, `TextSegment { text = "hello" metadata = {page=3, source=wiki} }`, c.TextSegment.String())

	_, err = FromSegment(TextSegment{})
	require.Error(t, err)
}

func TestInject(t *testing.T) {
	a, err := From("fact one")
	require.NoError(t, err)
	b, err := From("fact two")
	require.NoError(t, err)

	t.Run("text message", func(t *testing.T) {
		user := model.UserMessageFrom("question?")
		got := Inject(user, a, b)
		text, ok := got.SingleText()
		require.True(t, ok)
		require.Equal(t, "question?\n\nAnswer using the following information:\nfact one\n\nfact two", text)

		// the original is untouched
		orig, _ := user.SingleText()
		require.Equal(t, "question?", orig)
	})

	t.Run("image only message", func(t *testing.T) {
		user := model.UserMessageFromContents(&model.ImageContent{URL: "https://example.com/cat.png"})
		got := Inject(user, a)
		require.Len(t, got.Contents, 2)
		require.Equal(t, "Answer using the following information:\nfact one", got.Text())
	})

	t.Run("nothing to inject", func(t *testing.T) {
		user := model.UserMessageFrom("q")
		require.Same(t, user, Inject(user))
	})
}
