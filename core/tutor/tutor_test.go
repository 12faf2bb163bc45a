package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoelito123/PyStart/testutil"
)

type fakeCompleter struct {
	answer    string
	err       error
	messages  []Message
	maxTokens int
}

func (c *fakeCompleter) Complete(_ context.Context, messages []Message, maxTokens int) (string, error) {
	c.messages, c.maxTokens = messages, maxTokens
	return c.answer, c.err
}

func (c *fakeCompleter) Provider() string { return "fake" }

type closingCompleter struct {
	fakeCompleter
	closed int
	err    error
}

func (c *closingCompleter) Close() error {
	c.closed++
	return c.err
}

func newTutor(c Completer) *Tutor {
	return NewTutor(c, validator.New(), "", testutil.NewLogger())
}

func TestTutor_Ask(t *testing.T) {
	t.Run("message required", func(t *testing.T) {
		_, err := newTutor(&fakeCompleter{}).Ask(context.Background(), AskRequest{})
		require.Error(t, err)
	})

	t.Run("conversation", func(t *testing.T) {
		var history []HistoryEntry
		for i := 1; i <= 7; i++ {
			sender := senderUser
			if i%2 == 0 {
				sender = senderAssistant
			}
			history = append(history, HistoryEntry{Sender: sender, Content: fmt.Sprint(i)})
		}
		history = append(history, HistoryEntry{Sender: "robot", Content: "ignored"})

		c := &fakeCompleter{answer: "use a for loop"}
		got, err := newTutor(c).Ask(context.Background(), AskRequest{
			Message:             "how do I loop?",
			Context:             &Context{CourseName: "Python 101", ExerciseCode: "print(1)"},
			ConversationHistory: history,
		})
		require.NoError(t, err)
		assert.Equal(t, AskResponse{Response: "use a for loop", Success: true, Provider: "fake"}, got)
		assert.Equal(t, askMaxTokens, c.maxTokens)

		// system, the last 5 entries minus the unknown sender, the question
		require.Len(t, c.messages, 6)
		assert.Equal(t, RoleSystem, c.messages[0].Role)
		assert.Contains(t, c.messages[0].Content, "Answer in Spanish")
		assert.Contains(t, c.messages[0].Content, "- Course: Python 101")
		assert.Contains(t, c.messages[0].Content, "```python\nprint(1)\n```")
		assert.Equal(t, []Message{
			{Role: RoleAssistant, Content: "4"},
			{Role: RoleUser, Content: "5"},
			{Role: RoleAssistant, Content: "6"},
			{Role: RoleUser, Content: "7"},
			{Role: RoleUser, Content: "how do I loop?"},
		}, c.messages[1:])
	})

	t.Run("no context", func(t *testing.T) {
		c := &fakeCompleter{answer: "ok"}
		_, err := NewTutor(c, validator.New(), "English", testutil.NewLogger()).
			Ask(context.Background(), AskRequest{Message: "hi"})
		require.NoError(t, err)
		assert.Contains(t, c.messages[0].Content, "Answer in English")
		assert.NotContains(t, c.messages[0].Content, "CURRENT CONTEXT")
	})

	t.Run("unavailable", func(t *testing.T) {
		got, err := newTutor(nil).Ask(context.Background(), AskRequest{Message: "hi"})
		require.NoError(t, err)
		assert.Equal(t, AskResponse{Response: msgUnavailable}, got)
	})

	t.Run("completer failure", func(t *testing.T) {
		logger := testutil.NewLogger()
		c := &fakeCompleter{err: errors.New("quota exceeded")}
		got, err := NewTutor(c, validator.New(), "", logger).Ask(context.Background(), AskRequest{Message: "hi"})
		require.NoError(t, err)
		assert.Equal(t, AskResponse{Response: msgAskFailed}, got)
		assert.Equal(t, 1, logger.Count("ERROR"))
	})
}

func TestTutor_ReviewCode(t *testing.T) {
	tests := []struct {
		name       string
		typ        string
		wantType   string
		wantPrompt string
	}{
		{name: "debug", typ: "debug", wantType: ReviewDebug, wantPrompt: reviewPrompts[ReviewDebug]},
		{name: "optimize", typ: "Optimize", wantType: ReviewOptimize, wantPrompt: reviewPrompts[ReviewOptimize]},
		{name: "explain", typ: "explain", wantType: ReviewExplain, wantPrompt: reviewPrompts[ReviewExplain]},
		{name: "empty type", typ: "", wantType: ReviewGeneral, wantPrompt: reviewPrompts[ReviewGeneral]},
		{name: "unknown type", typ: "refactor", wantType: ReviewGeneral, wantPrompt: reviewPrompts[ReviewGeneral]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCompleter{answer: "looks good"}
			got, err := newTutor(c).ReviewCode(context.Background(), ReviewRequest{Code: "print(1)\n", Type: tt.typ})
			require.NoError(t, err)
			assert.Equal(t, ReviewResponse{
				Analysis: "looks good",
				Code:     "print(1)\n",
				Type:     tt.wantType,
				Success:  true,
				Provider: "fake",
			}, got)
			assert.Equal(t, reviewMaxTokens, c.maxTokens)
			require.Len(t, c.messages, 2)
			assert.True(t, strings.HasPrefix(c.messages[1].Content, tt.wantPrompt))
			assert.True(t, strings.HasSuffix(c.messages[1].Content, "```python\nprint(1)\n```"))
		})
	}

	t.Run("code required", func(t *testing.T) {
		_, err := newTutor(&fakeCompleter{}).ReviewCode(context.Background(), ReviewRequest{Type: "debug"})
		require.Error(t, err)
	})

	t.Run("unavailable", func(t *testing.T) {
		got, err := newTutor(nil).ReviewCode(context.Background(), ReviewRequest{Code: "x = 1", Type: "debug"})
		require.NoError(t, err)
		assert.Equal(t, ReviewResponse{Analysis: msgUnavailable, Code: "x = 1", Type: ReviewDebug}, got)
	})

	t.Run("completer failure", func(t *testing.T) {
		c := &fakeCompleter{err: errors.New("boom")}
		got, err := newTutor(c).ReviewCode(context.Background(), ReviewRequest{Code: "x = 1"})
		require.NoError(t, err)
		assert.False(t, got.Success)
		assert.Equal(t, msgReviewFailed, got.Analysis)
	})
}

func TestTutor_Close(t *testing.T) {
	assert.NoError(t, newTutor(nil).Close())
	assert.NoError(t, newTutor(&fakeCompleter{}).Close())

	c := &closingCompleter{}
	assert.NoError(t, newTutor(c).Close())
	assert.Equal(t, 1, c.closed)

	c = &closingCompleter{err: errors.New("connection reset")}
	assert.EqualError(t, newTutor(c).Close(), "connection reset")
}
