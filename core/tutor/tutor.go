// Package tutor answers student questions and reviews code through a language model.
package tutor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"

	"github.com/jhoelito123/PyStart/core"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	ReviewDebug    = "debug"
	ReviewOptimize = "optimize"
	ReviewExplain  = "explain"
	ReviewGeneral  = "general"

	historyLimit    = 5
	askMaxTokens    = 1000
	reviewMaxTokens = 800
	msgUnavailable  = "The AI service is not available. Check the AI provider configuration."
	msgAskFailed    = "Sorry, I could not process your question right now. Please try again."
	msgReviewFailed = "Sorry, I could not analyze the code right now. Please try again."
	defaultLanguage = "Spanish"
	senderUser      = "user"
	senderAssistant = "ai"
)

type Message struct {
	Role    string
	Content string
}

// Completer is a chat completion backend.
type Completer interface {
	Complete(ctx context.Context, messages []Message, maxTokens int) (string, error)
	Provider() string
}

type (
	// Context describes where the student is when asking.
	Context struct {
		CourseName           string `json:"courseName"`
		SectionName          string `json:"sectionName"`
		SectionDescription   string `json:"sectionDescription"`
		ExerciseCode         string `json:"exerciseCode"`
		ExerciseInstructions string `json:"exerciseInstructions"`
	}

	HistoryEntry struct {
		Sender  string `json:"sender"` // user | ai
		Content string `json:"content"`
	}

	AskRequest struct {
		Message             string         `json:"message" validate:"required"`
		Context             *Context       `json:"context"`
		ConversationHistory []HistoryEntry `json:"conversationHistory"`
	}

	AskResponse struct {
		Response string `json:"response"`
		Success  bool   `json:"success"`
		Provider string `json:"provider,omitempty"`
	}

	ReviewRequest struct {
		Code string `json:"code" validate:"required"`
		Type string `json:"type"`
	}

	ReviewResponse struct {
		Analysis string `json:"analysis"`
		Code     string `json:"code"`
		Type     string `json:"type"`
		Success  bool   `json:"success"`
		Provider string `json:"provider,omitempty"`
	}
)

var reviewPrompts = map[string]string{
	ReviewDebug:    "Analyze this Python code and find possible errors or problems. Explain what is wrong and how to fix it:",
	ReviewOptimize: "Analyze this Python code and suggest improvements in efficiency, readability and good practices:",
	ReviewExplain:  "Explain line by line, in an educational way, what this Python code does:",
	ReviewGeneral:  "Analyze this Python code and give general feedback including possible errors, improvements and explanations:",
}

const personaPrompt = `You are an AI assistant specialized in teaching Python programming to beginner and intermediate students. Your goal is to help students understand concepts, solve exercises and debug code.

INSTRUCTIONS:
1. Answer in %s, clearly and in an educational way
2. Use code examples when appropriate
3. Explain concepts step by step
4. Be patient and encouraging
5. If the code has errors, explain what is wrong and how to fix it
6. Suggest good practices when relevant
7. Keep answers concise but complete (500 words at most)

PERSONALITY:
- Friendly and professional
- Patient with beginners
- Enthusiastic about programming
- Focused on practical learning`

const contextPrompt = `

CURRENT CONTEXT:
- Course: %s
- Section: %s
- Description: %s
- Exercise instructions: %s
- Student's current code:
` + "```python\n%s\n```" + `

Use this context to give more specific and relevant answers.`

type Tutor struct {
	completer Completer // nil when no provider is configured
	validate  *validator.Validate
	language  string
	logger    core.Logger
}

// NewTutor returns a Tutor. completer may be nil: every answer then reports the service as unavailable.
func NewTutor(completer Completer, validate *validator.Validate, language string, logger core.Logger) *Tutor {
	vala.BeginValidation().Validate(
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	if language == "" {
		language = defaultLanguage
	}
	return &Tutor{completer: completer, validate: validate, language: language, logger: logger}
}

// Close releases the completer when it holds resources (e.g. a client connection).
func (t *Tutor) Close() error {
	if c, ok := t.completer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *Tutor) systemPrompt(c *Context) string {
	prompt := fmt.Sprintf(personaPrompt, t.language)
	if c != nil {
		prompt += fmt.Sprintf(contextPrompt,
			c.CourseName, c.SectionName, c.SectionDescription, c.ExerciseInstructions, c.ExerciseCode)
	}
	return prompt
}

// conversation replays the last exchanges of history before the current message.
func (t *Tutor) conversation(req AskRequest) []Message {
	msgs := []Message{{Role: RoleSystem, Content: t.systemPrompt(req.Context)}}

	history := req.ConversationHistory
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, h := range history {
		switch h.Sender {
		case senderUser:
			msgs = append(msgs, Message{Role: RoleUser, Content: h.Content})
		case senderAssistant:
			msgs = append(msgs, Message{Role: RoleAssistant, Content: h.Content})
		}
	}
	return append(msgs, Message{Role: RoleUser, Content: req.Message})
}

// Ask answers a student question. Only validation errors are returned.
func (t *Tutor) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	if err := t.validate.Struct(req); err != nil {
		return AskResponse{}, err
	}
	if t.completer == nil {
		return AskResponse{Response: msgUnavailable}, nil
	}

	answer, err := t.completer.Complete(ctx, t.conversation(req), askMaxTokens)
	if err != nil {
		t.logger.Error(fmt.Sprintf("tutor: answering question: %v", err), err)
		return AskResponse{Response: msgAskFailed}, nil
	}
	return AskResponse{Response: answer, Success: true, Provider: t.completer.Provider()}, nil
}

// ReviewCode comments on a piece of code. Unknown review types fall back to a general review.
func (t *Tutor) ReviewCode(ctx context.Context, req ReviewRequest) (ReviewResponse, error) {
	if err := t.validate.Struct(req); err != nil {
		return ReviewResponse{}, err
	}
	req.Type = core.CleanString(req.Type, true)
	prompt, ok := reviewPrompts[req.Type]
	if !ok {
		req.Type = ReviewGeneral
		prompt = reviewPrompts[ReviewGeneral]
	}
	resp := ReviewResponse{Code: req.Code, Type: req.Type}

	if t.completer == nil {
		resp.Analysis = msgUnavailable
		return resp, nil
	}

	msgs := []Message{
		{Role: RoleSystem, Content: fmt.Sprintf("You are an expert Python instructor. Give clear and educational code reviews in %s.", t.language)},
		{Role: RoleUser, Content: prompt + "\n\n```python\n" + strings.TrimRight(req.Code, "\n") + "\n```"},
	}
	analysis, err := t.completer.Complete(ctx, msgs, reviewMaxTokens)
	if err != nil {
		t.logger.Error(fmt.Sprintf("tutor: reviewing code: %v", err), err)
		resp.Analysis = msgReviewFailed
		return resp, nil
	}
	resp.Analysis = analysis
	resp.Success = true
	resp.Provider = t.completer.Provider()
	return resp, nil
}
