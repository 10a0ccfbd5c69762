// Package chatbot implements the prompt-engineering assistant: a single
// durable multi-turn conversation with mode-specific system prompts.
package chatbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/artfoundry/atelier/backend/internal/logger"
	"github.com/artfoundry/atelier/backend/internal/storage/object"
)

// ErrChatInvocation marks chat model failures. The conversation state is
// left untouched so the user can simply retry.
var ErrChatInvocation = errors.New("chat invocation failed")

// historyKey is the object the serialized conversation lives under. The
// assistant keeps one conversation, not one per session.
const historyKey = "chat_history"

// Turn is one message of the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Service drives the assistant. Each Send is one synchronous
// load-invoke-persist sequence; a model failure persists nothing.
type Service struct {
	model   einoModel.BaseChatModel
	objects object.Store
	log     zerolog.Logger
}

// NewService wires the assistant over a chat model and durable storage.
func NewService(chatModel einoModel.BaseChatModel, objects object.Store) *Service {
	return &Service{
		model:   chatModel,
		objects: objects,
		log:     logger.With("chatbot"),
	}
}

// History returns the stored conversation. An absent or unreadable history
// renders as an empty conversation rather than an error.
func (s *Service) History(ctx context.Context) []Turn {
	data, err := s.objects.Get(ctx, historyKey)
	if err != nil {
		if !errors.Is(err, object.ErrNotFound) {
			s.log.Warn().Err(err).Msg("failed to read chat history, rendering empty")
		}
		return []Turn{}
	}

	var turns []Turn
	if err := sonic.Unmarshal(data, &turns); err != nil {
		s.log.Warn().Err(err).Msg("corrupted chat history, rendering empty")
		return []Turn{}
	}
	return turns
}

// Send appends the user's message, generates the assistant's reply under
// the mode's system prompt with the full history as context, persists the
// extended conversation, and returns it.
func (s *Service) Send(ctx context.Context, mode Mode, message string) ([]Turn, error) {
	systemPrompt, ok := systemPrompts[mode]
	if !ok {
		return nil, fmt.Errorf("unknown conversation mode %q", mode)
	}

	history := s.History(ctx)

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	for _, turn := range history {
		if turn.Role == RoleAssistant {
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
			continue
		}
		messages = append(messages, schema.UserMessage(turn.Content))
	}
	messages = append(messages, schema.UserMessage(message))

	response, err := s.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChatInvocation, err)
	}

	history = append(history,
		Turn{Role: RoleUser, Content: message},
		Turn{Role: RoleAssistant, Content: response.Content},
	)
	if err := s.save(ctx, history); err != nil {
		return nil, err
	}
	return history, nil
}

// Reset starts a new conversation, discarding the stored history.
func (s *Service) Reset(ctx context.Context) error {
	return s.save(ctx, []Turn{})
}

func (s *Service) save(ctx context.Context, turns []Turn) error {
	data, err := sonic.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to marshal chat history: %w", err)
	}
	if err := s.objects.Put(ctx, historyKey, data); err != nil {
		return fmt.Errorf("failed to save chat history: %w", err)
	}
	return nil
}
