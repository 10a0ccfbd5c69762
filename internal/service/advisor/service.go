// Package advisor reviews image-generation prompts with a chat LLM and
// returns actionable feedback grounded in the prompt-engineering guide the
// product ships.
package advisor

import (
	"context"
	"fmt"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Service wraps a compiled prompt-review chain.
type Service struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService builds the review chain over the given chat model.
func NewService(ctx context.Context, chatModel einoModel.BaseChatModel) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(reviewSystemPrompt),
		schema.UserMessage("Analyze the following image-generation prompt:\n\n\"{prompt}\""),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile review chain: %w", err)
	}

	return &Service{chain: runnable}, nil
}

// Review returns a single-shot critique of the prompt.
func (s *Service) Review(ctx context.Context, promptText string) (string, error) {
	response, err := s.chain.Invoke(ctx, map[string]any{"prompt": promptText})
	if err != nil {
		return "", fmt.Errorf("failed to run review chain: %w", err)
	}
	return response.Content, nil
}

// Stream returns the critique as a token stream for SSE delivery.
func (s *Service) Stream(ctx context.Context, promptText string) (*schema.StreamReader[*schema.Message], error) {
	stream, err := s.chain.Stream(ctx, map[string]any{"prompt": promptText})
	if err != nil {
		return nil, fmt.Errorf("failed to stream review chain output: %w", err)
	}
	return stream, nil
}
