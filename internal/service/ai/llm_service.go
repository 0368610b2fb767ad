package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/mentorcrm/chat/internal/config"
	"github.com/mentorcrm/chat/internal/model/chat"
)

// Responder produces the assistant reply for one user turn as a stream of
// message chunks.
type Responder interface {
	Stream(ctx context.Context, mode chat.Mode, history []chat.Message, query string) (*schema.StreamReader[*schema.Message], error)
}

// Service answers through an eino chain backed by a chat model.
type Service struct {
	chatModel model.ChatModel
	prompts   *ModePromptManager
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService builds the chain around the Ark model described by cfg.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg)
}

// NewServiceWithModel builds the chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, cfg config.AIConfig) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		prompts:   NewModePromptManager(),
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// StreamingEnabled reports whether the model output is streamed.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// Stream runs the chain for one turn. With streaming disabled the full
// reply arrives as a single chunk.
func (s *Service) Stream(ctx context.Context, mode chat.Mode, history []chat.Message, query string) (*schema.StreamReader[*schema.Message], error) {
	input := s.buildChainInput(mode, history, query)

	if !s.StreamingEnabled() {
		response, err := s.chain.Invoke(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to run AI chain: %w", err)
		}
		log.Printf("[ai] generated response mode=%s length=%d", mode, len(response.Content))
		return schema.StreamReaderFromArray([]*schema.Message{response}), nil
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	return stream, nil
}

func (s *Service) buildChainInput(mode chat.Mode, history []chat.Message, query string) map[string]any {
	return map[string]any{
		"system":  s.prompts.BuildSystemPrompt(mode),
		"history": buildHistoryMessages(history, s.cfg.HistoryLimit),
		"query":   query,
	}
}

func buildHistoryMessages(messages []chat.Message, limit int) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if limit > 0 && len(messages) > limit {
		startIdx = len(messages) - limit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}
