package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mentorcrm/chat/internal/config"
	"github.com/mentorcrm/chat/internal/model/chat"
)

// fakeModel records the prompt it receives and answers with a fixed reply.
type fakeModel struct {
	reply string
	input []*schema.Message
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = input
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.input = input
	var chunks []*schema.Message
	for _, part := range strings.SplitAfter(f.reply, " ") {
		chunks = append(chunks, schema.AssistantMessage(part, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func (f *fakeModel) BindTools([]*schema.ToolInfo) error { return nil }

func drain(t *testing.T, stream *schema.StreamReader[*schema.Message]) []string {
	t.Helper()
	defer stream.Close()

	var parts []string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return parts
		}
		if err != nil {
			t.Fatalf("Recv err: %v", err)
		}
		parts = append(parts, chunk.Content)
	}
}

func TestEchoStreamsWordByWord(t *testing.T) {
	stream, err := Echo{}.Stream(context.Background(), chat.ModeChat, nil, "olá mundo")
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}
	parts := drain(t, stream)
	if len(parts) != 3 {
		t.Fatalf("expected 3 chunks, got %q", parts)
	}
	if got := strings.Join(parts, ""); got != "Recebi: olá mundo" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestEchoReplyMentionsTurn(t *testing.T) {
	if got := EchoReply(chat.ModeDiagnostico, 4, "x"); got != "Anotado para o diagnóstico (mensagem 3): x" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestModePrompts(t *testing.T) {
	pm := NewModePromptManager()
	chatPrompt := pm.BuildSystemPrompt(chat.ModeChat)
	diagPrompt := pm.BuildSystemPrompt(chat.ModeDiagnostico)

	if chatPrompt == diagPrompt {
		t.Fatalf("modes should have distinct prompts")
	}
	if !strings.Contains(diagPrompt, "uma pergunta por vez") {
		t.Fatalf("unexpected diagnostico prompt %q", diagPrompt)
	}
	if got := pm.BuildSystemPrompt(chat.Mode("other")); got != chatPrompt {
		t.Fatalf("unknown modes should fall back to chat prompt")
	}
	if _, err := pm.GetPromptTemplate(chat.Mode("other")); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestHistoryLimit(t *testing.T) {
	msgs := []chat.Message{
		{Role: chat.RoleUser, Content: "1"},
		{Role: chat.RoleAssistant, Content: "2"},
		{Role: chat.RoleUser, Content: "3"},
	}
	history := buildHistoryMessages(msgs, 2)
	if len(history) != 2 || history[0].Content != "2" || history[1].Role != schema.User {
		t.Fatalf("unexpected history %+v", history)
	}
	if buildHistoryMessages(nil, 2) != nil {
		t.Fatalf("empty history should be nil")
	}
}

func TestServiceStreamsThroughChain(t *testing.T) {
	fm := &fakeModel{reply: "tudo certo"}
	svc, err := NewServiceWithModel(context.Background(), fm, config.AIConfig{StreamResponse: true, HistoryLimit: 10})
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}

	history := []chat.Message{{Role: chat.RoleUser, Content: "antes"}}
	stream, err := svc.Stream(context.Background(), chat.ModeDiagnostico, history, "agora")
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}
	if got := strings.Join(drain(t, stream), ""); got != "tudo certo" {
		t.Fatalf("unexpected reply %q", got)
	}

	if len(fm.input) != 3 {
		t.Fatalf("expected system, history and query messages, got %d", len(fm.input))
	}
	if fm.input[0].Role != schema.System || !strings.Contains(fm.input[0].Content, "diagnóstico") {
		t.Fatalf("unexpected system message %+v", fm.input[0])
	}
	if fm.input[2].Content != "agora" {
		t.Fatalf("unexpected query message %+v", fm.input[2])
	}
}

func TestServiceWithoutStreaming(t *testing.T) {
	fm := &fakeModel{reply: "resposta completa"}
	svc, err := NewServiceWithModel(context.Background(), fm, config.AIConfig{})
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}

	stream, err := svc.Stream(context.Background(), chat.ModeChat, nil, "oi")
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}
	parts := drain(t, stream)
	if len(parts) != 1 || parts[0] != "resposta completa" {
		t.Fatalf("expected a single chunk, got %q", parts)
	}
}

func TestNewServiceRequiresCredentials(t *testing.T) {
	if _, err := NewService(context.Background(), config.AIConfig{}); err == nil {
		t.Fatalf("expected error without credentials")
	}
}
