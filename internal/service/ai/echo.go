package ai

import (
	"context"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/mentorcrm/chat/internal/model/chat"
)

// Echo is a deterministic Responder used when no model is configured. It
// streams the reply word by word so clients see real deltas.
type Echo struct{}

// Stream implements Responder.
func (Echo) Stream(_ context.Context, mode chat.Mode, history []chat.Message, query string) (*schema.StreamReader[*schema.Message], error) {
	reply := EchoReply(mode, len(history), query)

	words := strings.SplitAfter(reply, " ")
	chunks := make([]*schema.Message, 0, len(words))
	for _, w := range words {
		chunks = append(chunks, schema.AssistantMessage(w, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

// EchoReply is the full text Echo streams for a turn.
func EchoReply(mode chat.Mode, historyLen int, query string) string {
	prefix := "Recebi"
	if mode == chat.ModeDiagnostico {
		prefix = "Anotado para o diagnóstico"
	}
	if historyLen == 0 {
		return prefix + ": " + query
	}
	return prefix + " (mensagem " + strconv.Itoa(historyLen/2+1) + "): " + query
}
