package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mentorcrm/chat/internal/middleware"
	"github.com/mentorcrm/chat/internal/model/chat"
	"github.com/mentorcrm/chat/internal/service/ai"
	chatService "github.com/mentorcrm/chat/internal/service/chat"
)

// CloseUnauthorized is sent when the query token is rejected.
const CloseUnauthorized = 4001

// LookupTool is the built-in tool the server runs when a turn asks about
// earlier conversations.
const LookupTool = "lookup_session"

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Messages shown to the user in error frames.
const (
	msgEmptyMessage     = "Mensagem vazia."
	msgUnknownSession   = "Sessão não encontrada."
	msgUnknownMode      = "Modo de conversa desconhecido."
	msgRateLimited      = "Muitas mensagens seguidas. Aguarde um instante."
	msgInvalidPayload   = "Mensagem inválida."
	msgResponderFailed  = "Não foi possível gerar a resposta."
	msgReplyInterrupted = "A resposta foi interrompida."
	msgTurnFailed       = "Não foi possível processar a mensagem."
)

var (
	errEmptyMessage     = errors.New("empty message")
	errUnknownSession   = errors.New("unknown session")
	errUnknownMode      = errors.New("unknown mode")
	errResponderFailed  = errors.New("responder failed")
	errReplyInterrupted = errors.New("reply interrupted")
)

// turnErrorMessage maps a failed turn to the text of its error frame.
func turnErrorMessage(err error) string {
	switch {
	case errors.Is(err, errEmptyMessage):
		return msgEmptyMessage
	case errors.Is(err, errUnknownSession):
		return msgUnknownSession
	case errors.Is(err, errUnknownMode):
		return msgUnknownMode
	case errors.Is(err, errResponderFailed):
		return msgResponderFailed
	case errors.Is(err, errReplyInterrupted):
		return msgReplyInterrupted
	default:
		return msgTurnFailed
	}
}

// WebSocketHandler streams chat turns over a websocket.
type WebSocketHandler struct {
	chatSvc   *chatService.Service
	responder ai.Responder
	tokens    *middleware.Tokens
	upgrader  websocket.Upgrader

	// per-connection turn limit
	turnRate  rate.Limit
	turnBurst int
}

// NewWebSocketHandler creates the websocket handler.
func NewWebSocketHandler(chatSvc *chatService.Service, responder ai.Responder, tokens *middleware.Tokens) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc:   chatSvc,
		responder: responder,
		tokens:    tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		turnRate:  rate.Every(500 * time.Millisecond),
		turnBurst: 5,
	}
}

// RegisterRoutes registers the websocket route.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/ws", h.handleWebSocket)
}

// handleWebSocket serves one websocket connection.
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if !h.tokens.Valid(token) {
		log.Printf("[websocket] rejected connection from %s: invalid token", r.RemoteAddr)
		msg := websocket.FormatCloseMessage(CloseUnauthorized, "unauthorized")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	limiter := rate.NewLimiter(h.turnRate, h.turnBurst)
	log.Printf("[websocket] new connection from %s", r.RemoteAddr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		var req chat.SendRequest
		if err := json.Unmarshal(data, &req); err != nil {
			h.sendError(conn, msgInvalidPayload)
			continue
		}
		if !limiter.Allow() {
			h.sendError(conn, msgRateLimited)
			continue
		}

		if err := h.handleTurn(ctx, conn, req); err != nil {
			log.Printf("[websocket] turn failed: %v", err)
			h.sendError(conn, turnErrorMessage(err))
		}
	}
}

// handleTurn runs one user turn: resolve or create the session, persist the
// user message, optionally run the lookup tool, stream the reply.
func (h *WebSocketHandler) handleTurn(ctx context.Context, conn *websocket.Conn, req chat.SendRequest) error {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return errEmptyMessage
	}

	mode := req.Mode
	if mode == "" {
		mode = chat.ModeChat
	}
	if !mode.Valid() {
		return errUnknownMode
	}

	var sessionID string
	if req.ConversationID != nil && *req.ConversationID != "" {
		if _, err := h.chatSvc.GetSession(ctx, mode, *req.ConversationID); err != nil {
			return errUnknownSession
		}
		sessionID = *req.ConversationID
	} else {
		session, err := h.chatSvc.CreateSession(ctx, mode)
		if err != nil {
			return err
		}
		sessionID = session.ID
		if err := h.send(conn, chat.Event{Type: chat.EventSessionStarted, ConversationID: sessionID}); err != nil {
			return err
		}
	}

	history, err := h.chatSvc.LoadTranscript(ctx, mode, sessionID)
	if err != nil {
		return errUnknownSession
	}
	if err := h.chatSvc.SaveMessage(ctx, mode, sessionID, chat.Message{Role: chat.RoleUser, Content: text}); err != nil {
		return errUnknownSession
	}

	if wantsHistory(text) {
		if err := h.runLookup(ctx, conn, mode, sessionID, len(history)); err != nil {
			return err
		}
	}

	reply, err := h.streamReply(ctx, conn, mode, history, text)
	if err != nil {
		return err
	}

	if err := h.chatSvc.SaveMessage(ctx, mode, sessionID, chat.Message{Role: chat.RoleAssistant, Content: reply}); err != nil {
		log.Printf("[websocket] save assistant message failed: %v", err)
	}
	return h.send(conn, chat.Event{Type: chat.EventTurnComplete})
}

func (h *WebSocketHandler) streamReply(ctx context.Context, conn *websocket.Conn, mode chat.Mode, history []chat.Message, text string) (string, error) {
	stream, err := h.responder.Stream(ctx, mode, history, text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errResponderFailed, err)
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", fmt.Errorf("%w: %v", errReplyInterrupted, recvErr)
		}
		if chunk == nil {
			continue
		}
		if chunk.ReasoningContent != "" {
			if err := h.send(conn, chat.Event{Type: chat.EventReasoningDelta, Delta: chunk.ReasoningContent}); err != nil {
				return "", err
			}
		}
		if chunk.Content == "" {
			continue
		}
		reply.WriteString(chunk.Content)
		if err := h.send(conn, chat.Event{Type: chat.EventTextDelta, Delta: chunk.Content}); err != nil {
			return "", err
		}
	}
	return reply.String(), nil
}

// runLookup reports a tool invocation that summarises the user's sessions.
func (h *WebSocketHandler) runLookup(ctx context.Context, conn *websocket.Conn, mode chat.Mode, sessionID string, prior int) error {
	id := uuid.NewString()
	input, _ := json.Marshal(map[string]string{"session_id": sessionID, "mode": string(mode)})
	if err := h.send(conn, chat.Event{Type: chat.EventToolStarted, ID: id, Tool: LookupTool, Input: input}); err != nil {
		return err
	}

	end := chat.Event{Type: chat.EventToolFinished, ID: id}
	sessions, err := h.chatSvc.ListSessions(ctx, mode)
	if err != nil {
		end.Error = true
		end.Result = err.Error()
	} else {
		end.Result = fmt.Sprintf("%d sessões, %d mensagens anteriores nesta conversa", len(sessions), prior)
	}
	return h.send(conn, end)
}

func wantsHistory(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range []string{"histórico", "historico", "sessões anteriores", "sessoes anteriores"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (h *WebSocketHandler) send(conn *websocket.Conn, ev chat.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("write %s: %w", ev.Type, err)
	}
	return nil
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	if sendErr := h.send(conn, chat.Event{Type: chat.EventFatalError, Message: message}); sendErr != nil {
		log.Printf("[websocket] failed to send error: %v", sendErr)
	}
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
