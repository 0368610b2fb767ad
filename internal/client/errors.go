package client

import (
	"errors"

	"github.com/mentorcrm/chat/internal/api"
)

// Banner texts shown to the user. They are stored in State.Error.
const (
	MsgUnauthenticated = "Você precisa estar autenticado para usar o chat."
	MsgNotConnected    = "Sem conexão com o servidor. Tentando reconectar..."
	MsgSessionExpired  = "Sua sessão expirou. Faça login novamente."
	MsgReconnectFailed = "Não foi possível reconectar ao servidor. Recarregue a página."
	MsgSendFailed      = "Não foi possível enviar a mensagem. Tente novamente."
	MsgGeneric         = api.GenericMessage
)

var (
	ErrNotConnected   = errors.New("not connected")
	ErrNoSessionStore = errors.New("session history not configured")
)

// Close codes understood by the reconnect policy.
const (
	CloseNormal       = 1000
	CloseAbnormal     = 1006
	CloseUnauthorized = 4001
)
