package ai

import (
	"fmt"
	"strings"

	"github.com/mentorcrm/chat/internal/model/chat"
)

// PromptTemplate defines the structure for mode prompts
type PromptTemplate struct {
	SystemPrompt string
	ContextRules []string
}

// ModePromptManager manages prompt templates for the conversation modes
type ModePromptManager struct {
	templates map[chat.Mode]*PromptTemplate
}

// NewModePromptManager creates a new prompt manager with default templates
func NewModePromptManager() *ModePromptManager {
	return &ModePromptManager{
		templates: map[chat.Mode]*PromptTemplate{
			chat.ModeChat: {
				SystemPrompt: "Você é o assistente de mentoria da plataforma. Ajude mentores e mentorados com respostas objetivas e práticas.",
				ContextRules: []string{
					"Responda sempre em português do Brasil.",
					"Use markdown simples: listas curtas e negrito apenas para destaques.",
					"Quando faltar contexto, faça uma pergunta de esclarecimento antes de sugerir ações.",
				},
			},
			chat.ModeDiagnostico: {
				SystemPrompt: "Você conduz um diagnóstico guiado do negócio do mentorado, uma pergunta por vez.",
				ContextRules: []string{
					"Responda sempre em português do Brasil.",
					"Faça apenas uma pergunta por mensagem e aguarde a resposta.",
					"Cubra vendas, finanças, equipe e operação antes de resumir os pontos de atenção.",
				},
			},
		},
	}
}

// GetPromptTemplate returns the prompt template for a given mode
func (pm *ModePromptManager) GetPromptTemplate(mode chat.Mode) (*PromptTemplate, error) {
	template, exists := pm.templates[mode]
	if !exists {
		return nil, fmt.Errorf("prompt template not found for mode: %s", mode)
	}
	return template, nil
}

// BuildSystemPrompt renders the system prompt for mode, falling back to the
// chat prompt for unknown modes.
func (pm *ModePromptManager) BuildSystemPrompt(mode chat.Mode) string {
	template, err := pm.GetPromptTemplate(mode)
	if err != nil {
		template = pm.templates[chat.ModeChat]
	}

	return fmt.Sprintf("%s\n\nRegras da conversa:\n- %s",
		template.SystemPrompt,
		strings.Join(template.ContextRules, "\n- "),
	)
}
