package catalog

// Kind names one of the platform's list resources.
type Kind string

const (
	KindMentors      Kind = "mentors"
	KindMentorados   Kind = "mentorados"
	KindAssessments  Kind = "assessments"
	KindTools        Kind = "tools"
	KindAgents       Kind = "agents"
	KindLLMProviders Kind = "llm-providers"
)

// Paths maps each kind to its route below /api.
var Paths = map[Kind]string{
	KindMentors:      "/admin/mentors",
	KindMentorados:   "/admin/mentorados",
	KindAssessments:  "/assessments",
	KindTools:        "/config/tools",
	KindAgents:       "/config/agents",
	KindLLMProviders: "/admin/config/llm",
}

// Entry is the minimal shape the reference server exposes for every kind.
type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// Seed provides sample data for local development.
func Seed() map[Kind][]Entry {
	return map[Kind][]Entry{
		KindMentors: {
			{ID: "m-ana", Name: "Ana Souza", Description: "Vendas consultivas", Active: true},
			{ID: "m-bruno", Name: "Bruno Lima", Description: "Gestão financeira", Active: true},
		},
		KindMentorados: {
			{ID: "e-carla", Name: "Carla Mendes", Description: "Loja de roupas", Active: true},
			{ID: "e-diego", Name: "Diego Alves", Description: "Consultoria de TI", Active: false},
		},
		KindAssessments: {
			{ID: "a-maturidade", Name: "Maturidade do negócio", Active: true},
		},
		KindTools: {
			{ID: "lookup_session", Name: "Consulta de histórico", Description: "Resume sessões anteriores", Active: true},
		},
		KindAgents: {
			{ID: "chat", Name: "Assistente de mentoria", Active: true},
			{ID: "diagnostico", Name: "Diagnóstico guiado", Active: true},
		},
		KindLLMProviders: {
			{ID: "ark", Name: "Volcengine Ark", Active: true},
			{ID: "echo", Name: "Eco local", Description: "Respostas determinísticas sem modelo", Active: true},
		},
	}
}
