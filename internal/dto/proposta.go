package dto

import "github.com/sistema-ppc/ppc-api/internal/models"

// DisciplinaPayload describes one course unit inside a create request.
type DisciplinaPayload struct {
	Nome         string `json:"nome"`
	CargaHoraria int    `json:"carga_horaria"`
	Semestre     int    `json:"semestre"`
}

// CreatePropostaRequest is the payload for submitting a new proposal.
type CreatePropostaRequest struct {
	Nome                string              `json:"nome"`
	CargaHorariaTotal   int                 `json:"carga_horaria_total"`
	QuantidadeSemestres int                 `json:"quantidade_semestres"`
	Justificativa       string              `json:"justificativa"`
	ImpactoSocial       string              `json:"impacto_social"`
	Disciplinas         []DisciplinaPayload `json:"disciplinas"`
}

// AvaliarRequest is the evaluator's verdict payload.
type AvaliarRequest struct {
	Comentario string                `json:"comentario"`
	StatusNovo models.ProposalStatus `json:"status_novo"`
}

// DecidirRequest is the decision-maker's final verdict payload.
type DecidirRequest struct {
	Comentario  string                `json:"comentario"`
	StatusFinal models.ProposalStatus `json:"status_final"`
}
