package models

import "time"

// ProposalStatus enumerates the workflow states of a course proposal. The
// enum mirrors the status_proposta_curso schema and is closed.
type ProposalStatus string

const (
	StatusSubmetida ProposalStatus = "submetida"
	// StatusEmAvaliacao is reserved in the schema but no operation writes it
	// today; it remains in the evaluate gate so existing rows keep working.
	StatusEmAvaliacao       ProposalStatus = "em_avaliacao"
	StatusAjustesRequeridos ProposalStatus = "ajustes_requeridos"
	StatusEmAprovacao       ProposalStatus = "em_aprovacao"
	StatusAprovada          ProposalStatus = "aprovada"
	StatusRejeitada         ProposalStatus = "rejeitada"
)

// Valid reports whether the status belongs to the closed set.
func (s ProposalStatus) Valid() bool {
	switch s {
	case StatusSubmetida, StatusEmAvaliacao, StatusAjustesRequeridos,
		StatusEmAprovacao, StatusAprovada, StatusRejeitada:
		return true
	}
	return false
}

// Terminal reports whether no operation may transition out of the status.
func (s ProposalStatus) Terminal() bool {
	return s == StatusAprovada || s == StatusRejeitada
}

// Disciplina is a course unit owned by a proposal, created atomically with it
// and immutable afterwards.
type Disciplina struct {
	ID           string    `db:"id" json:"id"`
	PropostaID   string    `db:"id_curso" json:"id_curso"`
	Nome         string    `db:"nome" json:"nome"`
	CargaHoraria int       `db:"carga_horaria" json:"carga_horaria"`
	Semestre     int       `db:"semestre" json:"semestre"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// StatusEvento is one entry of a proposal's append-only status history.
// Rows are immutable once written.
type StatusEvento struct {
	ID         string         `db:"id" json:"id"`
	PropostaID string         `db:"id_proposta" json:"id_proposta"`
	Status     ProposalStatus `db:"status" json:"status"`
	DataStatus time.Time      `db:"data_status" json:"data_status"`
	Observacao *string        `db:"observacao" json:"observacao,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// Proposta is a curriculum change request with its disciplines and status
// history attached when loaded through the repository.
type Proposta struct {
	ID                  string     `db:"id" json:"id"`
	Nome                string     `db:"nome" json:"nome"`
	CargaHorariaTotal   int        `db:"carga_horaria_total" json:"carga_horaria_total"`
	QuantidadeSemestres int        `db:"quantidade_semestres" json:"quantidade_semestres"`
	Justificativa       string     `db:"justificativa" json:"justificativa"`
	ImpactoSocial       string     `db:"impacto_social" json:"impacto_social"`
	ComentarioAvaliador *string    `db:"comentario_avaliador" json:"comentario_avaliador,omitempty"`
	ComentarioDecisor   *string    `db:"comentario_decisor" json:"comentario_decisor,omitempty"`
	AutorID             *string    `db:"id_autor" json:"id_autor,omitempty"`
	AvaliadorID         *string    `db:"id_avaliador" json:"id_avaliador,omitempty"`
	DecisorFinalID      *string    `db:"id_decisor_final" json:"id_decisor_final,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`

	Disciplinas     []Disciplina   `db:"-" json:"disciplinas,omitempty"`
	HistoricoStatus []StatusEvento `db:"-" json:"historico_status,omitempty"`
}

// CurrentStatus resolves the status of the most recent event. Ties on
// data_status fall back to created_at and then id so the result stays
// deterministic under equal timestamps.
func (p *Proposta) CurrentStatus() ProposalStatus {
	var latest *StatusEvento
	for i := range p.HistoricoStatus {
		ev := &p.HistoricoStatus[i]
		if latest == nil || eventoAfter(ev, latest) {
			latest = ev
		}
	}
	if latest == nil {
		return ""
	}
	return latest.Status
}

// HasHistoricalStatus reports whether any event in the history carries one of
// the given statuses, regardless of the current status.
func (p *Proposta) HasHistoricalStatus(statuses ...ProposalStatus) bool {
	for _, ev := range p.HistoricoStatus {
		for _, status := range statuses {
			if ev.Status == status {
				return true
			}
		}
	}
	return false
}

func eventoAfter(a, b *StatusEvento) bool {
	if !a.DataStatus.Equal(b.DataStatus) {
		return a.DataStatus.After(b.DataStatus)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
