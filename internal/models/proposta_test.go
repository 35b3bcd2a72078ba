package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrentStatusPicksLatestEvent(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Proposta{HistoricoStatus: []StatusEvento{
		{ID: "a", Status: StatusSubmetida, DataStatus: base, CreatedAt: base},
		{ID: "b", Status: StatusEmAprovacao, DataStatus: base.Add(time.Hour), CreatedAt: base.Add(time.Hour)},
		{ID: "c", Status: StatusAprovada, DataStatus: base.Add(2 * time.Hour), CreatedAt: base.Add(2 * time.Hour)},
	}}

	assert.Equal(t, StatusAprovada, p.CurrentStatus())
}

func TestCurrentStatusBreaksTimestampTiesByInsertionOrder(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Proposta{HistoricoStatus: []StatusEvento{
		{ID: "a", Status: StatusSubmetida, DataStatus: at, CreatedAt: at},
		{ID: "b", Status: StatusEmAprovacao, DataStatus: at, CreatedAt: at},
	}}

	// Equal data_status and created_at fall back to the id comparison, so the
	// result never flips between calls.
	assert.Equal(t, StatusEmAprovacao, p.CurrentStatus())
	assert.Equal(t, StatusEmAprovacao, p.CurrentStatus())
}

func TestCurrentStatusEmptyHistory(t *testing.T) {
	p := Proposta{}
	assert.Equal(t, ProposalStatus(""), p.CurrentStatus())
}

func TestHasHistoricalStatus(t *testing.T) {
	p := Proposta{HistoricoStatus: []StatusEvento{
		{Status: StatusSubmetida},
		{Status: StatusEmAprovacao},
	}}

	assert.True(t, p.HasHistoricalStatus(StatusSubmetida))
	assert.True(t, p.HasHistoricalStatus(StatusEmAprovacao, StatusAprovada))
	assert.False(t, p.HasHistoricalStatus(StatusRejeitada))
}

func TestProposalStatusTerminal(t *testing.T) {
	assert.True(t, StatusAprovada.Terminal())
	assert.True(t, StatusRejeitada.Terminal())
	assert.False(t, StatusEmAprovacao.Terminal())
	assert.False(t, StatusSubmetida.Terminal())
}

func TestProposalStatusValid(t *testing.T) {
	for _, status := range []ProposalStatus{
		StatusSubmetida, StatusEmAvaliacao, StatusAjustesRequeridos,
		StatusEmAprovacao, StatusAprovada, StatusRejeitada,
	} {
		assert.True(t, status.Valid(), string(status))
	}
	assert.False(t, ProposalStatus("arquivada").Valid())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleSubmissor.Valid())
	assert.True(t, RoleAvaliador.Valid())
	assert.True(t, RoleDecisor.Valid())
	assert.False(t, Role("admin").Valid())
}
