package service

import "github.com/sistema-ppc/ppc-api/internal/models"

// visibleTo is the single visibility predicate shared by the list and show
// paths. It evaluates the caller's role against the proposal and its full
// status history:
//
//   - submissor: authorship of the proposal, tested on the current row;
//   - avaliador: any historical submetida/em_avaliacao event, or being the
//     assigned evaluator (so evaluators keep seeing proposals that moved on);
//   - decisor: any historical em_aprovacao event, so decided proposals stay
//     visible after leaving that status.
//
// The switch is exhaustive over the closed role set; anything else sees
// nothing.
func visibleTo(actor *models.JWTClaims, proposta *models.Proposta) bool {
	if actor == nil || proposta == nil {
		return false
	}
	switch actor.Tipo {
	case models.RoleSubmissor:
		return proposta.AutorID != nil && *proposta.AutorID == actor.UserID
	case models.RoleAvaliador:
		if proposta.HasHistoricalStatus(models.StatusSubmetida, models.StatusEmAvaliacao) {
			return true
		}
		return proposta.AvaliadorID != nil && *proposta.AvaliadorID == actor.UserID
	case models.RoleDecisor:
		return proposta.HasHistoricalStatus(models.StatusEmAprovacao)
	}
	return false
}
