package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sistema-ppc/ppc-api/internal/models"
	appErrors "github.com/sistema-ppc/ppc-api/pkg/errors"
	"github.com/sistema-ppc/ppc-api/pkg/export"
)

// ExportFormat identifies a supported export encoding.
type ExportFormat string

const (
	ExportFormatPDF ExportFormat = "pdf"
	ExportFormatCSV ExportFormat = "csv"
)

// ExportResult carries rendered bytes with content metadata for the handler.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders a proposal dossier. It reuses the proposal service so
// the export path shares the same visibility rules as GET.
type ExportService struct {
	propostas *PropostaService
	pdf       *export.PDFExporter
	csv       *export.CSVExporter
}

// NewExportService constructs an export service.
func NewExportService(propostas *PropostaService) *ExportService {
	return &ExportService{
		propostas: propostas,
		pdf:       export.NewPDFExporter(),
		csv:       export.NewCSVExporter(),
	}
}

// Export renders the proposal identified by id in the requested format for a
// caller allowed to view it.
func (s *ExportService) Export(ctx context.Context, id string, format ExportFormat, actor *models.JWTClaims) (*ExportResult, error) {
	if format == "" {
		format = ExportFormatPDF
	}
	if format != ExportFormatPDF && format != ExportFormatCSV {
		return nil, appErrors.Validation(map[string]string{
			"formato": "formato must be pdf or csv",
		})
	}

	proposta, err := s.propostas.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(historyDataset(proposta))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("proposta-%s.csv", proposta.ID),
		}, nil
	default:
		content, err := s.pdf.Render(dossierDocument(proposta))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("proposta-%s.pdf", proposta.ID),
		}, nil
	}
}

func dossierDocument(p *models.Proposta) export.Document {
	details := export.Section{
		Heading: "Dados Gerais",
		Lines: []string{
			fmt.Sprintf("Nome: %s", p.Nome),
			fmt.Sprintf("Carga horária total: %d", p.CargaHorariaTotal),
			fmt.Sprintf("Quantidade de semestres: %d", p.QuantidadeSemestres),
			fmt.Sprintf("Status atual: %s", p.CurrentStatus()),
			fmt.Sprintf("Justificativa: %s", p.Justificativa),
			fmt.Sprintf("Impacto social: %s", p.ImpactoSocial),
		},
	}
	if p.ComentarioAvaliador != nil {
		details.Lines = append(details.Lines, fmt.Sprintf("Comentário do avaliador: %s", *p.ComentarioAvaliador))
	}
	if p.ComentarioDecisor != nil {
		details.Lines = append(details.Lines, fmt.Sprintf("Comentário do decisor: %s", *p.ComentarioDecisor))
	}

	disciplinas := export.Section{
		Heading: "Disciplinas",
		Table:   disciplinasDataset(p),
	}

	historico := historyDataset(p)
	history := export.Section{
		Heading: "Histórico de Status",
		Table:   &historico,
	}

	return export.Document{
		Title:    fmt.Sprintf("Proposta de Curso - %s", p.Nome),
		Sections: []export.Section{details, disciplinas, history},
	}
}

func disciplinasDataset(p *models.Proposta) *export.Dataset {
	data := &export.Dataset{Headers: []string{"Nome", "Carga Horária", "Semestre"}}
	for _, d := range p.Disciplinas {
		data.Rows = append(data.Rows, map[string]string{
			"Nome":          d.Nome,
			"Carga Horária": strconv.Itoa(d.CargaHoraria),
			"Semestre":      strconv.Itoa(d.Semestre),
		})
	}
	return data
}

func historyDataset(p *models.Proposta) export.Dataset {
	data := export.Dataset{Headers: []string{"Status", "Data", "Observação"}}
	for _, ev := range p.HistoricoStatus {
		observacao := ""
		if ev.Observacao != nil {
			observacao = *ev.Observacao
		}
		data.Rows = append(data.Rows, map[string]string{
			"Status":     string(ev.Status),
			"Data":       ev.DataStatus.Format("2006-01-02 15:04:05"),
			"Observação": observacao,
		})
	}
	return data
}
