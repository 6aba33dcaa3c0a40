package handlers

import (
	"net/http"
	"strings"

	"consolidation-service/internal/api/responses"
	"consolidation-service/internal/core/audit"
	"consolidation-service/internal/core/extraction"
	"consolidation-service/internal/domain"
	"consolidation-service/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AuditHandler lida com a auditoria de XML e a gravação do CGR.
type AuditHandler struct {
	service  audit.Service
	reporter Reporter
	log      *zap.Logger
}

// NewAuditHandler cria o handler; reporter pode ser nil quando relatórios não são gerados.
func NewAuditHandler(service audit.Service, reporter Reporter, log *zap.Logger) *AuditHandler {
	return &AuditHandler{service: service, reporter: reporter, log: logging.OrNop(log)}
}

func (h *AuditHandler) Register(g *gin.RouterGroup) {
	r := g.Group("/audit")
	r.GET("/companies", h.HandleCompanies)
	r.POST("/xml", h.HandleAudit)
	r.POST("/xml/sum", h.HandleQuickSum)
}

type auditRequest struct {
	Root      string   `json:"root" binding:"required"`
	Companies []string `json:"companies"`
	Period    string   `json:"period"`
	Save      bool     `json:"save"`
	Report    bool     `json:"report"`
}

type auditResponse struct {
	Run    audit.Run        `json:"run"`
	Errors int              `json:"errors"`
	RPV    *decimal.Decimal `json:"rpv,omitempty"`
	Report string           `json:"report,omitempty"`
}

// HandleCompanies lista as pastas de empresa de root.
func (h *AuditHandler) HandleCompanies(c *gin.Context) {
	root := strings.TrimSpace(c.Query("root"))
	if root == "" {
		responses.Error(c, http.StatusBadRequest, "Parâmetro root é obrigatório")
		return
	}
	companies, err := h.service.Companies(root)
	if err != nil {
		fail(c, "Erro ao listar empresas", err)
		return
	}
	responses.Success(c, companies, "")
}

// HandleAudit audita root/<empresa> e, com save, grava o total como CGR do período.
func (h *AuditHandler) HandleAudit(c *gin.Context) {
	var req auditRequest
	if !bind(c, &req) {
		return
	}
	if req.Save && strings.TrimSpace(req.Period) == "" {
		responses.Error(c, http.StatusBadRequest, "Informe o período para salvar o CGR")
		return
	}
	ctx := c.Request.Context()
	run, err := h.service.Audit(ctx, req.Root, req.Companies, h.progress())
	if err != nil {
		fail(c, "Erro na auditoria de XML", err)
		return
	}

	resp := auditResponse{Run: run, Errors: run.Errors()}
	if req.Save {
		rpv, err := h.service.SaveCGR(ctx, req.Period, run.Totals)
		if err != nil {
			fail(c, "Erro ao salvar CGR", err)
			return
		}
		resp.RPV = &rpv
	}
	if req.Report {
		path, err := writeReport(h.reporter, func(r Reporter) (string, error) { return r.Audit(run) })
		if err != nil {
			fail(c, "Erro ao gerar relatório de auditoria", err)
			return
		}
		resp.Report = path
	}
	responses.Success(c, resp, "Auditoria de XML concluída")
}

// HandleQuickSum soma todos os XML de root sem gravar nada.
func (h *AuditHandler) HandleQuickSum(c *gin.Context) {
	var req auditRequest
	if !bind(c, &req) {
		return
	}
	run, err := h.service.QuickSum(c.Request.Context(), req.Root, h.progress())
	if err != nil {
		fail(c, "Erro na soma de XML", err)
		return
	}
	resp := auditResponse{Run: run, Errors: run.Errors()}
	if req.Report {
		path, err := writeReport(h.reporter, func(r Reporter) (string, error) { return r.Audit(run) })
		if err != nil {
			fail(c, "Erro ao gerar relatório de auditoria", err)
			return
		}
		resp.Report = path
	}
	responses.Success(c, resp, "Soma de XML concluída")
}

func (h *AuditHandler) progress() extraction.Progress {
	return func(done, total int, item domain.Extraction) {
		h.log.Debug("xml processed",
			zap.Int("done", done),
			zap.Int("total", total),
			zap.String("file", item.SourcePath),
			zap.Bool("failed", item.Failed()))
	}
}
