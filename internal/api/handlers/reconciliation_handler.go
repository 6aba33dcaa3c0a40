package handlers

import (
	"net/http"
	"strings"

	"consolidation-service/internal/api/responses"
	"consolidation-service/internal/core/reconciliation"
	"consolidation-service/internal/logging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReconciliationHandler concilia PDFs de receitas e despesas e grava o RP.
type ReconciliationHandler struct {
	service  reconciliation.Service
	reporter Reporter
	log      *zap.Logger
}

func NewReconciliationHandler(service reconciliation.Service, reporter Reporter, log *zap.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{service: service, reporter: reporter, log: logging.OrNop(log)}
}

func (h *ReconciliationHandler) Register(g *gin.RouterGroup) {
	g.POST("/reconciliation/rp", h.HandleRP)
}

type reconciliationRequest struct {
	reconciliation.Request
	Period string `json:"period"`
	Save   bool   `json:"save"`
	Report bool   `json:"report"`
}

type reconciliationResponse struct {
	Summary reconciliation.Summary `json:"summary"`
	Saved   bool                   `json:"saved"`
	Report  string                 `json:"report,omitempty"`
}

func (h *ReconciliationHandler) HandleRP(c *gin.Context) {
	var req reconciliationRequest
	if !bind(c, &req) {
		return
	}
	if req.Save && strings.TrimSpace(req.Period) == "" {
		responses.Error(c, http.StatusBadRequest, "Informe o período para salvar o RP")
		return
	}
	ctx := c.Request.Context()
	summary, err := h.service.Reconcile(ctx, req.Request, func(done, total int, item reconciliation.Item) {
		h.log.Debug("pdf reconciled",
			zap.Int("done", done),
			zap.Int("total", total),
			zap.String("file", item.File),
			zap.String("status", item.Status))
	})
	if err != nil {
		fail(c, "Erro na conciliação", err)
		return
	}

	resp := reconciliationResponse{Summary: summary}
	if req.Save {
		if err := h.service.SaveRP(ctx, req.Period, summary); err != nil {
			fail(c, "Erro ao salvar RP", err)
			return
		}
		resp.Saved = true
	}
	if req.Report {
		path, err := writeReport(h.reporter, func(r Reporter) (string, error) { return r.Reconciliation(summary) })
		if err != nil {
			fail(c, "Erro ao gerar relatório de conciliação", err)
			return
		}
		resp.Report = path
	}
	responses.Success(c, resp, "Conciliação concluída")
}
