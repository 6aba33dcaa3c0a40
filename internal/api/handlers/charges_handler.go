package handlers

import (
	"net/http"
	"strings"

	"consolidation-service/internal/api/responses"
	"consolidation-service/internal/core/charges"

	"github.com/gin-gonic/gin"
)

// ChargesHandler processa as notas de encargo e grava o RET.
type ChargesHandler struct {
	service  charges.Service
	reporter Reporter
}

func NewChargesHandler(service charges.Service, reporter Reporter) *ChargesHandler {
	return &ChargesHandler{service: service, reporter: reporter}
}

func (h *ChargesHandler) Register(g *gin.RouterGroup) {
	g.POST("/charges/ret", h.HandleRET)
}

type chargesRequest struct {
	Root   string `json:"root" binding:"required"`
	Period string `json:"period"`
	Save   bool   `json:"save"`
	Report bool   `json:"report"`
}

type chargesResponse struct {
	Summary charges.Summary `json:"summary"`
	Saved   bool            `json:"saved"`
	Report  string          `json:"report,omitempty"`
}

func (h *ChargesHandler) HandleRET(c *gin.Context) {
	var req chargesRequest
	if !bind(c, &req) {
		return
	}
	if req.Save && strings.TrimSpace(req.Period) == "" {
		responses.Error(c, http.StatusBadRequest, "Informe o período para salvar o RET")
		return
	}
	ctx := c.Request.Context()
	summary, err := h.service.Process(ctx, req.Root)
	if err != nil {
		fail(c, "Erro ao processar notas de encargo", err)
		return
	}

	resp := chargesResponse{Summary: summary}
	if req.Save {
		if err := h.service.SaveRET(ctx, req.Period, summary); err != nil {
			fail(c, "Erro ao salvar RET", err)
			return
		}
		resp.Saved = true
	}
	if req.Report {
		path, err := writeReport(h.reporter, func(r Reporter) (string, error) { return r.Charges(summary) })
		if err != nil {
			fail(c, "Erro ao gerar relatório de encargos", err)
			return
		}
		resp.Report = path
	}
	responses.Success(c, resp, "Notas de encargo processadas")
}
