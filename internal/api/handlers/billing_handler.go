package handlers

import (
	"consolidation-service/internal/api/responses"
	"consolidation-service/internal/core/billing"

	"github.com/gin-gonic/gin"
)

// BillingHandler apura o CGF a partir das planilhas de faturamento.
type BillingHandler struct {
	service billing.Service
}

func NewBillingHandler(service billing.Service) *BillingHandler {
	return &BillingHandler{service: service}
}

func (h *BillingHandler) Register(g *gin.RouterGroup) {
	g.POST("/billing/cgf", h.HandleCGF)
}

type billingRequest struct {
	billing.Request
	Save bool `json:"save"`
}

// HandleCGF calcula o CGF; com save grava no período e recalcula o RPV.
func (h *BillingHandler) HandleCGF(c *gin.Context) {
	var req billingRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if req.Save {
		res, err := h.service.Save(ctx, req.Request)
		if err != nil {
			fail(c, "Erro ao salvar CGF", err)
			return
		}
		responses.Success(c, res, "CGF salvo")
		return
	}
	res, err := h.service.Compute(ctx, req.Request)
	if err != nil {
		fail(c, "Erro ao calcular CGF", err)
		return
	}
	responses.Success(c, res, "CGF calculado")
}
