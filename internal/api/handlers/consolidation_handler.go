package handlers

import (
	"net/http"
	"strings"

	"consolidation-service/internal/api/responses"
	"consolidation-service/internal/core/consolidation"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ConsolidationHandler expõe o armazenamento de consolidação por período.
type ConsolidationHandler struct {
	service consolidation.Service
}

func NewConsolidationHandler(service consolidation.Service) *ConsolidationHandler {
	return &ConsolidationHandler{service: service}
}

// Register monta as rotas em /consolidation.
func (h *ConsolidationHandler) Register(g *gin.RouterGroup) {
	r := g.Group("/consolidation")
	r.GET("", h.HandleList)
	r.GET("/period", h.HandleGet)
	r.DELETE("/period", h.HandleDelete)
	r.POST("/period", h.HandleEnsure)
	r.PUT("/field", h.HandleSetField)
	r.POST("/rpv", h.HandleRecomputeRPV)
	r.POST("/scg", h.HandleRecomputeSCG)
	r.POST("/finalize", h.HandleFinalize)
	r.PUT("/manual", h.HandleManual)
}

type periodRequest struct {
	Period string `json:"period" binding:"required"`
	Notes  string `json:"notes"`
}

type fieldRequest struct {
	Period string          `json:"period" binding:"required"`
	Field  string          `json:"field" binding:"required"`
	Value  decimal.Decimal `json:"value"`
}

type manualRequest struct {
	Period string          `json:"period" binding:"required"`
	RPV    decimal.Decimal `json:"rpv"`
	CGF    decimal.Decimal `json:"cgf"`
}

func (h *ConsolidationHandler) HandleList(c *gin.Context) {
	records, err := h.service.List(c.Request.Context())
	if err != nil {
		fail(c, "Erro ao listar períodos", err)
		return
	}
	responses.Success(c, records, "")
}

func (h *ConsolidationHandler) HandleGet(c *gin.Context) {
	period := strings.TrimSpace(c.Query("period"))
	if period == "" {
		responses.Error(c, http.StatusBadRequest, "Parâmetro period é obrigatório")
		return
	}
	rec, found, err := h.service.Get(c.Request.Context(), period)
	if err != nil {
		fail(c, "Erro ao consultar período", err)
		return
	}
	if !found {
		responses.Error(c, http.StatusNotFound, "Período não encontrado: "+period)
		return
	}
	responses.Success(c, rec, "")
}

func (h *ConsolidationHandler) HandleDelete(c *gin.Context) {
	period := strings.TrimSpace(c.Query("period"))
	if period == "" {
		responses.Error(c, http.StatusBadRequest, "Parâmetro period é obrigatório")
		return
	}
	deleted, err := h.service.Delete(c.Request.Context(), period)
	if err != nil {
		fail(c, "Erro ao excluir período", err)
		return
	}
	if !deleted {
		responses.Error(c, http.StatusNotFound, "Período não encontrado: "+period)
		return
	}
	responses.Success(c, nil, "Período excluído")
}

func (h *ConsolidationHandler) HandleEnsure(c *gin.Context) {
	var req periodRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if err := h.service.EnsurePeriod(ctx, req.Period, req.Notes); err != nil {
		fail(c, "Erro ao criar período", err)
		return
	}
	rec, _, err := h.service.Get(ctx, req.Period)
	if err != nil {
		fail(c, "Erro ao consultar período", err)
		return
	}
	responses.Success(c, rec, "Período disponível")
}

func (h *ConsolidationHandler) HandleSetField(c *gin.Context) {
	var req fieldRequest
	if !bind(c, &req) {
		return
	}
	field, err := consolidation.ParseField(req.Field)
	if err != nil {
		fail(c, "Campo inválido", err)
		return
	}
	if err := h.service.SetField(c.Request.Context(), req.Period, field, req.Value); err != nil {
		fail(c, "Erro ao gravar campo", err)
		return
	}
	responses.Success(c, gin.H{"period": req.Period, "field": field, "value": req.Value}, "Campo gravado")
}

func (h *ConsolidationHandler) HandleRecomputeRPV(c *gin.Context) {
	var req periodRequest
	if !bind(c, &req) {
		return
	}
	rpv, err := h.service.RecomputeRPV(c.Request.Context(), req.Period)
	if err != nil {
		fail(c, "Erro ao recalcular RPV", err)
		return
	}
	responses.Success(c, gin.H{"period": req.Period, "rpv": rpv}, "RPV recalculado")
}

func (h *ConsolidationHandler) HandleRecomputeSCG(c *gin.Context) {
	var req periodRequest
	if !bind(c, &req) {
		return
	}
	scg, err := h.service.RecomputeSCG(c.Request.Context(), req.Period)
	if err != nil {
		fail(c, "Erro ao recalcular SCG", err)
		return
	}
	responses.Success(c, gin.H{"period": req.Period, "scg": scg}, "SCG recalculado")
}

func (h *ConsolidationHandler) HandleFinalize(c *gin.Context) {
	var req periodRequest
	if !bind(c, &req) {
		return
	}
	rec, err := h.service.Finalize(c.Request.Context(), req.Period)
	if err != nil {
		fail(c, "Erro ao fechar período", err)
		return
	}
	responses.Success(c, rec, "Saldo da conta gráfica calculado")
}

func (h *ConsolidationHandler) HandleManual(c *gin.Context) {
	var req manualRequest
	if !bind(c, &req) {
		return
	}
	if err := h.service.SetRPVAndCGFManual(c.Request.Context(), req.Period, req.RPV, req.CGF); err != nil {
		fail(c, "Erro ao gravar ajuste manual", err)
		return
	}
	responses.Success(c, gin.H{"period": req.Period, "rpv": req.RPV, "cgf": req.CGF}, "Ajuste manual gravado")
}
