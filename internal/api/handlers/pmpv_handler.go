package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"consolidation-service/internal/api/responses"
	"consolidation-service/internal/core/pmpv"
	"consolidation-service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PMPVHandler expõe as sessões trimestrais, o cálculo e o PMPV publicado.
type PMPVHandler struct {
	service  pmpv.Service
	reporter Reporter
	now      func() time.Time
}

func NewPMPVHandler(service pmpv.Service, reporter Reporter) *PMPVHandler {
	return &PMPVHandler{service: service, reporter: reporter, now: time.Now}
}

func (h *PMPVHandler) Register(g *gin.RouterGroup) {
	r := g.Group("/pmpv")
	r.POST("/sessions", h.HandleCreateSession)
	r.GET("/sessions", h.HandleListSessions)
	r.GET("/sessions/:id", h.HandleGetSession)
	r.PUT("/sessions/:id/months/:month", h.HandleSaveMonth)
	r.GET("/sessions/:id/months/:month", h.HandleLoadMonth)
	r.POST("/sessions/:id/results", h.HandleSaveResult)
	r.GET("/sessions/:id/results/latest", h.HandleLatestResult)
	r.POST("/calculate", h.HandleCalculate)
	r.PUT("/prices", h.HandleSavePrice)
	r.GET("/prices", h.HandleListPrices)
	r.GET("/prices/period", h.HandleGetPrice)
}

type sessionRequest struct {
	Name  string `json:"name" binding:"required"`
	Notes string `json:"notes"`
}

type monthRequest struct {
	Rows []domain.MonthInput `json:"rows"`
}

// quarterRequest descreve o trimestre. Sem Year/StartMonth usa o trimestre
// iniciado no mês corrente; Adjustment nil aplica o saldo padrão da conta gráfica.
type quarterRequest struct {
	SessionID  uint                    `json:"session_id"`
	Months     *[3][]domain.MonthInput `json:"months"`
	Year       int                     `json:"year"`
	StartMonth int                     `json:"start_month"`
	Adjustment *decimal.Decimal        `json:"adjustment"`
	Report     bool                    `json:"report"`
}

type priceRequest struct {
	Period string          `json:"period" binding:"required"`
	Price  decimal.Decimal `json:"price"`
}

type calculationResponse struct {
	Calculation pmpv.Calculation `json:"calculation"`
	Months      [3]string        `json:"months"`
	Result      *domain.Result   `json:"result,omitempty"`
	Report      string           `json:"report,omitempty"`
}

func (h *PMPVHandler) HandleCreateSession(c *gin.Context) {
	var req sessionRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.service.CreateSession(c.Request.Context(), req.Name, req.Notes)
	if err != nil {
		fail(c, "Erro ao criar sessão", err)
		return
	}
	responses.Created(c, sess, "Sessão criada")
}

func (h *PMPVHandler) HandleListSessions(c *gin.Context) {
	sessions, err := h.service.ListSessions(c.Request.Context())
	if err != nil {
		fail(c, "Erro ao listar sessões", err)
		return
	}
	responses.Success(c, sessions, "")
}

func (h *PMPVHandler) HandleGetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.service.GetSession(c.Request.Context(), id)
	if err != nil {
		fail(c, "Erro ao consultar sessão", err)
		return
	}
	responses.Success(c, sess, "")
}

func (h *PMPVHandler) HandleSaveMonth(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	month, ok := monthIndex(c)
	if !ok {
		return
	}
	var req monthRequest
	if !bind(c, &req) {
		return
	}
	if err := h.service.SaveMonthInputs(c.Request.Context(), id, month, req.Rows); err != nil {
		fail(c, "Erro ao salvar lançamentos do mês", err)
		return
	}
	responses.Success(c, nil, "Lançamentos salvos")
}

func (h *PMPVHandler) HandleLoadMonth(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	month, ok := monthIndex(c)
	if !ok {
		return
	}
	rows, err := h.service.LoadMonthInputs(c.Request.Context(), id, month)
	if err != nil {
		fail(c, "Erro ao carregar lançamentos do mês", err)
		return
	}
	responses.Success(c, rows, "")
}

// HandleCalculate calcula o PMPV de uma sessão salva ou dos meses enviados no corpo, sem gravar.
func (h *PMPVHandler) HandleCalculate(c *gin.Context) {
	var req quarterRequest
	if !bind(c, &req) {
		return
	}
	if req.SessionID == 0 && req.Months == nil {
		responses.Error(c, http.StatusBadRequest, "Informe session_id ou months")
		return
	}
	h.calculate(c, req, false)
}

// HandleSaveResult calcula o trimestre salvo da sessão e grava o resultado.
func (h *PMPVHandler) HandleSaveResult(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req quarterRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	req.SessionID, req.Months = id, nil
	h.calculate(c, req, true)
}

func (h *PMPVHandler) calculate(c *gin.Context, req quarterRequest, save bool) {
	ctx := c.Request.Context()
	year, start := req.Year, time.Month(req.StartMonth)
	if year == 0 || start == 0 {
		now := h.now()
		year, start = now.Year(), now.Month()
	}
	if start < time.January || start > time.December {
		responses.Error(c, http.StatusBadRequest, "start_month deve estar entre 1 e 12")
		return
	}
	adjustment := pmpv.DefaultAdjustment
	if req.Adjustment != nil {
		adjustment = *req.Adjustment
	}

	var months [3][]domain.MonthInput
	if req.Months != nil {
		months = *req.Months
	} else {
		loaded, err := h.service.LoadQuarter(ctx, req.SessionID)
		if err != nil {
			fail(c, "Erro ao carregar trimestre", err)
			return
		}
		months = loaded
	}

	calc, err := pmpv.Calculate(months, pmpv.QuarterDays(year, start), adjustment)
	if err != nil {
		fail(c, "Erro no cálculo do PMPV", err)
		return
	}
	resp := calculationResponse{Calculation: calc, Months: pmpv.QuarterMonthNames(start)}
	if save {
		result, err := h.service.SaveResult(ctx, req.SessionID, calc)
		if err != nil {
			fail(c, "Erro ao salvar resultado", err)
			return
		}
		resp.Result = &result
	}
	if req.Report {
		path, err := writeReport(h.reporter, func(r Reporter) (string, error) { return r.PMPV(resp.Months, months, calc) })
		if err != nil {
			fail(c, "Erro ao gerar relatório do PMPV", err)
			return
		}
		resp.Report = path
	}
	responses.Success(c, resp, "PMPV calculado")
}

func (h *PMPVHandler) HandleLatestResult(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	result, found, err := h.service.LatestResult(c.Request.Context(), id)
	if err != nil {
		fail(c, "Erro ao consultar resultado", err)
		return
	}
	if !found {
		responses.Error(c, http.StatusNotFound, "Nenhum resultado salvo para a sessão")
		return
	}
	responses.Success(c, result, "")
}

func (h *PMPVHandler) HandleSavePrice(c *gin.Context) {
	var req priceRequest
	if !bind(c, &req) {
		return
	}
	if err := h.service.SavePublishedPrice(c.Request.Context(), req.Period, req.Price); err != nil {
		fail(c, "Erro ao salvar PMPV publicado", err)
		return
	}
	responses.Success(c, req, "PMPV publicado salvo")
}

func (h *PMPVHandler) HandleListPrices(c *gin.Context) {
	prices, err := h.service.ListPublishedPrices(c.Request.Context())
	if err != nil {
		fail(c, "Erro ao listar PMPV publicados", err)
		return
	}
	responses.Success(c, prices, "")
}

// HandleGetPrice recebe o período por query porque ele costuma conter barra (Jan/2026).
func (h *PMPVHandler) HandleGetPrice(c *gin.Context) {
	period := strings.TrimSpace(c.Query("period"))
	if period == "" {
		responses.Error(c, http.StatusBadRequest, "Parâmetro period é obrigatório")
		return
	}
	price, found, err := h.service.GetPublishedPrice(c.Request.Context(), period)
	if err != nil {
		fail(c, "Erro ao consultar PMPV publicado", err)
		return
	}
	if !found {
		responses.Error(c, http.StatusNotFound, "PMPV não cadastrado para "+period)
		return
	}
	responses.Success(c, gin.H{"period": period, "price": price}, "")
}

func sessionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		responses.Error(c, http.StatusBadRequest, "ID de sessão inválido")
		return 0, false
	}
	return uint(id), true
}

func monthIndex(c *gin.Context) (int, bool) {
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Mês inválido")
		return 0, false
	}
	return month, true
}
