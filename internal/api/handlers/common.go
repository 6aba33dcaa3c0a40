package handlers

import (
	"errors"
	"net/http"

	"consolidation-service/internal/api/responses"
	"consolidation-service/internal/core/audit"
	"consolidation-service/internal/core/billing"
	"consolidation-service/internal/core/charges"
	"consolidation-service/internal/core/consolidation"
	"consolidation-service/internal/core/pmpv"
	"consolidation-service/internal/core/reconciliation"
	"consolidation-service/internal/domain"

	"github.com/gin-gonic/gin"
)

// Reporter grava as planilhas de conferência; implementado por report.Writer.
type Reporter interface {
	Audit(run audit.Run) (string, error)
	Reconciliation(summary reconciliation.Summary) (string, error)
	Charges(summary charges.Summary) (string, error)
	PMPV(names [3]string, months [3][]domain.MonthInput, calc pmpv.Calculation) (string, error)
}

// statusFor traduz os erros conhecidos dos serviços em códigos HTTP.
func statusFor(err error) int {
	var perr *consolidation.PersistenceError
	switch {
	case errors.As(err, &perr):
		return http.StatusInternalServerError
	case errors.Is(err, pmpv.ErrSessionNotFound),
		errors.Is(err, billing.ErrPriceNotFound):
		return http.StatusNotFound
	case errors.Is(err, consolidation.ErrUnknownField),
		errors.Is(err, consolidation.ErrEmptyPeriod),
		errors.Is(err, pmpv.ErrEmptyName),
		errors.Is(err, pmpv.ErrInvalidMonth),
		errors.Is(err, pmpv.ErrZeroVolume),
		errors.Is(err, audit.ErrNoFiles),
		errors.Is(err, audit.ErrEmptyTotal),
		errors.Is(err, billing.ErrNoTables),
		errors.Is(err, billing.ErrInvalidPrice),
		errors.Is(err, charges.ErrNoFiles),
		errors.Is(err, reconciliation.ErrNoFolders),
		errors.Is(err, reconciliation.ErrNoFiles):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail responde com o código mapeado de err.
func fail(c *gin.Context, message string, err error) {
	responses.Error(c, statusFor(err), message, err.Error())
}

// bind decodifica o corpo JSON e responde 400 em caso de erro.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		responses.Error(c, http.StatusBadRequest, "Corpo da requisição inválido", err.Error())
		return false
	}
	return true
}

// writeReport chama fn quando há um Reporter configurado e devolve o caminho gerado.
func writeReport(r Reporter, fn func(Reporter) (string, error)) (string, error) {
	if r == nil {
		return "", errors.New("geração de relatórios não configurada")
	}
	return fn(r)
}
