package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/go-stock/gate"
	"github.com/diewo77/go-stock/httpx"
	"github.com/diewo77/go-stock/i18n"
	"github.com/diewo77/go-stock/internal/logger"
	"github.com/diewo77/go-stock/internal/middleware"
	"github.com/diewo77/go-stock/internal/services"
	"github.com/diewo77/go-stock/internal/store"
	"github.com/diewo77/go-stock/validation"
	"go.uber.org/zap"
)

var errBadID = errors.New("invalid id")

type statusCode struct {
	target error
	status int
	code   string
}

var errorStatus = []statusCode{
	{store.ErrNotFound, http.StatusNotFound, "not_found"},
	{errBadID, http.StatusNotFound, "not_found"},
	{store.ErrReferenced, http.StatusConflict, "referenced"},
	{store.ErrDuplicate, http.StatusConflict, "duplicate"},
	{services.ErrOrderLocked, http.StatusConflict, "order_locked"},
	{services.ErrOrderNotValidated, http.StatusConflict, "order_not_validated"},
	{store.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{store.ErrInvalidQuantity, http.StatusUnprocessableEntity, "must_not_be_negative"},
	{services.ErrInvalidOrder, http.StatusUnprocessableEntity, "invalid_order"},
	{httpx.ErrBadBody, http.StatusBadRequest, "invalid_body"},
	{gate.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
	{gate.ErrForbidden, http.StatusForbidden, "forbidden"},
}

// writeError maps err to a status and a localized message. Unknown errors are logged and answered with 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	lang := middleware.LangFrom(r)
	for _, s := range errorStatus {
		if errors.Is(err, s.target) {
			httpx.JSONErrorMessage(w, s.status, s.code, i18n.T(lang, s.code), nil)
			return
		}
	}
	logger.FromContext(r.Context()).Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	httpx.JSONErrorMessage(w, http.StatusInternalServerError, "internal_error", i18n.T(lang, "internal_error"), nil)
}

// writeViolations answers 422 with each field's code translated.
func writeViolations(w http.ResponseWriter, r *http.Request, v validation.Violations) {
	lang := middleware.LangFrom(r)
	details := make(map[string]string, len(v))
	for field, code := range v {
		details[field] = i18n.T(lang, code)
	}
	httpx.JSONErrorMessage(w, http.StatusUnprocessableEntity, "validation", i18n.T(lang, "validation"), details)
}

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errBadID
	}
	return uint(id), nil
}

func listParams(r *http.Request) store.ListParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return store.ListParams{Query: q.Get("q"), Page: page, Limit: limit}.Normalize()
}

// Page is the envelope of list responses.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func newPage[T any](items []T, total int64, p store.ListParams) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
}
