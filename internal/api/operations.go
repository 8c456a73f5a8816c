package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"arithmetic-calculator/internal/auth"
	"arithmetic-calculator/internal/db"
	"arithmetic-calculator/internal/evaluator"
	"arithmetic-calculator/internal/httputil"
	"arithmetic-calculator/internal/settlement"
)

// Settler выполняет и оплачивает одну операцию
type Settler interface {
	Settle(ctx context.Context, req settlement.Request) (*settlement.Outcome, error)
}

// RecordStore - журнал операций пользователя и каталог стоимостей
type RecordStore interface {
	ListRecords(ctx context.Context, userID int64, page db.Page) ([]*db.Record, int, error)
	SearchRecords(ctx context.Context, userID int64, term string, page db.Page) ([]*db.Record, error)
	SoftDeleteRecord(ctx context.Context, userID, recordID int64) error
	ListOperations(ctx context.Context) ([]*db.Operation, error)
}

// OperationRequest - тело POST /api/v1/operations. Поля kind/first_operand/
// second_operand принимаются как синонимы type/first_term/second_term.
type OperationRequest struct {
	Type          string `json:"type"`
	FirstTerm     *int64 `json:"first_term"`
	SecondTerm    *int64 `json:"second_term"`
	Kind          string `json:"kind"`
	FirstOperand  *int64 `json:"first_operand"`
	SecondOperand *int64 `json:"second_operand"`
}

func (req OperationRequest) toSettlement(userID int64) (settlement.Request, error) {
	name := req.Type
	if name == "" {
		name = req.Kind
	}
	kind, err := evaluator.ParseKind(name)
	if err != nil {
		return settlement.Request{}, err
	}

	first, second := req.FirstTerm, req.SecondTerm
	if first == nil {
		first = req.FirstOperand
	}
	if second == nil {
		second = req.SecondOperand
	}
	return settlement.Request{UserID: userID, Kind: kind, First: first, Second: second}, nil
}

// RecordsResponse - страница журнала с общим числом записей
type RecordsResponse struct {
	Records    []*db.Record `json:"records"`
	TotalCount int          `json:"total_count"`
}

type operationsHandler struct {
	settler Settler
	records RecordStore
}

// Perform обрабатывает запрос на выполнение операции
func (h *operationsHandler) Perform(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireAuth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			writeError(w, r, fmt.Errorf("%w: field %s must be an integer", evaluator.ErrInvalidOperands, typeErr.Field))
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, "Ошибка при разборе JSON: "+err.Error())
		return
	}

	req, err := body.toSettlement(userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.settler.Settle(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, out)
}

// List возвращает страницу неудаленных записей пользователя
func (h *operationsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireAuth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, total, err := h.records.ListRecords(r.Context(), userID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RecordsResponse{Records: records, TotalCount: total})
}

// Search ищет подстроку в тексте выражений пользователя
func (h *operationsHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireAuth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := h.records.SearchRecords(r.Context(), userID, mux.Vars(r)["term"], page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RecordsResponse{Records: records, TotalCount: len(records)})
}

// Delete мягко удаляет запись; повторное удаление не ошибка
func (h *operationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireAuth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "Неверный id")
		return
	}

	if err := h.records.SoftDeleteRecord(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Costs возвращает текущий каталог стоимостей
func (h *operationsHandler) Costs(w http.ResponseWriter, r *http.Request) {
	ops, err := h.records.ListOperations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ops)
}

func pageFromQuery(r *http.Request) (db.Page, error) {
	var page db.Page
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, fmt.Errorf("%w: limit %q", db.ErrInvalidPage, v)
		}
		page.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, fmt.Errorf("%w: offset %q", db.ErrInvalidPage, v)
		}
		page.Offset = n
	}
	return page, nil
}
