package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/piyushmaurya04/expense-tracker/internal/http/errors"
	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/service"
)

// Records возвращает обработчики ресурса одного типа (расходы или доходы).
// Все маршруты требуют принципала.
func (h *Handlers) Records(kind models.RecordKind) *RecordHandlers {
	return &RecordHandlers{svc: h.records, kind: kind}
}

// RecordHandlers — REST-обработчики записей одного типа.
type RecordHandlers struct {
	svc  RecordService
	kind models.RecordKind
}

// Routes регистрирует маршруты ресурса на r.
func (rh *RecordHandlers) Routes(r chi.Router) {
	r.Post("/", rh.Create)
	r.Get("/", rh.List)
	r.Get("/category/{category}", rh.ListByCategory)
	r.Get("/date-range", rh.ListByDateRange)
	r.Get("/total", rh.Total)
	r.Get("/total/category/{category}", rh.TotalByCategory)
	r.Get("/count", rh.Count)
	r.Get("/{id}", rh.Get)
	r.Put("/{id}", rh.Update)
	r.Delete("/{id}", rh.Delete)
}

func decodeRecord(r *http.Request) (models.RecordInput, error) {
	var in recordRequest
	if err := decodeAndValidate(r, &in); err != nil {
		return models.RecordInput{}, err
	}

	rec, err := in.toInput()
	if err != nil {
		return models.RecordInput{}, service.ValidationError(map[string]string{"date": err.Error()})
	}

	return rec, nil
}

// Create — POST /.
func (rh *RecordHandlers) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	in, err := decodeRecord(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	rec, err := rh.svc.CreateRecord(r.Context(), p, rh.kind, in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, recordFromModel(rec, p.Username))
}

// Get — GET /{id}.
func (rh *RecordHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	rec, err := rh.svc.Record(r.Context(), p, rh.kind, id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recordFromModel(rec, p.Username))
}

// Update — PUT /{id}.
func (rh *RecordHandlers) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	// владельца проверяем до разбора тела.
	if _, err := rh.svc.Record(r.Context(), p, rh.kind, id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	in, err := decodeRecord(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	rec, err := rh.svc.UpdateRecord(r.Context(), p, rh.kind, id, in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recordFromModel(rec, p.Username))
}

// Delete — DELETE /{id}. Успех — 204 без тела.
func (rh *RecordHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := rh.svc.DeleteRecord(r.Context(), p, rh.kind, id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List — GET /.
func (rh *RecordHandlers) List(w http.ResponseWriter, r *http.Request) {
	rh.list(w, r, models.RecordFilter{})
}

// ListByCategory — GET /category/{category}.
func (rh *RecordHandlers) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := pathCategory(w, r)
	if !ok {
		return
	}
	rh.list(w, r, models.RecordFilter{Category: category})
}

// pathCategory достаёт непустой {category} из пути; на пустой отвечает 400.
func pathCategory(w http.ResponseWriter, r *http.Request) (string, bool) {
	category := chi.URLParam(r, "category")
	if strings.TrimSpace(category) == "" {
		apierrors.WriteError(w, r, service.ValidationError(map[string]string{"category": "must not be blank"}))
		return "", false
	}
	return category, true
}

// ListByDateRange — GET /date-range?startDate=YYYY-MM-DD&endDate=YYYY-MM-DD.
func (rh *RecordHandlers) ListByDateRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fields := map[string]string{}

	from, err := models.ParseDate(q.Get("startDate"))
	if err != nil {
		fields["startDate"] = "must be a date in YYYY-MM-DD format"
	}
	to, err := models.ParseDate(q.Get("endDate"))
	if err != nil {
		fields["endDate"] = "must be a date in YYYY-MM-DD format"
	}
	if len(fields) > 0 {
		apierrors.WriteError(w, r, service.ValidationError(fields))
		return
	}

	rh.list(w, r, models.RecordFilter{From: &from, To: &to})
}

func (rh *RecordHandlers) list(w http.ResponseWriter, r *http.Request, f models.RecordFilter) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	recs, err := rh.svc.ListRecords(r.Context(), p, rh.kind, f)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]recordResponse, 0, len(recs))
	for i := range recs {
		out = append(out, recordFromModel(&recs[i], p.Username))
	}

	writeJSON(w, http.StatusOK, out)
}

// Total — GET /total.
func (rh *RecordHandlers) Total(w http.ResponseWriter, r *http.Request) {
	rh.total(w, r, "")
}

// TotalByCategory — GET /total/category/{category}.
func (rh *RecordHandlers) TotalByCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := pathCategory(w, r)
	if !ok {
		return
	}
	rh.total(w, r, category)
}

func (rh *RecordHandlers) total(w http.ResponseWriter, r *http.Request, category string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	sum, err := rh.svc.TotalRecords(r.Context(), p, rh.kind, category)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, totalResponse{Total: money(sum)})
}

// Count — GET /count.
func (rh *RecordHandlers) Count(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	n, err := rh.svc.CountRecords(r.Context(), p, rh.kind)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, countResponse{Count: n})
}
