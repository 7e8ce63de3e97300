package httpserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appanalysis "github.com/labelscan/labelscan/internal/application/analysis"
	domain "github.com/labelscan/labelscan/internal/domain/analysis"
	"github.com/labelscan/labelscan/internal/middleware"
)

type Router struct {
	svc *appanalysis.Service
}

// NewRouter mounts the analysis routes. authmw guards every /v1 route: no
// analysis request reaches the service (or the model behind it) without a
// verified session.
func NewRouter(svc *appanalysis.Service, authmw func(http.Handler) http.Handler) http.Handler {
	r := &Router{svc: svc}
	mux := chi.NewRouter()

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.Route("/v1", func(rt chi.Router) {
		if authmw != nil {
			rt.Use(authmw)
		}
		rt.Post("/analyses", r.wrap(r.handleAnalyze))
		rt.Get("/analyses", r.wrap(r.handleList))
		rt.Get("/analyses/offline", r.wrap(r.handleOfflineList))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Delete("/analyses/{id}", r.wrap(r.handleDelete))
		rt.Delete("/analyses", r.wrap(r.handleDeleteAll))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps domain errors onto user-facing messages and status codes. Raw
// internal detail never reaches the response body.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			http.Error(w, verr.Msg, http.StatusBadRequest)
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "analysis not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrTimeout):
			http.Error(w, "the analysis is taking too long, try a shorter ingredient list", http.StatusGatewayTimeout)
		case errors.Is(err, domain.ErrMalformedResult):
			http.Error(w, "the analysis came back incomplete, please retry", http.StatusBadGateway)
		case errors.Is(err, domain.ErrQuotaExceeded):
			http.Error(w, "analysis quota exceeded, please try again later", http.StatusTooManyRequests)
		case errors.Is(err, domain.ErrUnavailable):
			http.Error(w, "the analysis service is temporarily unavailable, please retry", http.StatusServiceUnavailable)
		case errors.Is(err, domain.ErrMisconfigured):
			http.Error(w, "server configuration error", http.StatusInternalServerError)
		default:
			log.Printf("unhandled error on %s %s: %v", req.Method, req.URL.Path, err)
			http.Error(w, "something went wrong, please retry", http.StatusInternalServerError)
		}
	}
}

// POST /v1/analyses
// Body: {"input_text": "<ingredient list>"}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())

	var body struct {
		InputText string `json:"input_text"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &domain.ValidationError{Msg: "request body must be JSON with an input_text field"}
	}

	a, err := r.svc.Analyze(req.Context(), owner, body.InputText)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}

	middleware.IncrementAnalyses()
	if a.Source == domain.SourceFallback {
		middleware.IncrementFallbacks()
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(a)
}

// GET /v1/analyses?limit=  (or ?page=&page_size= for offset pagination)
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())

	var (
		list []*domain.Analysis
		err  error
	)
	if page, _ := strconv.Atoi(req.URL.Query().Get("page")); page > 0 {
		size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
		list, err = r.svc.HistoryPage(req.Context(), owner, page, size)
	} else {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		list, err = r.svc.History(req.Context(), owner, limit)
	}
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Analysis{}
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/analyses/offline?limit=
func (r *Router) handleOfflineList(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list := r.svc.Offline(limit)
	if list == nil {
		list = []*domain.Analysis{}
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	id := chi.URLParam(req, "id")

	a, err := r.svc.Get(req.Context(), owner, domain.AnalysisID(id))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(a)
}

// DELETE /v1/analyses/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	id := chi.URLParam(req, "id")

	if err := r.svc.Delete(req.Context(), owner, domain.AnalysisID(id)); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// DELETE /v1/analyses
func (r *Router) handleDeleteAll(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())

	n, err := r.svc.DeleteAll(req.Context(), owner)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]int64{"deleted": n})
}
