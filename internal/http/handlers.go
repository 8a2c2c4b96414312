package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"

	"adspend/internal/dashboard"
	applog "adspend/internal/log"
	"adspend/internal/render"
)

const headerHXTrigger = "HX-Trigger"

const (
	templateIndex       = "index.html"
	templateDashboard   = "dashboard"
	templateSuggestions = "suggestions"
)

// pageData is what the index and dashboard templates render.
type pageData struct {
	View  dashboard.View
	Query string
}

// summaryResponse is the JSON form of a dashboard view.
type summaryResponse struct {
	State   dashboard.State      `json:"state"`
	Term    string               `json:"term"`
	Month   string               `json:"month"`
	Months  []render.MonthOption `json:"months"`
	KPIs    render.KPIView       `json:"kpis"`
	Table   render.Table         `json:"table"`
	Matched int                  `json:"matched"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the first refresh has settled.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.ctrl.Settled():
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := s.parseQuery(r.Context(), r.URL.Query())
	s.writeTemplate(w, r, templateIndex, s.page(q))
}

// handleDashboard renders the KPI, status and table partial for the search
// and month controls. The control that fired the request (htmx sends its id
// in HX-Trigger) decides which session event runs; both carry the full filter.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := s.parseQuery(r.Context(), r.URL.Query())
	sess := s.ctrl.SessionFor(q)

	var view dashboard.View
	if r.Header.Get(headerHXTrigger) == paramMonth && q.MonthSet {
		view = sess.OnMonthChanged(q.Month)
	} else {
		view = sess.OnSearchChanged(q.Term)
	}
	s.writeTemplate(w, r, templateDashboard, pageData{View: view, Query: EncodeDashboardQuery(q).Encode()})
}

// handleRefresh re-fetches the upstream table and re-renders the partial with
// the filter submitted alongside the request. A failed refresh still renders
// the previous rows next to the error.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		ErrorResponse(http.StatusBadRequest, "invalid request").Write(w)
		return
	}
	q := s.parseQuery(ctx, r.Form)

	view, err := s.ctrl.SessionFor(q).OnRefreshRequested(ctx)
	if err != nil && ctx.Err() != nil {
		logger.DebugContext(ctx, "Client left before refresh finished", applog.FieldError, err)
		return
	}

	body, rerr := s.renderTemplate(templateDashboard, pageData{View: view, Query: EncodeDashboardQuery(q).Encode()})
	if rerr != nil {
		logger.ErrorContext(ctx, "Template execution failed",
			applog.FieldError, rerr,
			"template", templateDashboard,
			applog.FieldOperation, applog.OpRender)
		InternalServerError("render failed").Write(w)
		return
	}

	resp := NewHTMXResponse().BodyHTML(string(body))
	if err != nil {
		resp.TriggerErrorNotification(dashboard.ErrorMessage(err))
	} else {
		resp.TriggerDashboardRefreshed(view.State.Generation, view.State.Rows)
	}
	resp.Write(w)
}

// handleSuggest renders datalist options for the search box.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	term := truncate(sanitizeInput(r.URL.Query().Get(paramTerm)), maxTermLength)
	s.writeTemplate(w, r, templateSuggestions, s.ctrl.Suggest(term, s.suggestLimit))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := s.parseQuery(r.Context(), r.URL.Query())
	v := s.ctrl.View(q)
	writeJSON(w, http.StatusOK, summaryResponse{
		State:   v.State,
		Term:    v.Term,
		Month:   v.Month.String(),
		Months:  v.Months,
		KPIs:    v.KPIs,
		Table:   v.Table,
		Matched: v.Matched,
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError("Too many refresh requests. Please wait a moment.").Write(w)
}

func (s *Server) parseQuery(ctx context.Context, values url.Values) dashboard.Query {
	q, err := ParseDashboardQuery(values)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Invalid month parameter, using default selection",
			applog.FieldError, err,
			applog.FieldMonth, values.Get(paramMonth))
	}
	return q
}

func (s *Server) page(q dashboard.Query) pageData {
	return pageData{View: s.ctrl.View(q), Query: EncodeDashboardQuery(q).Encode()}
}

var errTemplatesMissing = errors.New("templates not loaded")

func (s *Server) renderTemplate(name string, data any) ([]byte, error) {
	if s.templates == nil {
		return nil, errTemplatesMissing
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeTemplate renders into a buffer first so a failing template never
// leaves a half-written page.
func (s *Server) writeTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	body, err := s.renderTemplate(name, data)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name,
			applog.FieldOperation, applog.OpRender)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
