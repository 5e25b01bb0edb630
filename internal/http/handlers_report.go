package http

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"billview/internal/core"
	"billview/internal/export"
	"billview/internal/log"
	"billview/internal/report"
	"billview/internal/source"
)

type snapshotInfo struct {
	Version          uint64    `json:"version"`
	Records          int       `json:"records"`
	FetchedAt        time.Time `json:"fetched_at"`
	CoercionFailures int       `json:"coercion_failures"`
}

func infoOf(snap source.Snapshot) snapshotInfo {
	return snapshotInfo{
		Version:          snap.Version,
		Records:          len(snap.Records),
		FetchedAt:        snap.FetchedAt,
		CoercionFailures: snap.CoercionFailures,
	}
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Loader.Load(r.Context())
	if err != nil {
		upstreamError(w, r, log.OpFetch, err)
		return
	}
	opts := report.Options(snap.Records)
	out := make(map[string][]string, len(opts))
	for f, values := range opts {
		out[string(f)] = values
	}
	writeJSON(w, http.StatusOK, envelope{"snapshot": infoOf(snap), "options": out})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	state, err := parseState(r.URL.Query())
	if err != nil {
		badRequest(w, err)
		return
	}
	snap, err := s.deps.Loader.Load(r.Context())
	if err != nil {
		upstreamError(w, r, log.OpChart, err)
		return
	}
	chart := s.engine.Chart(snap.Version, snap.Records, state)
	writeJSON(w, http.StatusOK, envelope{
		"snapshot": infoOf(snap),
		"filters":  filtersOf(state),
		"chart":    chart,
	})
}

func filtersOf(state report.State) map[string][]string {
	out := map[string][]string{}
	for _, f := range core.Fields {
		if sel := state.Filters.Selected(f); len(sel) > 0 {
			out[string(f)] = sel
		}
	}
	return out
}

// detailFor resolves the drill-down for the request, writing the error
// response itself when it cannot.
func (s *Server) detailFor(w http.ResponseWriter, r *http.Request, op string) (report.State, report.Detail, bool) {
	state, err := parseState(r.URL.Query())
	if err != nil {
		badRequest(w, err)
		return state, report.Detail{}, false
	}
	if !state.Detail.Open {
		badRequest(w, fmt.Errorf("group is required"))
		return state, report.Detail{}, false
	}
	snap, err := s.deps.Loader.Load(r.Context())
	if err != nil {
		upstreamError(w, r, op, err)
		return state, report.Detail{}, false
	}
	detail, ok := s.engine.Detail(snap.Version, snap.Records, state)
	if !ok {
		notFound(w, fmt.Sprintf("group %q", state.Detail.Group))
		return state, report.Detail{}, false
	}
	return state, detail, true
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	state, detail, ok := s.detailFor(w, r, log.OpDetail)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"group_by": state.GroupBy,
		"detail":   detail,
	})
}

// Exports contain the current page only, in the selected columns.
func (s *Server) exportRequest(w http.ResponseWriter, r *http.Request) (report.State, report.Detail, []export.Column, bool) {
	state, detail, ok := s.detailFor(w, r, log.OpExport)
	if !ok {
		return state, detail, nil, false
	}
	cols, err := export.ParseColumns(state.Detail.Columns)
	if err != nil {
		badRequest(w, err)
		return state, detail, nil, false
	}
	return state, detail, cols, true
}

func exportFilename(state report.State, d report.Detail, ext string) string {
	name := attachmentName("report", string(state.GroupBy), d.Group, string(d.Filter), "p"+strconv.Itoa(d.Page.Number))
	return mime.FormatMediaType("attachment", map[string]string{"filename": name + ext})
}

func (s *Server) handleExportExcel(w http.ResponseWriter, r *http.Request) {
	state, detail, cols, ok := s.exportRequest(w, r)
	if !ok {
		return
	}
	data, err := export.WriteExcel(detail.Page.Rows, cols, detail.Page.Offset+1)
	if err != nil {
		serverError(w, r, log.OpExport, fmt.Errorf("excel export failed: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", exportFilename(state, detail, ".xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	state, detail, cols, ok := s.exportRequest(w, r)
	if !ok {
		return
	}
	title := fmt.Sprintf("%s: %s (%s)", state.GroupBy.Label(), detail.Group, detail.Filter)
	var buf bytes.Buffer
	if err := export.WriteHTML(&buf, title, detail.Page.Rows, cols, detail.Page.Offset+1); err != nil {
		serverError(w, r, log.OpExport, fmt.Errorf("print export failed: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Loader.Refresh(r.Context())
	if err != nil {
		upstreamError(w, r, log.OpRefresh, err)
		return
	}
	s.engine.Invalidate()
	writeJSON(w, http.StatusOK, envelope{"snapshot": infoOf(snap)})
}
