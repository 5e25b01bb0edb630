package http

import (
	"net/http"
	"time"

	"billview/internal/core"
	"billview/internal/source"
)

type loaderStatus struct {
	Status    source.Status `json:"status"`
	Version   uint64        `json:"version"`
	Records   int           `json:"records"`
	FetchedAt *time.Time    `json:"fetched_at,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Message   string        `json:"message,omitempty"`
}

func statusOf(st source.State) loaderStatus {
	out := loaderStatus{Status: st.Status, Version: st.Version, Records: st.Records}
	if !st.FetchedAt.IsZero() {
		t := st.FetchedAt
		out.FetchedAt = &t
	}
	if st.Err != nil {
		out.Error = st.Err.Error()
		out.ErrorKind = core.KindOf(st.Err).String()
		out.Message = core.UserMessage(st.Err)
	}
	return out
}

// handleHealth reports liveness plus the state of the snapshot, the report
// cache and the outbox. It never triggers an upstream fetch.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := envelope{
		"status":       "ok",
		"snapshot":     statusOf(s.deps.Loader.State()),
		"requests":     s.tracer.GetMetrics(),
		"rate_limit":   s.limiter.GetMetrics(),
		"report_cache": s.memo.Stats(),
	}
	if s.deps.Outbox != nil {
		counts, err := s.deps.Outbox.Counts(r.Context())
		if err != nil {
			body["status"] = "degraded"
			body["outbox_error"] = err.Error()
		} else {
			body["outbox"] = counts
		}
	}
	writeJSON(w, http.StatusOK, body)
}
