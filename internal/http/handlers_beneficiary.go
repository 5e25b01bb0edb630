package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"billview/internal/core"
	"billview/internal/log"
	"billview/internal/report"
	"billview/internal/services"
	"billview/internal/source"
	"billview/internal/storage"
)

func (s *Server) handleListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Beneficiaries.List(r.Context())
	if err != nil {
		upstreamError(w, r, log.OpList, err)
		return
	}
	if list == nil {
		list = []core.Beneficiary{}
	}
	writeJSON(w, http.StatusOK, envelope{"beneficiaries": list, "count": len(list)})
}

func (s *Server) handleCreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	var b core.Beneficiary
	if err := readJSON(w, r, &b); err != nil {
		badRequest(w, err)
		return
	}
	s.resolveChoices(r, &b)
	s.submit(w, r, core.OpCreate, b)
}

func (s *Server) handleUpdateBeneficiary(w http.ResponseWriter, r *http.Request) {
	var b core.Beneficiary
	if err := readJSON(w, r, &b); err != nil {
		badRequest(w, err)
		return
	}
	b.ID = chi.URLParam(r, "id")
	s.resolveChoices(r, &b)
	s.submit(w, r, core.OpUpdate, b)
}

func (s *Server) handleDeleteBeneficiary(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, core.OpDelete, core.Beneficiary{ID: chi.URLParam(r, "id")})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, op core.MutationOp, b core.Beneficiary) {
	res, err := s.deps.Beneficiaries.Submit(r.Context(), op, b)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrValidation):
		badRequest(w, err)
		return
	case errors.Is(err, source.ErrNotFound):
		notFound(w, fmt.Sprintf("beneficiary %q", b.ID))
		return
	default:
		var fe *core.FetchError
		if errors.As(err, &fe) {
			upstreamError(w, r, string(op), err)
			return
		}
		serverError(w, r, string(op), err)
		return
	}

	status := http.StatusOK
	switch {
	case res.Queued:
		status = http.StatusAccepted
		w.Header().Set("Location", "/api/v1/mutations/"+res.MutationID)
	case op == core.OpCreate:
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// choiceFields pairs each dropdown-backed field with the free-text key the
// form sends when "Other" is selected and the options the dropdown offers.
var choiceFields = []struct {
	name    string
	other   string
	get     func(*core.Beneficiary) string
	options func(map[core.Field][]string) []string
}{
	{"category", "category_other",
		func(b *core.Beneficiary) string { return b.Category },
		func(map[core.Field][]string) []string { return core.CategoryOptions }},
	{"unit", "unit_other",
		func(b *core.Beneficiary) string { return b.Unit },
		func(o map[core.Field][]string) []string { return o[core.FieldUnit] }},
	{"scheme_name", "scheme_name_other",
		func(b *core.Beneficiary) string { return b.Scheme },
		func(o map[core.Field][]string) []string { return o[core.FieldScheme] }},
	{"supplied_item_name", "supplied_item_name_other",
		func(b *core.Beneficiary) string { return b.SupplyItem },
		func(o map[core.Field][]string) []string { return o[core.FieldInvestment] }},
}

// resolveChoices folds the "<field>_other" companions into their fields so
// only the chosen text is sent upstream. Unit, scheme and supplied item are
// offered from the current billing snapshot; without one every answer is
// treated as free text.
func (s *Server) resolveChoices(r *http.Request, b *core.Beneficiary) {
	var options map[core.Field][]string
	if snap, err := s.deps.Loader.Load(r.Context()); err == nil {
		options = report.Options(snap.Records)
	}
	if custom := applyChoices(b, options); len(custom) > 0 {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Beneficiary submitted with free-text choices",
			"fields", custom, log.FieldBeneficiaryID, b.ID)
	}
}

// applyChoices resolves every dropdown field against options and returns the
// names of the fields whose value is not one of the offered options.
func applyChoices(b *core.Beneficiary, options map[core.Field][]string) []string {
	var resolved [4]core.Choice
	var custom []string
	for i, cf := range choiceFields {
		other, _ := b.Extra[cf.other].(string)
		resolved[i] = core.ResolveChoice(cf.get(b), other, cf.options(options))
		delete(b.Extra, cf.other)
		if resolved[i].IsCustom() && resolved[i].Value() != "" {
			custom = append(custom, cf.name)
		}
	}
	if len(b.Extra) == 0 {
		b.Extra = nil
	}
	b.ApplyChoices(resolved[0], resolved[1], resolved[2], resolved[3])
	return custom
}

func (s *Server) handleMutationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := s.deps.Beneficiaries.Mutation(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, m)
	case errors.Is(err, services.ErrOutboxDisabled), errors.Is(err, storage.ErrMutationNotFound):
		notFound(w, fmt.Sprintf("mutation %q", id))
	default:
		serverError(w, r, log.OpLookup, err)
	}
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	center := strings.TrimSpace(r.URL.Query().Get("center_name"))
	if center == "" {
		badRequest(w, errors.New("center_name is required"))
		return
	}
	if s.deps.Regions == nil {
		notFound(w, "region lookup")
		return
	}
	region, err := s.deps.Regions.LookupRegion(r.Context(), center)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, region)
	case errors.Is(err, source.ErrNotFound):
		notFound(w, fmt.Sprintf("region for %q", center))
	default:
		upstreamError(w, r, log.OpLookup, err)
	}
}
