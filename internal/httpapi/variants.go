package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fitroom/internal/store"
	"fitroom/internal/variant"
	"fitroom/pkg/types"
)

func toVariant(v variant.Variant) types.Variant {
	return types.Variant{
		Name:            v.Name,
		DisplayName:     v.DisplayName,
		Paid:            v.Paid,
		Cost:            v.Cost,
		Enabled:         v.Enabled,
		AvgSeconds:      v.AvgSeconds,
		MaxSeconds:      v.MaxSeconds,
		Blacklisted:     v.Blacklisted,
		BlacklistReason: v.BlacklistReason,
		Available:       v.Available(),
	}
}

func (h *handlers) variants(w http.ResponseWriter, r *http.Request) {
	vs := h.svc.Variants()
	out := make([]types.Variant, 0, len(vs))
	availableOnly := r.URL.Query().Get("available") == "true"
	for _, v := range vs {
		if availableOnly && !v.Available() {
			continue
		}
		out = append(out, toVariant(v))
	}
	writeJSON(w, http.StatusOK, types.VariantsResponse{Variants: out})
}

func (h *handlers) reinstate(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.ReinstateVariant(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVariant(v))
}

func (h *handlers) setEnabled(w http.ResponseWriter, r *http.Request) {
	var body types.EnabledRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	v, err := h.svc.SetVariantEnabled(r.Context(), chi.URLParam(r, "name"), body.Enabled)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVariant(v))
}

func toGeneration(g store.Generation) types.Generation {
	out := types.Generation{
		ID:          g.ID,
		PersonName:  g.PersonName,
		GarmentName: g.GarmentName,
		Variant:     g.Variant,
		Backend:     g.Backend,
		Prompt:      g.Prompt,
		Seconds:     g.Seconds,
		Rating:      g.Rating,
		Cost:        g.Cost,
		Status:      g.Status,
		Error:       g.Error,
		CreatedUnix: g.CreatedAt.Unix(),
	}
	if g.ResultImagePath != "" {
		out.ResultURL = "/outputs/" + g.ResultImagePath
	}
	return out
}

func (h *handlers) generations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	gs, err := h.svc.Generations(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]types.Generation, len(gs))
	for i, g := range gs {
		out[i] = toGeneration(g)
	}
	writeJSON(w, http.StatusOK, types.GenerationsResponse{Generations: out})
}

func (h *handlers) generation(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Generation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGeneration(g))
}

func (h *handlers) rate(w http.ResponseWriter, r *http.Request) {
	var body types.RateRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.svc.RateGeneration(r.Context(), chi.URLParam(r, "id"), body.Rating); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteGeneration(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteGeneration(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON reads a bounded JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
