package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fitroom/internal/imageio"
	"fitroom/internal/prompt"
	"fitroom/internal/service"
	"fitroom/pkg/types"
)

// multipartMemory is the in-memory part of a parsed form; larger uploads
// spill to temp files.
const multipartMemory = 8 << 20

func (h *handlers) tryOn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, err := parseTryOn(w, r)
	if err != nil {
		logOutcome(r, "tryon", writeError(w, err), start, err)
		return
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	ctx, cancelTimeout := withTryOnTimeout(ctx)
	defer cancelTimeout()

	res, err := h.svc.TryOn(ctx, req)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		logOutcome(r, "tryon", writeError(w, err), start, err)
		return
	}
	writeJSON(w, http.StatusOK, types.TryOnResponse{
		ID:                res.ID,
		Success:           true,
		ResultURL:         "/outputs/" + res.ResultName,
		Variant:           res.Variant,
		Backend:           res.Outcome.Backend.String(),
		Downgraded:        res.Outcome.Downgraded,
		ModelType:         res.ModelType,
		Prompt:            res.Outcome.Prompt,
		Analysis:          res.Analysis,
		GenerationSeconds: res.Elapsed.Seconds(),
		Cost:              res.Cost,
	})
	logOutcome(r, "tryon", http.StatusOK, start, nil)
}

func parseTryOn(w http.ResponseWriter, r *http.Request) (service.TryOnRequest, error) {
	if err := parseForm(w, r); err != nil {
		return service.TryOnRequest{}, err
	}
	person, err := formImage(r, "person_image")
	if err != nil {
		return service.TryOnRequest{}, err
	}
	var garment imageio.Decoded
	if u := strings.TrimSpace(r.FormValue("garment_url")); u != "" {
		garment, err = imageio.Fetch(r.Context(), fetchClient, u, maxUploadBytes)
		if err != nil {
			if errors.Is(err, imageio.ErrTooLarge) || errors.Is(err, imageio.ErrUndecodable) {
				return service.TryOnRequest{}, err
			}
			return service.TryOnRequest{}, badRequest{msg: err.Error()}
		}
	} else if garment, err = formImage(r, "garment_image"); err != nil {
		return service.TryOnRequest{}, err
	}

	req := service.TryOnRequest{
		Person:      person,
		Garment:     garment,
		PersonName:  r.FormValue("person_name"),
		GarmentName: r.FormValue("garment_name"),
		Variant:     r.FormValue("generation_type"),
		Prompt:      r.FormValue("prompt"),
	}
	if req.Enhance, err = formBool(r, "enhance_prompt", true); err != nil {
		return req, err
	}
	if v := r.FormValue("num_inference_steps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return req, badRequest{msg: "num_inference_steps must be a positive integer"}
		}
		req.Steps = n
	}
	if v := r.FormValue("guidance_scale"); v != "" {
		g, err := strconv.ParseFloat(v, 64)
		if err != nil || g < 0 {
			return req, badRequest{msg: "guidance_scale must be a non-negative number"}
		}
		req.Guidance = &g
	}
	return req, nil
}

func (h *handlers) analyzeGarment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := parseForm(w, r); err != nil {
		writeError(w, err)
		return
	}
	garment, err := formImage(r, "garment_image")
	if err != nil {
		writeError(w, err)
		return
	}
	withStyling, err := formBool(r, "include_styling", false)
	if err != nil {
		writeError(w, err)
		return
	}
	opts := prompt.Options{Person: r.FormValue("person_description"), Style: r.FormValue("style_preference")}
	analysis, text, styling, err := h.svc.AnalyzeGarment(r.Context(), garment, opts, withStyling)
	if err != nil {
		logOutcome(r, "analyze", writeError(w, err), start, err)
		return
	}
	resp := types.AnalyzeGarmentResponse{Analysis: analysis, Prompt: text}
	if styling != nil {
		resp.Styling = &types.Styling{Combinations: styling.Combinations, Occasions: styling.Occasions, Accessories: styling.Accessories}
	}
	writeJSON(w, http.StatusOK, resp)
	logOutcome(r, "analyze", http.StatusOK, start, nil)
}

func (h *handlers) output(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f, err := h.svc.OpenResult(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, http.StatusNotFound, "result not found")
			return
		}
		writeError(w, err)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeContent(w, r, name, fi.ModTime(), f)
}

// parseForm caps the body before parsing so oversized uploads fail with 413
// instead of spilling to disk.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	observeUpload(r)
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxUploadBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || errors.Is(err, multipart.ErrMessageTooLarge) {
			return imageio.ErrTooLarge
		}
		return badRequest{msg: "expected a multipart/form-data body"}
	}
	return nil
}

func formImage(r *http.Request, field string) (imageio.Decoded, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return imageio.Decoded{}, badRequest{msg: field + " is required"}
	}
	defer f.Close()
	d, err := imageio.Decode(f, maxUploadBytes)
	if err != nil {
		return imageio.Decoded{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func formBool(r *http.Request, field string, def bool) (bool, error) {
	v := r.FormValue(field)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, badRequest{msg: field + " must be a boolean"}
	}
	return b, nil
}
