package twhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twdesign"
	"github.com/gotailwindcss/windpress/twintellisense"
	"github.com/gotailwindcss/windpress/twoptimize"
	"github.com/gotailwindcss/windpress/twvfs"
)

// CompileRequest is the body of POST /compile. Volume is an encoded
// volume; the project volume is used when it is empty.
type CompileRequest struct {
	Candidates []string                  `json:"candidates"`
	Entrypoint string                    `json:"entrypoint,omitempty"`
	Config     string                    `json:"config,omitempty"`
	Content    []windpress.ContentRecord `json:"content,omitempty"`
	Volume     string                    `json:"volume,omitempty"`
	Minify     bool                      `json:"minify,omitempty"`
}

// CompileResponse is the answer to POST /compile.
type CompileResponse struct {
	CSS      string   `json:"css"`
	Warnings []string `json:"warnings,omitempty"`
}

type classesRequest struct {
	Classes []string `json:"classes"`
}

type candidatesRequest struct {
	Candidates []string `json:"candidates"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (h *Handler) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	vol := h.project.Volume()
	if req.Volume != "" {
		v, err := twvfs.DecodeVolume(req.Volume)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		vol = v
	}

	done := track(h.compileCounter)
	css, err := h.engine.Compile(r.Context(), &windpress.Request{
		Candidates: req.Candidates,
		Entrypoint: req.Entrypoint,
		Config:     req.Config,
		Content:    req.Content,
		Volume:     vol,
	})
	var out *twoptimize.Result
	if err == nil {
		out, err = twoptimize.Optimize(css, req.Minify, twoptimize.WithLogger(h.logger))
	}
	done(err)
	if err != nil {
		code := http.StatusInternalServerError
		var ce *windpress.CompileError
		if errors.As(err, &ce) {
			code = http.StatusUnprocessableEntity
		}
		writeError(w, code, err)
		return
	}
	res := CompileResponse{CSS: string(out.Code)}
	for _, wn := range out.Warnings {
		res.Warnings = append(res.Warnings, wn.String())
	}
	writeJSON(w, http.StatusOK, res)
}

// loadSession points the session at the current project volume. It is a
// no-op while the volume is unchanged.
func (h *Handler) loadSession(r *http.Request) error {
	_, err := h.session.Reload(r.Context(), h.project.Volume())
	return err
}

func (h *Handler) handleClasses(w http.ResponseWriter, r *http.Request) {
	done := track(h.queryCounter)
	if err := h.loadSession(r); err != nil {
		done(err)
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	opts := []twintellisense.SearchOption{twintellisense.WithThreshold(h.threshold)}
	limit := h.limit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			done(err)
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	if limit > 0 {
		opts = append(opts, twintellisense.WithLimit(limit))
	}
	res, err := h.session.Search(r.URL.Query().Get("q"), opts...)
	done(err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if res == nil {
		res = []twintellisense.Suggestion{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleSort(w http.ResponseWriter, r *http.Request) {
	var req classesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	done := track(h.queryCounter)
	if err := h.loadSession(r); err != nil {
		done(err)
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	sorted, err := h.session.Sort(req.Classes)
	done(err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, classesRequest{Classes: sorted})
}

func (h *Handler) handleCandidateCSS(w http.ResponseWriter, r *http.Request) {
	var req candidatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	done := track(h.queryCounter)
	if err := h.loadSession(r); err != nil {
		done(err)
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	css, err := h.session.CSS(req.Candidates)
	done(err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"css": css})
}

func (h *Handler) handleVariables(w http.ResponseWriter, r *http.Request) {
	done := track(h.queryCounter)
	if err := h.loadSession(r); err != nil {
		done(err)
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	vars, err := h.session.Variables()
	done(err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if vars == nil {
		vars = []twdesign.Variable{}
	}
	writeJSON(w, http.StatusOK, vars)
}
