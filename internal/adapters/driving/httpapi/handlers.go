package httpapi

import (
	"net/http"
	"strconv"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

// Multipart field names.
const (
	fieldImages       = "images"
	fieldImageIDs     = "image_ids[]"
	fieldImageIDsBare = "image_ids"
	fieldImage        = "image"
	fieldTopK         = "top_k"
)

type extractResponse struct {
	Features map[string][]float32 `json:"features"`
}

type rebuildResponse struct {
	Message      string `json:"message"`
	VectorCount  int    `json:"vector_count"`
	SkippedCount int    `json:"skipped_count"`
	Dimension    int    `json:"dimension"`
	Generation   uint64 `json:"generation"`
}

type searchResponse struct {
	SimilarImageIDs []string `json:"similar_image_ids"`
}

type healthResponse struct {
	Status     string `json:"status"`
	IndexReady bool   `json:"index_ready"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	form, err := s.readForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	images := form.files[fieldImages]
	if len(images) == 0 {
		writeMessage(w, http.StatusBadRequest, "No image files provided")
		return
	}

	ids := form.values[fieldImageIDs]
	if len(ids) == 0 {
		ids = form.values[fieldImageIDsBare]
	}

	features, err := s.ports.Extraction.ExtractBatch(r.Context(), domain.ExtractionBatch{Images: images, IDs: ids})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if features == nil {
		features = map[string][]float32{}
	}
	writeJSON(w, http.StatusOK, extractResponse{Features: features})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	result, err := s.ports.Index.Rebuild(r.Context())
	if err != nil {
		requestLogger(r).Error("index rebuild failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to rebuild index: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rebuildResponse{
		Message:      "Index rebuilt successfully",
		VectorCount:  result.Indexed,
		SkippedCount: result.Skipped,
		Dimension:    result.Dimension,
		Generation:   result.Generation,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	form, err := s.readForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	files := form.files[fieldImage]
	if len(files) == 0 {
		writeMessage(w, http.StatusBadRequest, "No image file provided")
		return
	}
	if files[0].Filename == "" {
		writeMessage(w, http.StatusBadRequest, "Empty filename provided")
		return
	}

	topK := 0
	raw := form.value(fieldTopK)
	if raw == "" {
		raw = r.URL.Query().Get(fieldTopK)
	}
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeMessage(w, http.StatusBadRequest, "top_k must be a positive integer")
			return
		}
		topK = n
	}

	ids, err := s.ports.Search.SearchByImage(r.Context(), files[0], topK)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, searchResponse{SimilarImageIDs: ids})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.ports.Index.Status(r.Context())
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", IndexReady: status.Ready})
}

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ports.Index.Status(r.Context()))
}
