package api

import (
	"log/slog"
	"net/http"

	"github.com/mufasai/server-ai/internal/pdftext"
)

type extractPDFRequest struct {
	PDFBase64 string `json:"pdfBase64"`
}

func (h *handler) handleExtractPDF(w http.ResponseWriter, r *http.Request) {
	const msgMissing = "PDF base64 data is required"

	var req extractPDFRequest
	if !decodeBody(w, r, h.opts.MaxBodyBytes, &req, msgMissing) {
		return
	}
	if req.PDFBase64 == "" {
		writeError(w, http.StatusBadRequest, errorResponse{Error: msgMissing})
		return
	}

	res, err := pdftext.ExtractBase64(req.PDFBase64)
	if err != nil {
		slog.Error("PDF extraction failed", "error", err)
		writeError(w, http.StatusInternalServerError, errorResponse{
			Error:      "Failed to extract PDF",
			Message:    err.Error(),
			Suggestion: pdftext.Suggestion,
		})
		return
	}

	slog.Info("PDF extraction completed", "pages", res.Pages, "chars", len([]rune(res.Text)), "has_text", res.Message == "")
	writeJSON(w, http.StatusOK, res)
}
