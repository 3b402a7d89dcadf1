package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quantquery/pkg/quantquery"
)

// Uploaded price files are small CSV/JSON exports; cap parsing memory.
const maxUploadBytes = 8 << 20

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) runAnalysis(w http.ResponseWriter, r *http.Request) {
	req, err := parseAnalysisRequest(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.core.RunAnalysis(r.Context(), req)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}

	writeSuccess(w, result)
}

func (h *handler) getAnalysisHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeErrorResponse(w, http.StatusBadRequest,
				quantquery.NewError(quantquery.ErrCodeInvalidInput, fmt.Sprintf("invalid limit: %q", raw)))
			return
		}
		limit = parsed
	}

	records, err := h.core.ListAnalysisHistory(limit)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}

	writeSuccess(w, records)
}

func parseAnalysisRequest(r *http.Request) (quantquery.AnalysisRequest, error) {
	var req quantquery.AnalysisRequest

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return req, quantquery.WrapError(quantquery.ErrCodeInvalidInput, "failed to parse multipart form", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return req, quantquery.WrapError(quantquery.ErrCodeInvalidInput, "failed to parse form", err)
	}

	req.Query = strings.TrimSpace(r.FormValue("query"))
	req.Tickers = splitTickers(r.FormValue("tickers"))

	var err error
	if req.StartDate, err = parseDateField(r.FormValue("start_date"), "start_date"); err != nil {
		return req, err
	}
	if req.EndDate, err = parseDateField(r.FormValue("end_date"), "end_date"); err != nil {
		return req, err
	}

	if r.MultipartForm != nil {
		file, header, err := r.FormFile("upload_file")
		if err == nil {
			defer file.Close()
			data, readErr := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
			if readErr != nil {
				return req, quantquery.WrapError(quantquery.ErrCodeInvalidInput, "failed to read uploaded file", readErr)
			}
			if len(data) > maxUploadBytes {
				return req, quantquery.NewError(quantquery.ErrCodeInvalidInput, "uploaded file exceeds size limit")
			}
			req.Upload = data
			req.UploadFilename = header.Filename
		} else if err != http.ErrMissingFile {
			return req, quantquery.WrapError(quantquery.ErrCodeInvalidInput, "failed to read uploaded file", err)
		}
	}

	return req, nil
}

func splitTickers(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var tickers []string
	for _, part := range strings.Split(raw, ",") {
		ticker := strings.ToUpper(strings.TrimSpace(part))
		if ticker != "" {
			tickers = append(tickers, ticker)
		}
	}
	return tickers
}

func parseDateField(raw, name string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, quantquery.NewError(quantquery.ErrCodeInvalidInput,
			fmt.Sprintf("invalid %s: %q, expected YYYY-MM-DD", name, raw))
	}
	parsed = parsed.UTC()
	return &parsed, nil
}
