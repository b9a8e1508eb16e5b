package api

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"
	"github.com/tealeg/xlsx/v3"

	"langpulse/tracker/internal/server/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeader = []string{
	"created_at", "title", "language", "sentiment",
	"author", "points", "num_comments", "url",
}

// ExportCSV streams the filtered posts, newest first, as a CSV attachment.
func (h *PostsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	rows, ok := h.exportRows(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=posts.csv")

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(exportHeader); err != nil {
		log.Error().Err(err).Msg("Failed to write CSV header")
		return
	}

	for _, row := range rows {
		if err := csvWriter.Write(exportRecord(row)); err != nil {
			log.Error().Err(err).Msg("Failed to write CSV record")
			return
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		log.Error().Err(err).Msg("Error flushing CSV data")
		return
	}

	log.Info().Int("post_count", len(rows)).Msg("Exported posts as CSV")
}

// ExportXLSX returns the filtered posts, newest first, as a workbook.
func (h *PostsHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	rows, ok := h.exportRows(w, r)
	if !ok {
		return
	}

	buf, err := buildWorkbook(rows)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build workbook")
		http.Error(w, "Error generating workbook", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=posts.xlsx")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		log.Error().Err(err).Msg("Error writing workbook to client")
		return
	}

	log.Info().Int("post_count", len(rows)).Msg("Exported posts as XLSX")
}

func (h *PostsHandler) exportRows(w http.ResponseWriter, r *http.Request) ([]storage.Row, bool) {
	log := hlog.FromRequest(r)

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		log.Warn().Err(err).Msg("Invalid filter parameters")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	rows, err := h.repo.ExportPosts(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query posts for export")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return rows, true
}

func exportRecord(row storage.Row) []string {
	return []string{
		row.CreatedAt,
		row.Title.String,
		row.Language.String,
		row.Sentiment.String,
		row.Author.String,
		strconv.Itoa(row.Points),
		strconv.Itoa(row.NumComments),
		row.URL.String,
	}
}

func buildWorkbook(rows []storage.Row) (*bytes.Buffer, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("posts")
	if err != nil {
		return nil, err
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeader {
		headerRow.AddCell().SetString(h)
	}

	for _, row := range rows {
		xr := sheet.AddRow()
		xr.AddCell().SetString(row.CreatedAt)
		xr.AddCell().SetString(row.Title.String)
		xr.AddCell().SetString(row.Language.String)
		xr.AddCell().SetString(row.Sentiment.String)
		xr.AddCell().SetString(row.Author.String)
		xr.AddCell().SetInt(row.Points)
		xr.AddCell().SetInt(row.NumComments)
		xr.AddCell().SetString(row.URL.String)
	}

	buf := new(bytes.Buffer)
	if err := file.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
