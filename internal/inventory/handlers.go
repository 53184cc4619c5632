package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/travel-inventory/internal/interpret"
)

// maxUploadSize bounds receipt uploads and backup imports. High-resolution
// phone photos can exceed 10MB.
const maxUploadSize = int64(50 << 20)

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes {"error": message} with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// serviceError maps a service error to a status code. Unexpected errors are
// logged and reported without detail.
func serviceError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		jsonError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalid):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, interpret.ErrNoStructure):
		jsonError(w, "Could not read the receipt. Please try a clearer photo.", http.StatusUnprocessableEntity)
	default:
		slog.Error("Error "+action, "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// decodeBody decodes a JSON request body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadSize)).Decode(v); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// handleScanReceipt recognizes an uploaded receipt image and returns a draft
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFor(header.Filename)
	}

	draft, err := s.service.ScanReceipt(filepath.Base(header.Filename), data, contentType)
	if err != nil {
		serviceError(w, "scanning receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// handleInterpretText interprets receipt text recognized on the client
func (s *Server) handleInterpretText(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	text := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		text = req.Text
	}

	receipt, err := s.service.InterpretText(text)
	if err != nil {
		serviceError(w, "interpreting text", err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns a stored receipt image
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalid) {
			jsonError(w, "File not found", http.StatusNotFound)
			return
		}
		serviceError(w, "getting receipt file", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleSaveInvoice(w http.ResponseWriter, r *http.Request) {
	var input InvoiceInput
	if !decodeBody(w, r, &input) {
		return
	}
	detail, err := s.service.SaveInvoice(input)
	if err != nil {
		serviceError(w, "saving invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.service.ListInvoices(r.URL.Query().Get("trip"))
	if err != nil {
		serviceError(w, "listing invoices", err)
		return
	}
	if invoices == nil {
		invoices = []*Invoice{}
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.GetInvoice(r.PathValue("id"))
	if err != nil {
		serviceError(w, "getting invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteInvoice(r.PathValue("id")); err != nil {
		serviceError(w, "deleting invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInventoryList returns items matching ?q=&trip=&type=&status=
func (s *Server) handleInventoryList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ItemFilter{
		Query:  q.Get("q"),
		TripID: q.Get("trip"),
		Type:   q.Get("type"),
		Status: ItemStatus(q.Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		jsonError(w, "Unknown status", http.StatusBadRequest)
		return
	}

	entries, err := s.service.InventoryList(filter)
	if err != nil {
		serviceError(w, "listing inventory", err)
		return
	}
	if entries == nil {
		entries = []InventoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.GetItem(r.PathValue("id"))
	if err != nil {
		serviceError(w, "getting item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleAdvanceItemStatus(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.AdvanceItemStatus(r.PathValue("id"))
	if err != nil {
		serviceError(w, "advancing item status", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleTranslateItem(w http.ResponseWriter, r *http.Request) {
	item, result, err := s.service.TranslateItem(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, "translating item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item":        item,
		"translation": result,
	})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var update ItemUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	item, err := s.service.UpdateItem(r.PathValue("id"), update)
	if err != nil {
		serviceError(w, "updating item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteItem(r.PathValue("id")); err != nil {
		serviceError(w, "deleting item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.service.ListTrips()
	if err != nil {
		serviceError(w, "listing trips", err)
		return
	}
	if trips == nil {
		trips = []*Trip{}
	}
	writeJSON(w, http.StatusOK, trips)
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var input TripInput
	if !decodeBody(w, r, &input) {
		return
	}
	trip, err := s.service.CreateTrip(input)
	if err != nil {
		serviceError(w, "creating trip", err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTrip(r.PathValue("id")); err != nil {
		serviceError(w, "deleting trip", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.service.Dashboard()
	if err != nil {
		serviceError(w, "building dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	groups, err := s.service.PriceHistory()
	if err != nil {
		serviceError(w, "building price history", err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.GetSettings()
	if err != nil {
		serviceError(w, "getting settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings Settings
	if !decodeBody(w, r, &settings) {
		return
	}
	saved, err := s.service.UpdateSettings(settings)
	if err != nil {
		serviceError(w, "updating settings", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	backup, err := s.service.Export()
	if err != nil {
		serviceError(w, "exporting backup", err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="travel-inventory.json"`)
	writeJSON(w, http.StatusOK, backup)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var backup Backup
	if !decodeBody(w, r, &backup) {
		return
	}
	if err := s.service.Import(&backup); err != nil {
		serviceError(w, "importing backup", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"trips":    len(backup.Trips),
		"invoices": len(backup.Invoices),
		"items":    len(backup.Items),
	})
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.ExportXLSX(&buf); err != nil {
		serviceError(w, "exporting workbook", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="travel-inventory.xlsx"`)
	w.Write(buf.Bytes())
}
