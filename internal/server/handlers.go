package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ArionMiles/spendsort/internal/upload"
	"github.com/ArionMiles/spendsort/pkg/api"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling file parts to disk.
const multipartMemory = 8 << 20

type uploadResponse struct {
	Message      string            `json:"message"`
	BatchID      uuid.UUID         `json:"batch_id"`
	Transactions []api.Transaction `json:"transactions"`
	Stats        api.Stats         `json:"stats"`
	RejectedRows int               `json:"rejected_rows"`
}

// handleUpload handles POST /upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large (limit %d bytes)", tooLarge.Limit))
		case errors.Is(err, http.ErrNotMultipart):
			writeError(w, http.StatusBadRequest, "No file uploaded")
		default:
			s.logger.Warn("invalid multipart form", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid multipart form")
		}
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files only

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		s.logger.Error("failed to open uploaded file", "error", err)
		writeError(w, http.StatusInternalServerError, "Error processing file")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("failed to read uploaded file", "file", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Error processing file")
		return
	}

	batch, err := s.uploads.Upload(r.Context(), header.Filename, data)
	if err != nil {
		s.writeUploadError(w, r, header.Filename, err)
		return
	}

	transactions := batch.Transactions
	if transactions == nil {
		transactions = []api.Transaction{}
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Message:      "Upload successful",
		BatchID:      batch.BatchID,
		Transactions: transactions,
		Stats:        batch.Stats,
		RejectedRows: batch.Rejected,
	})
}

func (s *Server) writeUploadError(w http.ResponseWriter, r *http.Request, name string, err error) {
	var (
		schemaErr *api.SchemaError
		parseErr  *api.UnparseableError
		storeErr  *api.StoreError
	)

	switch {
	case errors.Is(err, upload.ErrUnsupportedType):
		s.logger.Warn("rejected upload", "file", name, "reason", "unsupported type")
		writeError(w, http.StatusBadRequest,
			"File must be one of: "+strings.Join(s.catalog.Extensions(), ", "))

	case errors.As(err, &schemaErr):
		s.logger.Warn("rejected upload", "file", name, "reason", "schema", "found", schemaErr.Found)
		missing := make([]string, len(schemaErr.Missing))
		for i, f := range schemaErr.Missing {
			missing[i] = string(f)
		}
		found := schemaErr.Found
		if found == nil {
			found = []string{}
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Missing required columns: " + strings.Join(missing, ", "),
			Missing: missing,
			Found:   found,
		})

	case errors.Is(err, api.ErrEmptyInput):
		s.logger.Warn("rejected upload", "file", name, "reason", "empty")
		writeError(w, http.StatusBadRequest, "File contains no transactions")

	case errors.As(err, &parseErr):
		s.logger.Warn("rejected upload", "file", name, "reason", "unparseable", "detail", parseErr.Detail)
		writeError(w, http.StatusBadRequest, "Error processing file: "+parseErr.Detail)

	case errors.As(err, &storeErr):
		s.logger.Error("failed to save upload",
			"file", name,
			"request_id", RequestIDFrom(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Error saving to database")

	default:
		s.logger.Error("unexpected upload error", "file", name, "error", err)
		writeError(w, http.StatusInternalServerError, "Error processing file")
	}
}

// handleTransactions handles GET /transactions[?format=json|csv].
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "json"
	}

	exporter, err := s.catalog.GetExporter(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported format %q", format))
		return
	}

	transactions, err := s.lister.ListTransactions(r.Context())
	if err != nil {
		s.logger.Error("failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "Error fetching transactions")
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	if format != "json" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="transactions.%s"`, format))
	}
	w.WriteHeader(http.StatusOK)
	if err := exporter.Export(w, transactions); err != nil {
		s.logger.Error("failed to write transactions", "format", format, "error", err)
	}
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
