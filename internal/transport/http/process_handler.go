package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"retailetl/internal/config"
	apierrors "retailetl/internal/errors"
	"retailetl/internal/services"
)

// multipartMemory is how much of a multipart body is kept in memory before
// parts spill to temporary files.
const multipartMemory = 32 << 20

// Response headers describing the produced grid.
const (
	HeaderGridRows    = "X-Grid-Rows"
	HeaderSeriesCount = "X-Series-Count"
	HeaderRunID       = "X-Run-ID"
)

// ETLServiceInterface is the part of services.ETLService the handler uses.
type ETLServiceInterface interface {
	Process(ctx context.Context, req services.ProcessRequest) (*services.ProcessResult, error)
}

// ProcessHandler turns a multipart upload into the training CSV download.
type ProcessHandler struct {
	service        ETLServiceInterface
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewProcessHandler creates a new process handler. maxUploadBytes <= 0
// disables the size check.
func NewProcessHandler(service ETLServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ProcessHandler {
	return &ProcessHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "process_handler")),
		errorHandler:   errorHandler,
	}
}

// Process handles POST /process. The CSV is rendered completely before the
// first byte is written, so a failed run never produces partial output.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		if r.ContentLength > h.maxUploadBytes {
			h.errorHandler.HandleError(w, r, h.tooLarge(r.ContentLength))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.errorHandler.HandleError(w, r, h.formError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	sales, err := openPart(r.MultipartForm, config.SalesFileField)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	inventory, err := openPart(r.MultipartForm, config.InventoryFileField)
	if err != nil {
		closeInput(sales)
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer closeInput(sales)
	defer closeInput(inventory)

	req := services.ProcessRequest{}
	if sales != nil {
		req.Sales = &sales.FileInput
	}
	if inventory != nil {
		req.Inventory = &inventory.FileInput
	}

	result, err := h.service.Process(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", result.ContentType)
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	header.Set("Content-Length", strconv.Itoa(len(result.Body)))
	header.Set(HeaderGridRows, strconv.Itoa(result.Stats.GridRows))
	header.Set(HeaderSeriesCount, strconv.Itoa(result.Stats.SeriesCount))
	header.Set(HeaderRunID, result.Stats.RunID)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(result.Body); err != nil {
		h.logger.WarnContext(r.Context(), "client went away during download",
			slog.String("error", err.Error()))
	}
}

// formError maps a ParseMultipartForm failure. An oversized body is a
// capacity error, a non-multipart request a validation error, and anything
// else, such as a truncated body, a parsing error.
func (h *ProcessHandler) formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return h.tooLarge(maxErr.Limit + 1)
	}
	if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return apierrors.NewAppValidationError("request must be multipart/form-data with a sales_file part").
			WithContext("cause", err.Error())
	}
	return apierrors.NewParsingError("malformed multipart body", err)
}

func (h *ProcessHandler) tooLarge(size int64) error {
	return apierrors.NewCapacityError("upload bytes", size, h.maxUploadBytes)
}

// openedInput is a service input backed by an open multipart file.
type openedInput struct {
	services.FileInput
	file multipart.File
}

// openPart opens the first file of a form field. A missing field and a part
// with an empty filename both mean no file was supplied.
func openPart(form *multipart.Form, field string) (*openedInput, error) {
	headers := form.File[field]
	if len(headers) == 0 || headers[0].Filename == "" {
		return nil, nil
	}
	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return nil, apierrors.NewInternalAppError("failed to open uploaded file", err).
			WithContext("field", field)
	}
	return &openedInput{
		FileInput: services.FileInput{Filename: fh.Filename, Size: fh.Size, Reader: f},
		file:      f,
	}, nil
}

func closeInput(in *openedInput) {
	if in != nil {
		in.file.Close()
	}
}
