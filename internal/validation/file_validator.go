package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "retailetl/internal/errors"
)

// TabularExtensions lists the accepted upload extensions. A file without
// an extension is read as CSV.
var TabularExtensions = []string{".csv", ".txt", ".xlsx"}

// Upload describes one file handed to the pipeline, either a multipart part
// or a path given on the command line.
type Upload struct {
	Field    string `validate:"required,oneof=sales_file inventory_file"`
	Filename string `validate:"tabular_ext"`
	Size     int64  `validate:"gte=0"`
}

// FileValidator checks uploads and local files before they are parsed.
type FileValidator struct {
	logger   *slog.Logger
	validate *validator.Validate
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("tabular_ext", func(fl validator.FieldLevel) bool {
		return IsTabularFilename(fl.Field().String())
	})
	return &FileValidator{
		logger:   logger.With(slog.String("component", "file_validator")),
		validate: v,
	}
}

// IsTabularFilename reports whether the extension of name is one the
// readers understand. Comparison ignores case.
func IsTabularFilename(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return true
	}
	for _, allowed := range TabularExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ValidateUpload checks an upload's field, filename and size.
func (v *FileValidator) ValidateUpload(u Upload) error {
	err := v.validate.Struct(u)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewInternalAppError("upload validation failed", err)
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "tabular_ext":
		msg = fmt.Sprintf("%s has unsupported file type %q, expected one of %s",
			u.Field, filepath.Ext(u.Filename), strings.Join(TabularExtensions, ", "))
	case "oneof", "required":
		msg = fmt.Sprintf("unexpected upload field %q", u.Field)
	default:
		msg = fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}

	v.logger.Warn("Upload rejected",
		slog.String("field", u.Field),
		slog.String("filename", u.Filename),
		slog.String("rule", fe.Tag()))
	return apperrors.NewAppValidationError(msg).
		WithContext("field", u.Field).
		WithContext("filename", u.Filename)
}

// ValidateFile checks that a local input file exists, is readable and has
// a tabular extension. It returns the file size.
func (v *FileValidator) ValidateFile(field, path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return 0, apperrors.NewMissingInputError(field).WithContext("path", path)
	}
	if err != nil {
		return 0, apperrors.NewInternalAppError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path)).
			WithContext("field", field)
	}

	if err := v.ValidateUpload(Upload{Field: field, Filename: path, Size: info.Size()}); err != nil {
		return 0, err
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("file %s is not readable", path)).
			WithContext("field", field)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return info.Size(), nil
}

// ValidateOutputDirectory ensures the directory exists or can be created
// and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)
	return nil
}
