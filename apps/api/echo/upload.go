package echoapi

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
)

// allowed upload content types, sniffed from the file bytes.
var uploadExts = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

var fieldRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

type uploadApi struct {
	conf *core.Config
}

func registerUploadAPI(g *echo.Group, jwt echo.MiddlewareFunc, conf *core.Config) {
	api := uploadApi{conf: conf}

	ug := g.Group("/uploads", jwt)
	ug.POST("", api.create)
}

type UploadResponse struct {
	Path string `json:"path"`
}

// create stores a multipart file under the upload directory, bucketed by the
// "field" form value. The content type is sniffed from the bytes, never
// trusted from the request.
func (api *uploadApi) create(ctx echo.Context) error {
	field := core.CleanString(ctx.FormValue("field"))
	if !fieldRe.MatchString(field) {
		return core.NewValidationError(nil,
			core.FieldError{Field: "field", Error: "must be a lowercase identifier"})
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is required"})
	}
	if fh.Size > api.conf.MaxUploadSize {
		return core.NewValidationError(nil, core.FieldError{
			Field: "file",
			Error: fmt.Sprintf("file exceeds the %d byte limit", api.conf.MaxUploadSize),
		})
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errors.Wrap(err, "sniffing uploaded file")
	}
	ext, ok := uploadExts[http.DetectContentType(head[:n])]
	if !ok {
		return core.NewValidationError(nil,
			core.FieldError{Field: "file", Error: "only JPEG, PNG and PDF files are allowed"})
	}
	if _, err = src.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "rewinding uploaded file")
	}

	dir := filepath.Join(api.conf.UploadDir, field)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating upload dir")
	}

	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return errors.Wrap(err, "creating stored file")
	}
	defer dst.Close()
	if _, err = io.Copy(dst, src); err != nil {
		return errors.Wrap(err, "writing stored file")
	}

	return ctx.JSON(http.StatusCreated, UploadResponse{Path: filepath.Join(field, name)})
}
