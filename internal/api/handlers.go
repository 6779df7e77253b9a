package api

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"net/http"

	"github.com/gin-gonic/gin"

	imagecomposer "github.com/menta2k/image-composer"
	"github.com/menta2k/image-composer/internal/utils"
	"github.com/menta2k/image-composer/pkg/assets"
	"github.com/menta2k/image-composer/pkg/catalog"
	"github.com/menta2k/image-composer/pkg/compositor"
	"github.com/menta2k/image-composer/pkg/cropper"
	"github.com/menta2k/image-composer/pkg/exporter"
	"github.com/menta2k/image-composer/pkg/upload"
)

// Handler serves one composition session over HTTP.
type Handler struct {
	session *imagecomposer.Session
}

// NewHandler creates a handler for s.
func NewHandler(s *imagecomposer.Session) *Handler {
	return &Handler{session: s}
}

// statusOf maps session errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, catalog.ErrUnknown):
		return http.StatusNotFound
	case errors.Is(err, assets.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, imagecomposer.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, cropper.ErrTooSmall):
		return http.StatusUnprocessableEntity
	case errors.Is(err, upload.ErrInvalidState), errors.Is(err, imagecomposer.ErrStale):
		return http.StatusConflict
	case errors.Is(err, imagecomposer.ErrAssetLoad):
		return http.StatusBadGateway
	case errors.Is(err, compositor.ErrAssetNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// Health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": imagecomposer.GetVersion()})
}

// Catalog lists styles, preset backgrounds and borders.
func (h *Handler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"styles":      catalog.Styles(),
		"backgrounds": catalog.Backgrounds(),
		"borders":     catalog.Borders(),
	})
}

func (h *Handler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

func (h *Handler) SetStyle(c *gin.Context) {
	var req struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.session.SetStyle(c.Request.Context(), req.ID); err != nil {
		// the style switch itself stands even when an asset or the upload failed
		c.JSON(statusOf(err), gin.H{"error": err.Error(), "state": h.session.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}

func (h *Handler) SetBackground(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.session.SetBackground(c.Request.Context(), req.Name); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}

func (h *Handler) SetBorder(c *gin.Context) {
	var req struct {
		Color string `json:"color" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.session.SetBorder(c.Request.Context(), req.Color); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}

func (h *Handler) SetText(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.session.SetText(req.Text)
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Upload accepts a multipart "file" field.
func (h *Handler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, fmt.Errorf("file field: %w", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		abort(c, err)
		return
	}
	defer f.Close()

	info, err := h.session.Upload(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error(), "upload": info})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) UploadInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.UploadInfo())
}

// Drag moves the upload by {"dx", "dy"} preview pixels.
func (h *Handler) Drag(c *gin.Context) {
	var req struct {
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	info, err := h.session.Drag(req.DX, req.DY)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// MoveTo places the upload at {"x", "y"}.
func (h *Handler) MoveTo(c *gin.Context) {
	var pos cropper.Point
	if err := c.ShouldBindJSON(&pos); err != nil {
		badRequest(c, err)
		return
	}
	info, err := h.session.MoveTo(pos)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) Commit(c *gin.Context) {
	info, err := h.session.Commit()
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) Preview(c *gin.Context) {
	img, err := h.session.Preview()
	if err != nil {
		abort(c, err)
		return
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		abort(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (h *Handler) Cropped(c *gin.Context) {
	data := h.session.CroppedPNG()
	if data == nil {
		abort(c, fmt.Errorf("no committed crop: %w", upload.ErrInvalidState))
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (h *Handler) Render(c *gin.Context) {
	data, err := h.session.ExportBytes(exporter.PNG)
	if err != nil {
		abort(c, err)
		return
	}
	c.Data(http.StatusOK, exporter.PNG.ContentType(), data)
}

// Export downloads the composition as png, jpg, webp or pdf.
func (h *Handler) Export(c *gin.Context) {
	format, err := exporter.ParseFormat(c.Param("format"))
	if err != nil {
		badRequest(c, err)
		return
	}
	data, snap, err := h.session.ExportSnapshot(format)
	if err != nil {
		abort(c, err)
		return
	}

	name := utils.OutputFilename("", snap.Style.ID, snap.Text, string(format))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, format.ContentType(), data)
}
