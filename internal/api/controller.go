package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"medical-summary/internal/helper"
	"medical-summary/internal/models"
	"medical-summary/internal/pipeline"
	"medical-summary/internal/storage"
)

const (
	uploadFieldPrefix  = "file-"
	defaultReportLimit = 20
	maxReportLimit     = 100
)

// SummaryService produces a stored report from document locations.
type SummaryService interface {
	Run(ctx context.Context, locations []string) (*models.SummaryResult, error)
}

type ReportLister interface {
	List(ctx context.Context, limit int) ([]models.ReportEntry, error)
}

type SummaryRequest struct {
	FileURLs []string `json:"fileUrls"`
}

type UploadResponse struct {
	FileURLs []string `json:"fileUrls"`
}

// SummaryController serves uploads, summaries and stored files.
type SummaryController struct {
	summaries SummaryService
	store     storage.BlobStore
	reports   ReportLister
	now       func() time.Time
}

func NewSummaryController(summaries SummaryService, store storage.BlobStore, reports ReportLister) *SummaryController {
	return &SummaryController{summaries: summaries, store: store, reports: reports, now: time.Now}
}

// Upload stores every multipart file whose field name starts with "file-"
// and returns their URLs in field order.
func (c *SummaryController) Upload(ctx *gin.Context) {
	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form: " + err.Error()})
		return
	}

	var fields []string
	for field, files := range form.File {
		if strings.HasPrefix(field, uploadFieldPrefix) && len(files) > 0 {
			fields = append(fields, field)
		}
	}
	if len(fields) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No files were uploaded"})
		return
	}
	sortFields(fields)

	now := c.now()
	urls := make([]string, 0, len(fields))
	for i, field := range fields {
		header := form.File[field][0]
		data, err := readFormFile(header)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file " + header.Filename})
			return
		}
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = models.PDFContentType
		}

		_, url, err := storage.StoreUnique(ctx.Request.Context(), c.store, data, contentType, helper.BlobName(models.UploadKind, now, i))
		if err != nil {
			log.Error().Err(err).Str("file", header.Filename).Msg("Error storing upload")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload files"})
			return
		}
		urls = append(urls, url)
	}

	log.Info().Int("files", len(urls)).Str("request_id", ctx.GetString(requestIDKey)).Msg("Stored uploads")
	ctx.JSON(http.StatusOK, UploadResponse{FileURLs: urls})
}

// Summarize runs the pipeline over the posted file URLs.
func (c *SummaryController) Summarize(ctx *gin.Context) {
	var req SummaryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	result, err := c.summaries.Run(ctx.Request.Context(), req.FileURLs)
	switch {
	case errors.Is(err, pipeline.ErrNoDocuments):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No PDF URLs were provided"})
		return
	case err != nil:
		log.Error().Err(err).Str("request_id", ctx.GetString(requestIDKey)).Msg("Summary request failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate summary"})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// Download serves a stored blob as an attachment.
func (c *SummaryController) Download(ctx *gin.Context) {
	name := ctx.Param("name")
	blob, err := c.store.Retrieve(ctx.Request.Context(), name)
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file name"})
		return
	case errors.Is(err, storage.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	case err != nil:
		log.Error().Err(err).Str("name", name).Msg("Error retrieving file")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve file"})
		return
	}

	contentType := blob.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeFor(name)
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	ctx.Data(http.StatusOK, contentType, blob.Data)
}

// ListReports returns the report history, newest first.
func (c *SummaryController) ListReports(ctx *gin.Context) {
	if c.reports == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Report history is not enabled"})
		return
	}

	limit := defaultReportLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, maxReportLimit)
	}

	entries, err := c.reports.List(ctx.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Error listing reports")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reports"})
		return
	}
	if entries == nil {
		entries = []models.ReportEntry{}
	}
	ctx.JSON(http.StatusOK, gin.H{"reports": entries})
}

// sortFields orders "file-2" before "file-10".
func sortFields(fields []string) {
	sort.Slice(fields, func(i, j int) bool {
		if len(fields[i]) != len(fields[j]) {
			return len(fields[i]) < len(fields[j])
		}
		return fields[i] < fields[j]
	})
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
