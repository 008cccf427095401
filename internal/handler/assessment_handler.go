package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readiness/internal/ingest"
	"github.com/xxxsen/readiness/internal/model"
	"github.com/xxxsen/readiness/internal/pkg/errcode"
	"github.com/xxxsen/readiness/internal/pkg/response"
	"github.com/xxxsen/readiness/internal/report"
	"github.com/xxxsen/readiness/internal/service"
)

const (
	formFiles   = "files"
	formOrgName = "organisation_name"
	formContext = "additional_context"
)

type AssessmentAPI interface {
	CreateSession(ctx context.Context, req service.CreateRequest) (string, error)
	GetStatus(ctx context.Context, id string) (*service.StatusView, error)
	GetReport(ctx context.Context, id string) (*model.AssessmentReport, error)
	Cancel(ctx context.Context, id string) error
	Evict(ctx context.Context, id string) error
}

type AssessmentHandler struct {
	assessments   AssessmentAPI
	maxUploadSize int64
}

func NewAssessmentHandler(assessments AssessmentAPI, maxUploadSize int64) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments, maxUploadSize: maxUploadSize}
}

func (h *AssessmentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "multipart form required")
		return
	}
	headers := form.File[formFiles]
	if len(headers) == 0 {
		response.Error(c, errcode.ErrInvalidFile, "at least one file is required")
		return
	}
	var total int64
	inputs := make([]ingest.Input, 0, len(headers))
	for _, fh := range headers {
		total += fh.Size
		if h.maxUploadSize > 0 && total > h.maxUploadSize {
			response.Error(c, errcode.ErrTooLarge, "upload too large (max "+formatUploadLimit(h.maxUploadSize)+")")
			return
		}
		opened, err := fh.Open()
		if err != nil {
			response.Error(c, errcode.ErrInvalidFile, "failed to open file")
			return
		}
		data, err := io.ReadAll(opened)
		_ = opened.Close()
		if err != nil {
			response.Error(c, errcode.ErrUploadFailed, "failed to read file")
			return
		}
		inputs = append(inputs, ingest.Input{
			Name: fh.Filename,
			Type: fh.Header.Get("Content-Type"),
			Data: data,
		})
	}

	id, err := h.assessments.CreateSession(c.Request.Context(), service.CreateRequest{
		OrganisationName: c.PostForm(formOrgName),
		Context:          c.PostForm(formContext),
		Files:            inputs,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	logutil.GetLogger(c.Request.Context()).Info("assessment session created",
		zap.String("session_id", id), zap.Int("files", len(inputs)))
	response.Success(c, gin.H{
		"session_id":     id,
		"status":         model.StatusQueued,
		"files_received": len(inputs),
	})
}

func (h *AssessmentHandler) Status(c *gin.Context) {
	view, err := h.assessments.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

func (h *AssessmentHandler) ReportJSON(c *gin.Context) {
	rpt, err := h.assessments.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, rpt)
}

func (h *AssessmentHandler) ReportPDF(c *gin.Context) {
	rpt, err := h.assessments.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	data, err := report.RenderPDF(rpt)
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Error("render pdf failed",
			zap.String("report_id", rpt.ReportID), zap.Error(err))
		response.Error(c, errcode.ErrRenderFailed, "failed to render report")
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(report.FileName(rpt, "pdf")))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *AssessmentHandler) Cancel(c *gin.Context) {
	if err := h.assessments.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"session_id": c.Param("id"), "status": model.StatusCancelled})
}

func (h *AssessmentHandler) Delete(c *gin.Context) {
	if err := h.assessments.Evict(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
