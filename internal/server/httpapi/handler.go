package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/dentdocs/internal/api"
	"github.com/dmitrijs2005/dentdocs/internal/server/models"
)

func (h *handler) health(c *gin.Context) {
	Success(c, http.StatusOK, api.PingResponse{Status: "ok"})
}

func (h *handler) reserve(c *gin.Context) {
	var req api.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, api.CodeValidation, "malformed request body")
		return
	}

	doc, uploadURL, err := h.documents.Reserve(c.Request.Context(), req.OwnerID, req.FileName, req.ContentType)
	if err != nil {
		h.abortWithError(c, "reserve", err)
		return
	}
	Success(c, http.StatusCreated, api.ReserveResponse{UploadURL: uploadURL, ObjectKey: doc.ObjectKey})
}

func (h *handler) confirm(c *gin.Context) {
	var req api.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, api.CodeValidation, "malformed request body")
		return
	}

	doc, err := h.documents.Confirm(c.Request.Context(), req.OwnerID, req.FileName, req.ObjectKey)
	if err != nil {
		h.abortWithError(c, "confirm", err)
		return
	}
	Success(c, http.StatusOK, doc.ToAPI())
}

func (h *handler) sweepOrphans(c *gin.Context) {
	var req api.SweepOrphansRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, api.CodeValidation, "malformed request body")
		return
	}

	res, err := h.documents.SweepOrphans(c.Request.Context(), time.Duration(req.OlderThanSeconds)*time.Second)
	if err != nil {
		h.abortWithError(c, "sweep orphans", err)
		return
	}
	Success(c, http.StatusOK, api.SweepOrphansResponse{
		Scanned: res.Scanned,
		Deleted: res.Deleted,
		Expired: res.Expired,
		Failed:  res.Failed,
	})
}

var (
	listPrefix = []byte(`{"success":true,"data":[`)
	listSuffix = []byte(`]}`)
)

// listDocuments streams the envelope element by element. Errors before the
// first document produce the usual error envelope; later errors truncate the
// body so clients fail to decode it instead of seeing a short list.
func (h *handler) listDocuments(c *gin.Context) {
	ctx := c.Request.Context()
	written := 0

	err := h.documents.List(ctx, c.Param("ownerId"), func(d *models.Document) error {
		b, err := json.Marshal(d.ToAPI())
		if err != nil {
			return err
		}
		if written == 0 {
			c.Header("Content-Type", "application/json; charset=utf-8")
			c.Status(http.StatusOK)
			if _, err := c.Writer.Write(listPrefix); err != nil {
				return err
			}
		} else if _, err := c.Writer.Write([]byte{','}); err != nil {
			return err
		}
		if _, err := c.Writer.Write(b); err != nil {
			return err
		}
		written++
		c.Writer.Flush()
		return nil
	})

	if err != nil {
		if written == 0 {
			h.abortWithError(c, "list documents", err)
			return
		}
		h.logger.Warn(ctx, "list documents interrupted", "written", written, "error", err)
		_ = c.Error(err)
		c.Abort()
		return
	}

	if written == 0 {
		Success(c, http.StatusOK, []api.Document{})
		return
	}
	_, _ = c.Writer.Write(listSuffix)
}
