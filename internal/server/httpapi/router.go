// Package httpapi is the REST gateway of the document store.
package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/dentdocs/internal/logging"
	"github.com/dmitrijs2005/dentdocs/internal/server/models"
	"github.com/dmitrijs2005/dentdocs/internal/server/services"
)

// Documents is the document service as seen by the gateway.
type Documents interface {
	Reserve(ctx context.Context, ownerID, fileName, contentType string) (*models.Document, string, error)
	Confirm(ctx context.Context, ownerID, fileName, objectKey string) (*models.Document, error)
	List(ctx context.Context, ownerID string, yield func(*models.Document) error) error
	SweepOrphans(ctx context.Context, olderThan time.Duration) (*services.SweepResult, error)
}

type handler struct {
	documents Documents
	logger    logging.Logger
}

// NewRouter wires the gateway routes:
//
//	GET  /health
//	GET  /metrics
//	POST /api/v1/uploads
//	POST /api/v1/uploads/confirm
//	GET  /api/v1/patients/:ownerId/documents
//	POST /api/v1/admin/orphans/sweep   (manager)
func NewRouter(ds Documents, secretKey string, logger logging.Logger, metrics *Metrics) *gin.Engine {
	h := &handler{documents: ds, logger: logger}

	r := gin.New()
	r.Use(Recovery(logger), RequestLogger(logger), metrics.Middleware())

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1", JWTAuth([]byte(secretKey)))
	{
		v1.POST("/uploads", h.reserve)
		v1.POST("/uploads/confirm", h.confirm)
		v1.GET("/patients/:ownerId/documents", h.listDocuments)

		admin := v1.Group("/admin", ManagerOnly())
		admin.POST("/orphans/sweep", h.sweepOrphans)
	}

	return r
}
