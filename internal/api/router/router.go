package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"certhub/config"
	"certhub/internal/api/handler"
	"certhub/internal/api/middleware"
	"certhub/pkg/jwt"
	"certhub/pkg/metrics"
	"certhub/pkg/redis"
)

// Setup builds the gin engine.
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(cfg.Server.CORS))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes, map[string]int64{
		"/api/v1/certificates/bulk/import": handler.ImportUploadLimit,
	}))

	r.GET("/health", h.Health.Health)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	const (
		admin    = jwt.RoleAdmin
		reviewer = jwt.RoleReviewer
		trainer  = jwt.RoleTrainer
		system   = jwt.RoleSystem
	)

	v1 := r.Group("/api/v1")
	{
		// public
		v1.GET("/verify/:number",
			middleware.PublicCORS(),
			middleware.RateLimit(rdb, cfg.Server.VerifyLimit.Requests, cfg.Server.VerifyLimit.Window),
			h.Verify.Verify)

		authorized := v1.Group("")
		authorized.Use(middleware.NoStore(), middleware.JWTAuth(jwtMgr, rdb))
		{
			requests := authorized.Group("/certificate-requests")
			{
				requests.GET("", middleware.RoleAuth(admin, reviewer), h.Approval.ListRequests)
				requests.POST("", middleware.RoleAuth(admin, trainer, system), h.Approval.CreateRequest)
				requests.GET("/:id", middleware.RoleAuth(admin, reviewer), h.Approval.GetRequest)
				requests.POST("/:id/process", middleware.RoleAuth(admin, reviewer), h.Approval.ProcessRequest)
			}

			certificates := authorized.Group("/certificates")
			{
				certificates.POST("", middleware.RoleAuth(admin), h.Certificate.Generate)
				certificates.POST("/bulk", middleware.RoleAuth(admin), h.Certificate.BulkGenerate)
				certificates.POST("/bulk/import", middleware.RoleAuth(admin), h.Certificate.BulkImport)
				certificates.GET("", middleware.RoleAuth(admin, reviewer), h.Certificate.ListCertificates)
				certificates.GET("/:id", middleware.RoleAuth(admin, reviewer), h.Certificate.GetCertificate)
				certificates.GET("/:id/download", middleware.RoleAuth(admin, reviewer), h.Certificate.Download)
				certificates.POST("/:id/send", middleware.RoleAuth(admin, reviewer), h.Certificate.Send)
				certificates.POST("/:id/revoke", middleware.RoleAuth(admin), h.Certificate.Revoke)
				certificates.POST("/:id/reissue", middleware.RoleAuth(admin), h.Certificate.Reissue)
			}

			templates := authorized.Group("/certificate-templates")
			{
				templates.GET("", middleware.RoleAuth(admin, reviewer), h.Template.ListTemplates)
				templates.GET("/:id", middleware.RoleAuth(admin, reviewer), h.Template.GetTemplate)
				templates.POST("", middleware.RoleAuth(admin), h.Template.CreateTemplate)
				templates.PUT("/:id", middleware.RoleAuth(admin), h.Template.UpdateTemplate)
				templates.DELETE("/:id", middleware.RoleAuth(admin), h.Template.DeleteTemplate)
			}
		}
	}

	return r
}
