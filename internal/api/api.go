package api

import (
	"context"
	"github.com/coverhub/geostaging/internal/api/controller"
	"github.com/coverhub/geostaging/internal/pkg/logger"
	"github.com/coverhub/geostaging/internal/pkg/opguard"
	"github.com/coverhub/geostaging/internal/pkg/store"
	"github.com/coverhub/geostaging/internal/service/commit"
	"github.com/coverhub/geostaging/internal/service/deliverycheck"
	"github.com/coverhub/geostaging/internal/service/delta"
	"github.com/coverhub/geostaging/internal/service/discovery"
	"github.com/coverhub/geostaging/internal/service/provider"
	"github.com/coverhub/geostaging/internal/service/staging"
	"github.com/coverhub/geostaging/internal/service/status"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type APIService struct {
	router *echo.Echo
}

func (svc *APIService) Serve(addr string) {
	logger.Fatal(context.Background(), svc.router.Start(addr))
}

func (svc *APIService) Shutdown(ctx context.Context) error {
	return svc.router.Shutdown(ctx)
}

func NewAPIService(store store.Store, providerClient provider.Client, providerBaseURL string) (*APIService, error) {
	svc := &APIService{router: echo.New()}

	svc.router.Validator = NewValidator()
	svc.router.Binder = NewBinder()
	svc.router.Use(middleware.Logger())
	svc.router.HTTPErrorHandler = httpErrorHandler
	svc.router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{echo.GET, echo.PUT, echo.POST, echo.DELETE},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))

	guard := opguard.New()

	cntrl := controller.NewController(
		delta.NewService(store, providerClient, guard),
		discovery.NewService(store, providerClient, guard, providerBaseURL),
		staging.NewService(store),
		commit.NewService(store, guard),
		status.NewService(store),
		deliverycheck.NewService(store),
	)

	api := svc.router.Group("/api/v1")

	pipeline := api.Group("/pipeline")
	pipeline.GET("/status", cntrl.GetPipelineStatus)
	pipeline.GET("/log", cntrl.GetOperationLog)
	pipeline.GET("/operations/:batch_id", cntrl.GetOperationsByBatch)
	pipeline.POST("/delta-check", cntrl.StartDeltaCheck, svc.AdminMiddleware)
	pipeline.POST("/geo-sync", cntrl.StartGeoSync, svc.AdminMiddleware)
	pipeline.POST("/ai-import", cntrl.StartAiImport, svc.AdminMiddleware)
	pipeline.POST("/commit", cntrl.StartCommit, svc.AdminMiddleware)
	pipeline.GET("/commit/:batch_id", cntrl.GetCommitProgress)

	stagingGroup := api.Group("/staging")
	stagingGroup.GET("/list", cntrl.ListStagingCities)
	stagingGroup.POST("/create", cntrl.CreateStagingCity, svc.AdminMiddleware)
	stagingGroup.POST("/:id/approve", cntrl.ApproveStagingCity, svc.AdminMiddleware)
	stagingGroup.POST("/:id/reject", cntrl.RejectStagingCity, svc.AdminMiddleware)

	delivery := api.Group("/delivery")
	delivery.GET("/check", cntrl.CheckDelivery)

	return svc, nil
}
