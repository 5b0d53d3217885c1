package controller

import (
	"github.com/coverhub/geostaging/internal/service/commit"
	"github.com/coverhub/geostaging/internal/service/deliverycheck"
	"github.com/coverhub/geostaging/internal/service/delta"
	"github.com/coverhub/geostaging/internal/service/discovery"
	"github.com/coverhub/geostaging/internal/service/staging"
	"github.com/coverhub/geostaging/internal/service/status"
)

type Controller struct {
	deltaService     *delta.Service
	discoveryService *discovery.Service
	stagingService   *staging.Service
	commitService    *commit.Service
	statusService    *status.Service
	deliveryService  *deliverycheck.Service
}

func NewController(
	deltaService *delta.Service,
	discoveryService *discovery.Service,
	stagingService *staging.Service,
	commitService *commit.Service,
	statusService *status.Service,
	deliveryService *deliverycheck.Service,
) *Controller {
	return &Controller{
		deltaService:     deltaService,
		discoveryService: discoveryService,
		stagingService:   stagingService,
		commitService:    commitService,
		statusService:    statusService,
		deliveryService:  deliveryService,
	}
}
