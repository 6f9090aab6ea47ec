package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pugtube/pugtube/internal/api/ingests"
	"github.com/pugtube/pugtube/internal/api/medias"
	"github.com/pugtube/pugtube/internal/api/users"
	"github.com/pugtube/pugtube/pkg/logger"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// dataStore represents the union of all the controller store
	// requirements.
	dataStore interface {
		medias.Store
		users.Store
	}

	// The RestGateway is a thin wrapper around the Echo HTTP router. Its
	// sole responsibility is to create the routes PugTube exposes; the
	// gateway itself is not a design target and holds no logic beyond
	// delegation to the controllers.
	RestGateway struct {
		config           *RestConfig
		ec               *echo.Echo
		ingestController controller
		mediaController  controller
		userController   controller
	}
)

// NewRestGateway constructs the Echo router and populates it with all the
// routes defined by the various controllers. Each controller requires
// access to a data store, which is provided as an argument.
func NewRestGateway(config *RestConfig, ingestService ingests.IngestService, store dataStore) *RestGateway {
	ec := echo.New()
	ec.HidePort = true
	ec.HideBanner = true

	validate := validator.New()
	gateway := &RestGateway{
		config:           config,
		ec:               ec,
		ingestController: ingests.New(ingestService),
		mediaController:  medias.New(store),
		userController:   users.New(validate, store),
	}

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	ingestGroup := ec.Group("/api/pugtube/v1/ingests")
	gateway.ingestController.SetRoutes(ingestGroup)

	mediaGroup := ec.Group("/api/pugtube/v1/media")
	gateway.mediaController.SetRoutes(mediaGroup)

	userGroup := ec.Group("/api/pugtube/v1/users")
	gateway.userController.SetRoutes(userGroup)

	return gateway
}

// Run starts the Echo router, blocking until the provided context is
// cancelled (or the router fails), at which point the server is shut down
// gracefully.
func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil && err != http.ErrServerClosed {
			ctxCancel(err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*10)
	defer shutdownCancel()
	if err := gateway.ec.Shutdown(shutdownCtx); err != nil {
		log.Emit(logger.ERROR, "Failed to gracefully shutdown REST gateway: %s\n", err.Error())
	}

	wg.Wait()
	if cause := context.Cause(ctx); !errors.Is(cause, context.Canceled) {
		return cause
	}

	return nil
}
