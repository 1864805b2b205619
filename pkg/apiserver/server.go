package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/acorn-io/dns-converge/pkg/backend"
	"github.com/acorn-io/dns-converge/pkg/config"
	"github.com/acorn-io/dns-converge/pkg/db"
	"github.com/acorn-io/dns-converge/pkg/version"
	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Port int
	// InstanceID is answered with 204 on POST /.instance-id/{id}.
	InstanceID string
	Profiles   map[string]config.Profile
	// Factory builds adapters for POST /ensure. Defaults to backend.New.
	Factory backend.Factory
	// Database is optional. Without it /v1/status answers 404 and nothing is purged.
	Database      db.Database
	PurgeInterval time.Duration
	ReportMaxAge  time.Duration
}

type apiServer struct {
	ctx  context.Context
	log  *logrus.Entry
	opts Options
}

func NewAPIServer(ctx context.Context, log *logrus.Entry, opts Options) *apiServer {
	if opts.Factory == nil {
		opts.Factory = backend.New
	}
	return &apiServer{
		ctx:  ctx,
		log:  log,
		opts: opts,
	}
}

func (a *apiServer) router() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(loggingMiddleware(a.log))
	h := newHandler(a.log, a.opts)

	// When functioning properly, these routes will return the version of tha app that is running
	router.Path("/").HandlerFunc(h.root)
	router.Path("/healthz").HandlerFunc(h.root)

	// Self-identification: only the server started with this instance id answers 204.
	router.Path("/.instance-id/{id}").Methods("POST").HandlerFunc(h.instanceID)

	// Server side of the generic http adapter. The body names the profile
	// whose token hash the token header is checked against.
	router.Path("/ensure").Methods("POST").Handler(tokenAuthMiddleware(a.opts.Profiles)(http.HandlerFunc(h.ensure)))

	api := router.PathPrefix("/v1").Subrouter()
	api.Path("/status").Methods("GET").HandlerFunc(h.status)

	// Note: this allows not found urls to be logged via the middleware
	// It **HAS** to be defined after all other paths are defined.
	router.NotFoundHandler = router.NewRoute().HandlerFunc(http.NotFound).GetHandler()

	return ghandlers.CORS()(router)
}

func (a *apiServer) Start() error {
	logrus.Infof("Version: %s", version.Get())

	// Below this point is where the server is started and graceful shutdown occurs.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.opts.Port),
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.log.WithField("port", a.opts.Port).Info("starting api server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Fatalf("listen: %s\n", err)
		}
	}()

	if a.opts.Database != nil && a.opts.PurgeInterval > 0 {
		go db.StartPurgerDaemon(a.opts.Database, a.opts.PurgeInterval, a.opts.ReportMaxAge, a.ctx.Done())
	}

	<-a.ctx.Done()

	a.log.Info("shutting down the api server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.log.WithError(err).Error("unable to shutdown the api server gracefully")
		return err
	}

	return nil
}
