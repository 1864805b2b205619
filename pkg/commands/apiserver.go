package commands

import (
	"time"

	"github.com/acorn-io/dns-converge/pkg/apiserver"
	"github.com/acorn-io/dns-converge/pkg/config"
	"github.com/acorn-io/dns-converge/pkg/db"
	"github.com/acorn-io/dns-converge/pkg/version"
	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

type apiServerCommand struct{}

func (s *apiServerCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalContext()

	log := logrus.WithField("command", "api-server")

	log.Infof("version: %v", version.Get())

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	database, err := db.New(ctx, c.String("sql-dialect"), c.String("sql-dsn"), &gorm.Config{
		Logger: db.NewLogger(c.String("log-level")),
	})
	if err != nil {
		return err
	}

	apiServer := apiserver.NewAPIServer(ctx, log, apiserver.Options{
		Port:          c.Int("port"),
		InstanceID:    cfg.InstanceID,
		Profiles:      cfg.Profiles,
		Database:      database,
		PurgeInterval: c.Duration("purge-interval"),
		ReportMaxAge:  c.Duration("report-max-age"),
	})

	return apiServer.Start()
}

func serverCommand() *cli.Command {
	cmd := apiServerCommand{}

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Port for the HTTP Server Port",
			EnvVars: []string{"DNS_CONVERGE_PORT", "PORT"},
			Value:   config.DefaultProbePort,
		},
		&cli.DurationFlag{
			Name:    "purge-interval",
			Usage:   "How often stored check reports are purged, 0 disables purging",
			EnvVars: []string{"DNS_CONVERGE_PURGE_INTERVAL"},
			Value:   time.Hour,
		},
		&cli.DurationFlag{
			Name:    "report-max-age",
			Usage:   "Age after which stored check reports are purged",
			EnvVars: []string{"DNS_CONVERGE_REPORT_MAX_AGE"},
			Value:   7 * 24 * time.Hour,
		},
	}
	flags = append(flags, storageFlags()...)

	return &cli.Command{
		Name:   "api-server",
		Usage:  "serve the instance id probe, the ensure endpoint and the latest check report",
		Action: cmd.Execute,
		Flags:  append(flags, GlobalFlags()...),
		Before: Before,
	}
}
