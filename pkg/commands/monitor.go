package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/acorn-io/dns-converge/pkg/config"
	"github.com/acorn-io/dns-converge/pkg/converge"
	"github.com/acorn-io/dns-converge/pkg/db"
	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/acorn-io/dns-converge/pkg/provision"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func monitorFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Keep the learned vm ip in redis instead of the sql database",
			EnvVars: []string{"DNS_CONVERGE_REDIS_ADDR", "REDIS_ADDR"},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			EnvVars: []string{"DNS_CONVERGE_REDIS_PASSWORD", "REDIS_PASSWORD"},
		},
	}
	flags = append(flags, storageFlags()...)
	return append(flags, GlobalFlags()...)
}

// newMonitor wires a Monitor from the config file and storage flags. The
// returned func releases what it opened.
func newMonitor(ctx context.Context, c *cli.Context, log *logrus.Entry) (*converge.Monitor, *config.Config, func(), error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}

	resolver, err := converge.NewDNSResolver(cfg.Nameservers)
	if err != nil {
		return nil, nil, nil, err
	}

	database, err := db.New(ctx, c.String("sql-dialect"), c.String("sql-dsn"), &gorm.Config{
		Logger: db.NewLogger(c.String("log-level")),
	})
	if err != nil {
		return nil, nil, nil, err
	}

	var (
		runtime converge.RuntimeStore = database
		closer                        = func() {}
	)
	if addr := c.String("redis-addr"); addr != "" {
		redisRuntime, err := db.NewRedisRuntime(ctx, addr, c.String("redis-password"), cfg.Hostname)
		if err != nil {
			return nil, nil, nil, err
		}
		runtime = redisRuntime
		closer = func() {
			if err := redisRuntime.Close(); err != nil {
				log.WithError(err).Warn("closing redis client")
			}
		}
	}

	m := converge.NewMonitor(log, converge.Config{
		Hostname:   cfg.Hostname,
		InstanceID: cfg.InstanceID,
		ProbePort:  cfg.ProbePort,
		HostsFile:  cfg.HostsFile,
		Records:    cfg.Records,
		Adapters:   cfg.Adapters,
	}, resolver, converge.NewHTTPProber(), runtime, provision.NewOrchestrator(log, nil), database)

	return m, cfg, closer, nil
}

func printResponse(w io.Writer, resp *model.ConvergenceResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp.Namespaced())
}
