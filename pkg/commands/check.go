package commands

import (
	"context"
	"errors"

	"github.com/acorn-io/dns-converge/pkg/converge"
	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"k8s.io/apimachinery/pkg/util/wait"
)

type checkerCommand struct{}

func (s *checkerCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalContext()

	log := logrus.WithField("command", "check")

	m, cfg, closer, err := newMonitor(ctx, c, log)
	if err != nil {
		return err
	}
	defer closer()

	if !c.Bool("watch") {
		resp, err := checkOnce(ctx, m)
		if err != nil {
			return err
		}
		return printResponse(c.App.Writer, resp)
	}

	err = wait.PollImmediateUntil(cfg.PollInterval, func() (bool, error) {
		resp, err := checkOnce(ctx, m)
		if err != nil {
			// a failed poll is retried on the next tick
			log.WithError(err).Error("dns check failed")
			return false, nil
		}
		if err := printResponse(c.App.Writer, resp); err != nil {
			return false, err
		}
		return resp.Status == model.StatusReady, nil
	}, ctx.Done())
	if errors.Is(err, wait.ErrWaitTimeout) {
		log.Info("stopped before dns was ready")
		return nil
	}
	return err
}

// checkOnce re-runs Check straight away while it asks to be repeated.
func checkOnce(ctx context.Context, m *converge.Monitor) (*model.ConvergenceResponse, error) {
	for {
		resp, err := m.Check(ctx)
		if err != nil || resp.Status != model.StatusRepeat {
			return resp, err
		}
	}
}

func checkCommand() *cli.Command {
	cmd := checkerCommand{}

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "watch",
			Usage: "Keep polling at the configured interval until every record resolves",
		},
	}

	return &cli.Command{
		Name:   "check",
		Usage:  "check that the declared records resolve, provisioning them when they do not",
		Action: cmd.Execute,
		Flags:  append(flags, monitorFlags()...),
		Before: Before,
	}
}
