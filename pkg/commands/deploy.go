package commands

import (
	"errors"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"k8s.io/apimachinery/pkg/util/wait"
)

type deployerCommand struct{}

func (s *deployerCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalContext()

	log := logrus.WithField("command", "deploy")

	m, cfg, closer, err := newMonitor(ctx, c, log)
	if err != nil {
		return err
	}
	defer closer()

	resp, err := m.Deploy(ctx)
	if err != nil {
		return err
	}
	if err := printResponse(c.App.Writer, resp); err != nil {
		return err
	}

	if !c.Bool("wait") || resp.Status != model.StatusPending {
		return nil
	}

	log.Infof("waiting for %d records to resolve", len(resp.Declared))
	err = wait.PollImmediateUntil(cfg.PollInterval, func() (bool, error) {
		resp, err := checkOnce(ctx, m)
		if err != nil {
			log.WithError(err).Error("dns check failed")
			return false, nil
		}
		if resp.Status != model.StatusReady {
			return false, nil
		}
		return true, printResponse(c.App.Writer, resp)
	}, ctx.Done())
	if errors.Is(err, wait.ErrWaitTimeout) {
		return errors.New("interrupted before dns was ready")
	}
	return err
}

func deployCommand() *cli.Command {
	cmd := deployerCommand{}

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "wait",
			Usage: "After provisioning, poll until every record resolves",
		},
	}

	return &cli.Command{
		Name:   "deploy",
		Usage:  "provision every declared record that does not resolve yet",
		Action: cmd.Execute,
		Flags:  append(flags, monitorFlags()...),
		Before: Before,
	}
}
