package cli

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/devicelab-dev/screen-crawler/pkg/action"
	"github.com/devicelab-dev/screen-crawler/pkg/crawl"
	"github.com/devicelab-dev/screen-crawler/pkg/device"
	uia2driver "github.com/devicelab-dev/screen-crawler/pkg/driver/uiautomator2"
	"github.com/devicelab-dev/screen-crawler/pkg/uiautomator2"
)

var actCommand = &cli.Command{
	Name:  "act",
	Usage: "Execute an action descriptor on a device and record the transition",
	Description: `Capture the current screen, execute the action through a running
UIAutomator2 server, capture the resulting screen and record the transition.

The action is a JSON (or YAML) descriptor, for example:
  {"type": "click", "element": "id=com.app:id/login"}
  {"type": "input", "element": "id=com.app:id/email", "text": "user@example.com"}
  {"type": "tap_coords", "coordinates": [540, 1200]}
  {"type": "scroll_down"}

Examples:
  screen-crawler act --port 6790 --action '{"type":"back"}'
  screen-crawler act --port 6790 --serial emulator-5554 --forward 6790 --action-file next.json`,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:     "port",
			Usage:    "Local port of the UIAutomator2 server",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "serial",
			Usage: "Device serial for adb input commands (default: auto-detect)",
		},
		&cli.IntFlag{
			Name:  "forward",
			Usage: "Forward the local port to this device port before connecting",
		},
		&cli.StringFlag{
			Name:  "session",
			Usage: "Existing UIAutomator2 session id (default: create one)",
		},
		&cli.StringFlag{
			Name:  "action",
			Usage: "Action descriptor",
		},
		&cli.StringFlag{
			Name:  "action-file",
			Usage: "File containing the action descriptor",
		},
		&cli.DurationFlag{
			Name:  "settle",
			Usage: "Wait after the action before capturing the result",
			Value: time.Second,
		},
	},
	Action: runAct,
}

func actionDescriptor(c *cli.Context) ([]byte, error) {
	if s := c.String("action"); s != "" {
		return []byte(s), nil
	}
	if path := c.String("action-file"); path != "" {
		return readInput(path)
	}
	return nil, fmt.Errorf("--action or --action-file is required")
}

// connectDevice returns the adb shell used for text injection and swipes.
// Without one, only element and UIAutomator2 gesture tiers work.
func connectDevice(c *cli.Context, log *zap.Logger) (uia2driver.ShellExecutor, error) {
	dev, err := device.New(c.String("serial"))
	if err != nil {
		if c.IsSet("serial") {
			return nil, fmt.Errorf("connect to device: %w", err)
		}
		log.Warn("no adb device, shell fallbacks disabled", zap.Error(err))
		return nil, nil
	}
	if port := c.Int("forward"); port > 0 {
		if err := dev.Forward(c.Int("port"), port); err != nil {
			return nil, fmt.Errorf("forward port: %w", err)
		}
	}
	return dev, nil
}

func runAct(c *cli.Context) error {
	descriptor, err := actionDescriptor(c)
	if err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	shell, err := connectDevice(c, e.log)
	if err != nil {
		return err
	}

	client := uiautomator2.NewClientTCP(c.Int("port"), e.log)
	defer client.Close()
	if id := c.String("session"); id != "" {
		client.UseSession(id)
	} else if err := client.CreateSession(uiautomator2.Capabilities{PlatformName: "Android"}); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	drv := uia2driver.New(client, shell, e.log)
	exec := action.NewExecutor(drv, executorOptions(e.cfg.Executor), e.log)
	sess := crawl.NewSession(e.repo, exec, nil, sessionOptions(e.cfg.Loop), e.log)
	defer sess.Close()

	shot, src, err := drv.Capture()
	if err != nil {
		return err
	}
	before := sess.Observe(shot, src)
	printScreen(c.App.Writer, before.Screen, before.IsNew, before.History)

	req, err := action.Decode(descriptor, drv.Find)
	if err != nil {
		req = action.Invalid{Err: err}
	}
	out := sess.ActDetailed(req)
	if out.Attempts == 0 {
		return fmt.Errorf("action rejected: %s", sess.LastError())
	}
	if out.Success {
		fmt.Fprintf(c.App.Writer, "action:     %s (%s)\n", req.Describe(), out.Tier)
	} else {
		fmt.Fprintf(c.App.Writer, "action:     %s failed after %d attempt(s)\n", req.Describe(), out.Attempts)
	}

	time.Sleep(c.Duration("settle"))
	shot, src, err = drv.Capture()
	if err != nil {
		return err
	}
	after := sess.Observe(shot, src)
	printScreen(c.App.Writer, after.Screen, after.IsNew, after.History)
	if after.Looping {
		fmt.Fprintln(c.App.Writer, "warning:    loop suspected")
	}
	if !out.Success {
		return fmt.Errorf("action failed: %s", sess.LastError())
	}
	return nil
}
