package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/screen-crawler/pkg/core"
	"github.com/devicelab-dev/screen-crawler/pkg/hashing"
	"github.com/devicelab-dev/screen-crawler/pkg/similarity"
)

var observeCommand = &cli.Command{
	Name:  "observe",
	Usage: "Add a captured screen to the graph, or find the known screen it matches",
	Description: `Hash a screenshot and UI hierarchy dump and look them up in the screen graph.
A state that matches no known screen exactly or by similarity becomes a new screen.

Examples:
  screen-crawler observe --screenshot shot.png --xml window.xml
  screen-crawler --threshold -1 observe --xml window.xml`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "screenshot",
			Usage: "PNG screenshot file",
		},
		&cli.StringFlag{
			Name:  "xml",
			Usage: "UI hierarchy XML file",
		},
	},
	Action: runObserve,
}

var recordCommand = &cli.Command{
	Name:  "record",
	Usage: "Append a transition to the graph",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "from",
			Usage:    "Composite hash of the source screen",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "action",
			Usage:    "Action description",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "to",
			Usage: "Composite hash of the destination screen (default: unknown)",
		},
	},
	Action: runRecord,
}

var statsCommand = &cli.Command{
	Name:   "stats",
	Usage:  "Print the number of persisted screens and transitions",
	Action: runStats,
}

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "Print the distinct actions already taken from a screen",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "hash",
			Usage: "Composite hash of the screen",
		},
		&cli.Int64Flag{
			Name:  "id",
			Usage: "Screen id",
		},
	},
	Action: runHistory,
}

var resetCommand = &cli.Command{
	Name:   "reset",
	Usage:  "Delete all screens and transitions",
	Action: runReset,
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided capture file
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func runObserve(c *cli.Context) error {
	if c.String("screenshot") == "" && c.String("xml") == "" {
		return fmt.Errorf("--screenshot or --xml is required")
	}
	shot, err := readInput(c.String("screenshot"))
	if err != nil {
		return err
	}
	xml, err := readInput(c.String("xml"))
	if err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	h := hashing.New(e.log)
	xmlHash := h.XMLHash(string(xml))
	visualHash := h.VisualHash(shot)

	// Computed before AddOrGet so a new screen does not match itself.
	nearest, dist, hasNearest := similarity.Nearest(visualHash, e.repo.KnownScreens())

	sc, isNew := e.repo.AddOrGet(xmlHash, visualHash, shot)
	printScreen(c.App.Writer, sc, isNew, e.repo.ActionHistory(sc.CompositeHash))
	if hasNearest {
		fmt.Fprintf(c.App.Writer, "nearest:    screen %d (distance %d)\n", nearest.ScreenID, dist)
	}
	return nil
}

func printScreen(w io.Writer, sc *core.Screen, isNew bool, history []string) {
	state := "known"
	if isNew {
		state = "new"
	}
	fmt.Fprintf(w, "screen:     %d (%s)\n", sc.ID, state)
	fmt.Fprintf(w, "hash:       %s\n", sc.CompositeHash)
	fmt.Fprintf(w, "screenshot: %s\n", sc.ScreenshotPath)
	if len(history) == 0 {
		fmt.Fprintln(w, "history:    none")
		return
	}
	fmt.Fprintln(w, "history:")
	for _, a := range history {
		fmt.Fprintf(w, "  - %s\n", a)
	}
}

func runRecord(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	before := e.repo.TotalTransitions()
	e.repo.AddTransition(c.String("from"), c.String("action"), c.String("to"))
	if after := e.repo.TotalTransitions(); after <= before {
		return fmt.Errorf("transition not recorded")
	}
	fmt.Fprintln(c.App.Writer, "recorded")
	return nil
}

func runStats(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	fmt.Fprintf(c.App.Writer, "screens:     %d\n", e.repo.TotalScreens())
	fmt.Fprintf(c.App.Writer, "transitions: %d\n", e.repo.TotalTransitions())
	return nil
}

func runHistory(c *cli.Context) error {
	if !c.IsSet("hash") && !c.IsSet("id") {
		return fmt.Errorf("--hash or --id is required")
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	var (
		sc *core.Screen
		ok bool
	)
	if c.IsSet("hash") {
		sc, ok = e.repo.Screen(c.String("hash"))
	} else {
		sc, ok = e.repo.ScreenByID(c.Int64("id"))
	}
	if !ok {
		return fmt.Errorf("unknown screen")
	}

	fmt.Fprintf(c.App.Writer, "screen %d\n", sc.ID)
	for _, a := range e.repo.ActionHistory(sc.CompositeHash) {
		fmt.Fprintf(c.App.Writer, "  - %s\n", a)
	}
	return nil
}

func runReset(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.store.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "reset")
	return nil
}
