package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/devicelab-dev/screen-crawler/pkg/action"
	"github.com/devicelab-dev/screen-crawler/pkg/config"
	"github.com/devicelab-dev/screen-crawler/pkg/crawl"
	"github.com/devicelab-dev/screen-crawler/pkg/logger"
	"github.com/devicelab-dev/screen-crawler/pkg/screens"
	"github.com/devicelab-dev/screen-crawler/pkg/store"
)

// env is what every command runs against.
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.SQLite
	repo  *screens.Repository
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(config.GetHome())
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if c.IsSet("db") {
		cfg.Database = c.String("db")
	}
	if c.IsSet("screenshots") {
		cfg.ScreenshotsDir = c.String("screenshots")
	}
	if c.IsSet("threshold") {
		cfg.SimilarityThreshold = c.Int("threshold")
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// setup opens the store and loads the screen graph.
func setup(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	st, err := store.Open(cfg.Database, log)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}

	repo := screens.New(st, screens.Options{
		ScreenshotsDir:      cfg.ScreenshotsDir,
		SimilarityThreshold: cfg.SimilarityThreshold,
	}, log)
	if err := repo.Load(); err != nil {
		st.Close()
		_ = log.Sync()
		return nil, err
	}

	return &env{cfg: cfg, log: log, store: st, repo: repo}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn("close store", zap.Error(err))
	}
	_ = e.log.Sync()
}

// executorOptions maps the executor config section.
func executorOptions(cfg config.ExecutorConfig) action.Options {
	opts := action.DefaultOptions()
	opts.ToastWait = cfg.ToastWait()
	opts.AutoHideKeyboard = cfg.AutoHideKeyboard
	opts.GlobalInputFallback = cfg.GlobalInputFallback
	opts.SwipeDuration = cfg.SwipeDuration()
	opts.FocusDelay = cfg.FocusDelay()
	opts.KeyboardHideDelay = cfg.KeyboardHideDelay()
	return opts
}

// sessionOptions maps the loop config section.
func sessionOptions(cfg config.LoopConfig) crawl.Options {
	return crawl.Options{
		VisitThreshold:  cfg.VisitThreshold,
		RepeatThreshold: cfg.RepeatThreshold,
		WindowSize:      cfg.WindowSize,
	}
}
