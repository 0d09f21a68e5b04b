package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tracklist/internal/config"
	"tracklist/internal/engine"
	"tracklist/internal/logging"
	"tracklist/internal/media"
)

type commandContext struct {
	configFlag    *string
	accountFlag   *string
	mediatypeFlag *string

	engineOptions engine.Options

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, accountFlag, mediatypeFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		accountFlag:   accountFlag,
		mediatypeFlag: mediatypeFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) accounts() (*config.Config, *config.Accounts, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	reg, err := config.LoadAccounts(cfg.AccountsPath())
	if err != nil {
		return nil, nil, err
	}
	return cfg, reg, nil
}

// mediatype picks the flag value, then the one remembered for the account.
// Empty lets the site choose its default.
func (c *commandContext) mediatype(cfg *config.Config, acct media.Account) string {
	if mt := flagValue(c.mediatypeFlag); mt != "" {
		return mt
	}
	uc, err := config.LoadUserConfig(cfg.AccountDir(acct.DirName()))
	if err != nil {
		return ""
	}
	return uc.Mediatype
}

// withEngine opens a session, runs fn and closes the session. The tracker
// stays off; only the track command runs it.
func (c *commandContext) withEngine(cmd *cobra.Command, fn func(context.Context, *engine.Engine) error) error {
	return c.runEngine(cmd, false, fn)
}

func (c *commandContext) runEngine(cmd *cobra.Command, tracking bool, fn func(context.Context, *engine.Engine) error) error {
	cfg, reg, err := c.accounts()
	if err != nil {
		return err
	}
	key, acct, err := reg.Resolve(flagValue(c.accountFlag))
	if err != nil {
		if errors.Is(err, config.ErrUnknownAccount) {
			return fmt.Errorf("%w (add one with `tracklist accounts add`)", err)
		}
		return err
	}

	console := io.Discard
	if tracking {
		console = cmd.ErrOrStderr()
	}
	logger, logPath, err := logging.NewFromConfig(cfg.Logging, cfg.LogDir(), console)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldSessionID, uuid.NewString()))
	logger.Debug("cli session",
		logging.String("command", cmd.CommandPath()),
		logging.String("account_key", key),
		logging.String("log_path", logPath),
	)

	runCfg := *cfg
	runCfg.TrackerEnabled = tracking

	messenger := newStatusMessenger(cmd.ErrOrStderr())
	opts := c.engineOptions
	opts.Logger = logger
	if opts.Messenger == nil {
		opts.Messenger = messenger
	}

	eng, err := engine.New(&runCfg, acct, c.mediatype(cfg, acct), opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := eng.Start(ctx); err != nil {
		return messenger.settle(err)
	}
	runErr := fn(ctx, eng)
	if err := eng.Unload(context.WithoutCancel(ctx)); err != nil && runErr == nil {
		runErr = err
	}
	return messenger.settle(runErr)
}

// reportedError marks a failure the engine already showed as a status line.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }

func (e reportedError) Unwrap() error { return e.err }

func alreadyReported(err error) bool {
	var reported reportedError
	return errors.As(err, &reported)
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func parseID(arg string) (media.ID, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errors.New("item id is required")
	}
	return media.ID(arg), nil
}
