package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/remindcli/remind/internal/cmn/config"
	"github.com/remindcli/remind/internal/cmn/logger"
	"github.com/remindcli/remind/internal/cmn/logger/tag"
	"github.com/remindcli/remind/internal/core"
	"github.com/remindcli/remind/internal/persis/filereminder"
)

// Context holds what a command needs to run.
type Context struct {
	context.Context

	Command *cobra.Command
	Flags   []commandLineFlag
	Config  *config.Config
	Quiet   bool
	Store   *filereminder.Store
	// Stdout receives command output. Logs go to stderr.
	Stdout io.Writer

	clock func() time.Time
}

// NewContext loads the configuration, sets up the logger and opens the
// reminder store.
func NewContext(cmd *cobra.Command, flags []commandLineFlag) (*Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}

	v := viper.New()
	if err := bindFlags(v, cmd, flags...); err != nil {
		return nil, err
	}

	var loaderOpts []config.ConfigLoaderOption
	if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(cfgPath))
	}

	cfg, err := config.NewConfigLoader(v, loaderOpts...).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	c := &Context{
		Context: ctx,
		Command: cmd,
		Flags:   flags,
		Config:  cfg,
		Quiet:   quiet,
		Stdout:  cmd.OutOrStdout(),
		clock:   time.Now,
	}
	c.LogToFile(nil)

	for _, w := range cfg.Warnings {
		logger.Warn(c, w)
	}
	if cfg.Paths.ConfigFileUsed != "" {
		logger.Debug(c, "Configuration loaded", tag.Config(cfg.Paths.ConfigFileUsed))
	}

	store, err := filereminder.New(cfg.Paths.StoreFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open reminder store: %w", err)
	}
	c.Store = store

	return c, nil
}

// LogToFile replaces the logger with one that also writes to f.
func (c *Context) LogToFile(f *os.File) {
	opts := []logger.Option{logger.WithConsole(c.Command.ErrOrStderr(), c.Stdout)}
	if c.Config.Core.Debug || os.Getenv("DEBUG") != "" {
		opts = append(opts, logger.WithDebug())
	}
	if c.Quiet {
		opts = append(opts, logger.WithQuiet())
	}
	if c.Config.Core.LogFormat != "" {
		opts = append(opts, logger.WithFormat(c.Config.Core.LogFormat))
	}
	if f != nil {
		opts = append(opts, logger.WithWriter(f))
	}
	c.Context = logger.WithLogger(c.Context, logger.NewLogger(opts...))
}

// Now returns the current time.
func (c *Context) Now() time.Time {
	return c.clock()
}

// Location is the zone due times on the command line are read in.
func (c *Context) Location() *time.Location {
	if c.Config.Core.Location == nil {
		return time.Local
	}
	return c.Config.Core.Location
}

// StringParam retrieves a string flag with surrounding quotes removed.
func (c *Context) StringParam(name string) (string, error) {
	val, err := c.Command.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to get flag %s: %w", name, err)
	}
	return removeQuotes(strings.TrimSpace(val)), nil
}

// BoolParam retrieves a bool flag.
func (c *Context) BoolParam(name string) bool {
	val, _ := c.Command.Flags().GetBool(name)
	return val
}

// Printf writes command output.
func (c *Context) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.Stdout, format, args...)
}

// Update runs fn inside a locked load-mutate-save of the store.
func (c *Context) Update(fn func(*core.ReminderStore) error) error {
	return filereminder.Update(c, c.Store, fn)
}

// NewCommand wires a cobra command to runFunc through a Context.
func NewCommand(cmd *cobra.Command, flags []commandLineFlag, runFunc func(cmd *Context, args []string) error) *cobra.Command {
	initFlags(cmd, flags...)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, err := NewContext(cmd, flags)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Initialization error: %v\n", err)
			return err
		}
		if err := runFunc(ctx, args); err != nil {
			logger.Error(ctx, "Command failed", tag.Error(err))
			return err
		}
		return nil
	}

	return cmd
}

var errInvalidID = errors.New("invalid reminder id")

// parseID parses a reminder id argument.
func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(arg), "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, arg)
	}
	return id, nil
}

func removeQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
