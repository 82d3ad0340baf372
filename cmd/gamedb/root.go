package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/autom8ter/gamedb"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/autom8ter/gamedb/util"
)

const envPrefix = "GAMEDB"

// cli holds the settings shared by every command
type cli struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	cmd := &cobra.Command{
		Use:           "gamedb",
		Short:         "gamedb inspects and edits the records of a game server's document store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&c.configFile, "config", "c", "", "path to a config file (json, yaml, toml or env)")
	flags.String("connection", "", `backend connection string, ex: "JSON ./data" or "Mongo mongodb://localhost:27017 game"`)
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Int("max-pending-jobs", gamedb.DefaultMaxPendingJobs, "commit jobs queued before commits block")
	_ = c.v.BindPFlag("connection", flags.Lookup("connection"))
	_ = c.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("max_pending_jobs", flags.Lookup("max-pending-jobs"))

	cmd.AddCommand(
		c.idsCmd(),
		c.getCmd(),
		c.setCmd(),
		c.insertCmd(),
		c.deleteCmd(),
		c.copyCmd(),
		kindsCmd(),
	)
	return cmd
}

// load reads GAMEDB_* environment variables and the optional config file. Flags take precedence over both.
func (c *cli) load() error {
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	if c.configFile == "" {
		return nil
	}
	c.v.SetConfigFile(c.configFile)
	if err := c.v.ReadInConfig(); err != nil {
		return errors.Wrap(err, errors.Validation, "failed to read config file %s", c.configFile)
	}
	return nil
}

func (c *cli) config() (gamedb.Config, error) {
	var cfg gamedb.Config
	if err := util.Decode(c.v.AllSettings(), &cfg); err != nil {
		return cfg, errors.Wrap(err, errors.Validation, "invalid configuration")
	}
	return cfg, nil
}

func (c *cli) open(ctx context.Context) (*gamedb.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return gamedb.Open(ctx, cfg)
}

// withStore opens the configured store, runs fn and closes the store
func (c *cli) withStore(ctx context.Context, fn func(s *gamedb.Store) error) error {
	s, err := c.open(ctx)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		_ = s.Close(ctx)
		return err
	}
	return s.Close(ctx)
}

func parseID(arg string) (model.ID, error) {
	id, err := model.ParseID(arg)
	if err != nil {
		return 0, errors.Wrap(err, errors.Validation, "invalid record id %q", arg)
	}
	return id, nil
}
