package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dl-alexandre/dbxmirror/internal/config"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Show and edit the dbxmirror configuration file. Environment variables (DBXMIRROR_*) and flags still override it at run time.",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.out.WriteSuccess(a.traceID, "config.show", configView{a.cfg}, nil)
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configPath()
			if err != nil {
				return err
			}
			return a.out.WriteSuccess(a.traceID, "config.path", pathView(path), nil)
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  fmt.Sprintf("Set a configuration value in the file. Keys: %v", config.Keys()),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configPath()
			if err != nil {
				return err
			}
			cfg, err := config.ReadFile(path)
			if err != nil {
				return invalidArgument(err.Error())
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return invalidArgument(err.Error())
			}
			if err := cfg.Save(path); err != nil {
				return utils.LocalIOError("write", path, err)
			}
			a.out.Status("Configuration updated: %s = %s", args[0], args[1])
			return a.out.WriteSuccess(a.traceID, "config.set", configView{cfg}, nil)
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset the configuration file to defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configPath()
			if err != nil {
				return err
			}
			cfg := config.DefaultConfig()
			if err := cfg.Save(path); err != nil {
				return utils.LocalIOError("write", path, err)
			}
			a.out.Status("Configuration reset to defaults")
			return a.out.WriteSuccess(a.traceID, "config.reset", configView{cfg}, nil)
		},
	}

	cmd.AddCommand(show, pathCmd, set, reset)
	return cmd
}

func (a *app) configPath() (string, error) {
	if a.flags.Config != "" {
		return a.flags.Config, nil
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return "", utils.LocalIOError("locate config", "", err)
	}
	return path, nil
}

// configView renders a Config as a key/value table; JSON output uses the
// Config's own field names
type configView struct {
	*config.Config
}

func (v configView) AsTableRenderer() types.TableRenderer {
	c := v.Config
	return keyValueTable{
		{"defaultProfile", c.DefaultProfile},
		{"defaultOutputFormat", string(c.DefaultOutputFormat)},
		{"backend", c.Backend},
		{"bucket", c.Bucket},
		{"concurrency", fmt.Sprint(c.Concurrency)},
		{"chunkSize", fmt.Sprint(c.ChunkSize)},
		{"exclude", fmt.Sprint(c.Exclude)},
		{"maxRetries", fmt.Sprint(c.MaxRetries)},
		{"retryBaseDelay", fmt.Sprint(c.RetryBaseDelay)},
		{"requestTimeout", fmt.Sprint(c.RequestTimeout)},
		{"logLevel", c.LogLevel},
		{"colorOutput", fmt.Sprint(c.ColorOutput)},
	}
}

type keyValueTable [][2]string

func (t keyValueTable) Headers() []string { return []string{"Key", "Value"} }

func (t keyValueTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, kv := range t {
		rows[i] = []string{kv[0], kv[1]}
	}
	return rows
}

func (t keyValueTable) EmptyMessage() string { return "" }

type pathView string

func (p pathView) String() string { return string(p) }

func (p pathView) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"path": string(p)})
}
