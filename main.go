package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hogwarts-cloud/stackctl/config"
	"github.com/hogwarts-cloud/stackctl/internal/applier"
	"github.com/hogwarts-cloud/stackctl/internal/deployer"
	"github.com/hogwarts-cloud/stackctl/internal/inventory"
	"github.com/hogwarts-cloud/stackctl/internal/models"
	"github.com/hogwarts-cloud/stackctl/internal/openstack"
	"github.com/hogwarts-cloud/stackctl/internal/parser"
	"github.com/hogwarts-cloud/stackctl/internal/report"
	"github.com/hogwarts-cloud/stackctl/internal/validator"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	createFlag         = "create"
	deleteFlag         = "delete"
	restartFlag        = "restart"
	generateConfigFlag = "generate-config"

	// outputDir is where generated ssh config and inventory are written.
	outputDir = "."
)

var ErrSomeObjectsFailed = errors.New("some objects failed")

var (
	create         []string
	remove         []string
	restart        []string
	generateConfig string

	settings config.Settings
	v        = viper.New()
	log      = logrus.New()
)

var root = &cobra.Command{
	Use:   "stackctl [--create|--delete|--restart] NAMES...",
	Short: "Create and delete OpenStack networks and servers described in a configuration file",
	Long: `stackctl creates, deletes or restarts the networks and servers described in
the configuration file. NAMES are object names from the file or one of
"all", "servers", "networks". It can also generate ssh config and an Ansible
inventory for the running servers.`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadSettings,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		action, names, ok := selectedAction(cmd, args)
		if !ok && generateConfig == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No operation is specified.")
			fmt.Fprintln(cmd.OutOrStdout(), `Please, use "--create", "--delete", "--restart" or "--generate-config" operation.`)
			fmt.Fprintf(cmd.OutOrStdout(), "Run \"%s --help\" for additional information.\n", cmd.Name())
			return nil
		}

		if generateConfig != "" && !inventory.ValidFormat(generateConfig) {
			return fmt.Errorf("--%s %q: %w", generateConfigFlag, generateConfig, inventory.ErrUnknownFormat)
		}

		document, err := parser.Parse(settings.Config)
		if errors.Is(err, parser.ErrConfigNotFound) {
			return fmt.Errorf(`%w. Please, use the "--config" argument to provide path to the configuration file`, err)
		}
		if err != nil {
			return fmt.Errorf("failed to parse configuration: %w", err)
		}

		if err := validator.Validate(document); err != nil {
			for _, problem := range strings.Split(err.Error(), "\n") {
				log.Warn(problem)
			}
		}

		gateway, err := openstack.New(cmd.Context(), openstack.Config{Cloud: settings.Cloud, Logger: log})
		if err != nil {
			return fmt.Errorf("failed to connect to cloud %q: %w", settings.Cloud, err)
		}

		failed := false

		if ok {
			d := deployer.New(gateway, deployer.Config{
				Document:            document,
				SSHDir:              settings.SSHDir,
				ServerReadyTimeout:  settings.ServerReadyTimeout,
				ServerDeleteTimeout: settings.ServerDeleteTimeout,
				Logger:              log,
			})

			result := applier.New(d, d, document).Apply(cmd.Context(), action, names)
			report.Print(cmd.OutOrStdout(), result)
			failed = result.Failed()
		}

		if generateConfig != "" {
			hosts, err := inventory.DeriveHosts(cmd.Context(), gateway, document, log)
			if err != nil {
				return fmt.Errorf("failed to collect hosts: %w", err)
			}

			paths, err := inventory.Generate(outputDir, generateConfig, hosts, settings.SSHDir)
			if err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}

			report.PrintGenerated(cmd.OutOrStdout(), paths, settings.SSHDir)
		}

		if failed {
			return ErrSomeObjectsFailed
		}

		return nil
	},
}

var validate = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file without contacting the cloud",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		document, err := parser.Parse(settings.Config)
		if err != nil {
			return fmt.Errorf("failed to parse configuration: %w", err)
		}

		if err := validator.Validate(document); err != nil {
			return fmt.Errorf("failed to validate configuration: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d network(s), %d server(s)\n",
			settings.Config, len(document.Networks), len(document.Servers))

		return nil
	},
}

func loadSettings(cmd *cobra.Command, args []string) error {
	var err error
	settings, err = config.Load(v)
	if err != nil {
		return err
	}

	log.SetOutput(cmd.ErrOrStderr())
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if settings.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	log.WithField("settings", fmt.Sprintf("%+v", settings)).Debug("settings loaded")

	return nil
}

// selectedAction returns the action whose flag was given and its names.
// Positional arguments belong to that action.
func selectedAction(cmd *cobra.Command, args []string) (models.Action, []string, bool) {
	for _, candidate := range []struct {
		flag   string
		action models.Action
		names  []string
	}{
		{flag: createFlag, action: models.CreateAction, names: create},
		{flag: deleteFlag, action: models.DeleteAction, names: remove},
		{flag: restartFlag, action: models.RestartAction, names: restart},
	} {
		if cmd.Flags().Changed(candidate.flag) {
			return candidate.action, append(candidate.names, args...), true
		}
	}

	return 0, nil, false
}

func init() {
	root.Flags().StringSliceVar(&create, createFlag, nil, `Create objects by name, or "all", "servers", "networks"`)
	root.Flags().StringSliceVar(&remove, deleteFlag, nil, `Delete objects by name, or "all", "servers", "networks"`)
	root.Flags().StringSliceVar(&restart, restartFlag, nil, `Delete and create again objects by name, or "all", "servers", "networks"`)
	root.MarkFlagsMutuallyExclusive(createFlag, deleteFlag, restartFlag)
	root.Flags().StringVar(&generateConfig, generateConfigFlag, "", `Generate "ssh" config, "ansible" inventory or "all" of them in the current directory`)

	flags := root.PersistentFlags()
	flags.String(config.ConfigKey, parser.DefaultPath, "Path to the configuration file")
	flags.String(config.SSHDirKey, "~/.ssh", "Directory with ssh keys")
	flags.String(config.CloudKey, config.DefaultCloud, "Cloud name in clouds.yaml")
	flags.Duration(config.ServerReadyTimeoutKey, deployer.DefaultServerReadyTimeout, "How long to wait for a server to become active")
	flags.Duration(config.ServerDeleteTimeoutKey, deployer.DefaultServerDeleteTimeout, "How long to wait for a server to be deleted")
	flags.BoolP(config.VerboseKey, "v", false, "Print debug logs")

	for _, key := range []string{
		config.ConfigKey,
		config.SSHDirKey,
		config.CloudKey,
		config.ServerReadyTimeoutKey,
		config.ServerDeleteTimeoutKey,
		config.VerboseKey,
	} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}

	root.AddCommand(validate)
}

func main() {
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
