package cmd

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"keboola.io/project-restore/internal/app"
	"keboola.io/project-restore/internal/config"
	"keboola.io/project-restore/internal/logging"
)

var (
	dataDir string
	debug   bool

	// appFs is the filesystem the configuration is read from and written to.
	appFs = afero.NewOsFs()
	// factories build the collaborators of the restore; tests replace them.
	factories = app.DefaultFactories(version)
)

var rootCmd = &cobra.Command{
	Use:   "project-restore",
	Short: "Restore a Keboola project from a backup",
	Long: `Restores a Keboola project from a backup stored in AWS S3, Azure Blob Storage
or Google Cloud Storage.

The configuration is read from config.json in the data directory. The target
project and its token come from the KBC_URL and KBC_TOKEN environment variables.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd.OutOrStdout(), cmd.ErrOrStderr())

		env, cfg, err := loadInputs()
		if err != nil {
			return err
		}
		return app.New(&cfg.Parameters, env, log, factories).Run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory with config.json (defaults to KBC_DATADIR or /data)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

// Execute runs the command line with the process arguments.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func newLogger(out, errOut io.Writer) *logrus.Logger {
	level := logrus.InfoLevel
	if debug {
		level = logrus.DebugLevel
	}
	return logging.New(out, errOut, level)
}

func loadInputs() (*config.Environment, *config.Config, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(appFs, env.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return env, cfg, nil
}

func loadEnvironment() (*config.Environment, error) {
	env, err := config.LoadEnvironment()
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		env.DataDir = dataDir
	}
	return env, nil
}
