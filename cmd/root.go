package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/khanhnv2901/seca-scan/internal/application"
	"github.com/khanhnv2901/seca-scan/internal/scanner"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "SECA"

var (
	cfgFile    string
	envFile    string
	operator   string
	resultsDir string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "seca-scan",
	Short:         "Template-driven HTTP/SSL/DNS scanner (for authorized testing only)",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}

		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".seca-scan")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix(envPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if cfgFile != "" || !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}

		applyConfigDefaults(cmd)

		dir, err := resolveResultsDir()
		if err != nil {
			return err
		}
		resultsDir = dir

		// init logger
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if operator == "" {
			operator = cliConfig.Defaults.Operator
		}
		if operator == "" {
			return fmt.Errorf("operator identity is required (use --operator or set USER env)")
		}

		engine := &scanner.Scanner{Logger: l.Named("scanner")}
		services, err := application.NewContainer(resultsDir, engine, l)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}

		storeAppContext(cmd, &AppContext{
			Logger:     l.Sugar(),
			Operator:   operator,
			ResultsDir: resultsDir,
			Config:     cliConfig,
			Scanner:    engine,
			Services:   services,
		})

		l.Debug("initialized",
			zap.String("operator", operator),
			zap.String("results_dir", resultsDir),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil && appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", colorError("✗"), err)
		os.Exit(1)
	}
}

// loadEnvFile loads KEY=VALUE pairs into the environment. A missing default
// .env file is ignored; an explicitly requested one must exist.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func resolveResultsDir() (string, error) {
	dir := viper.GetString("results_dir")
	if dir == "" {
		var err error
		if dir, err = getResultsDir(); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(dir, constants.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	// Make final resultsDir absolute (for clarity in logs)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return dir, nil
}

// newLogger writes structured logs to stderr so stdout stays parseable.
func newLogger(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seca-scan.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default is ./.env when present)")
	rootCmd.PersistentFlags().StringVarP(&operator, "operator", "o", "", "operator name (or set via USER env)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
}
