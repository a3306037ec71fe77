package cmd

import (
	"os"
	"strings"

	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultTemplatesPath = "templates/http"
	defaultConcurrency   = 1
)

var defaultTimeoutSeconds = int(constants.DefaultProbeTimeout.Seconds())

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Defaults DefaultValues
	Scan     ScanRuntimeConfig
}

// DefaultValues represent operator-level defaults, typically derived from env/config.
type DefaultValues struct {
	TimeoutSecs int
	Operator    string
}

// ScanRuntimeConfig consolidates flag-driven settings for the scan command.
type ScanRuntimeConfig struct {
	TemplatesPath    string
	Tags             []string
	Concurrency      int
	RateLimit        int
	TimeoutSecs      int
	SpecTimeoutSecs  int
	Nameservers      []string
	UserAgent        string
	SkipTLSVerify    bool
	ProgressEnabled  bool
	TelemetryEnabled bool
	JSONOutput       bool
	MetricsAddr      string
}

type defaultOverrides struct {
	TimeoutSecs      *int
	TelemetryEnabled *bool
	Operator         string
	OperatorOverride bool
	TemplatesPath    string
	Concurrency      *int
	RateLimit        *int
	Nameservers      []string
	UserAgent        string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Defaults: DefaultValues{
			TimeoutSecs: defaultTimeoutSeconds,
			Operator:    detectOperatorFromEnv(),
		},
		Scan: ScanRuntimeConfig{
			TemplatesPath: defaultTemplatesPath,
			Concurrency:   defaultConcurrency,
			RateLimit:     0,
			TimeoutSecs:   defaultTimeoutSeconds,
			Nameservers:   []string{},
			UserAgent:     constants.DefaultUserAgent,
		},
	}
}

func detectOperatorFromEnv() string {
	if env := os.Getenv("USER"); env != "" {
		return env
	}
	if env := os.Getenv("LOGNAME"); env != "" {
		return env
	}
	return ""
}

func loadDefaultOverrides() defaultOverrides {
	overrides := defaultOverrides{}

	if viper.IsSet("defaults.timeout_secs") {
		val := viper.GetInt("defaults.timeout_secs")
		overrides.TimeoutSecs = &val
	}

	if viper.IsSet("defaults.telemetry") {
		val := viper.GetBool("defaults.telemetry")
		overrides.TelemetryEnabled = &val
	}

	if viper.IsSet("defaults.operator") {
		overrides.Operator = viper.GetString("defaults.operator")
		overrides.OperatorOverride = true
	}

	if viper.IsSet("scan.templates") {
		overrides.TemplatesPath = viper.GetString("scan.templates")
	}

	if viper.IsSet("scan.concurrency") {
		val := viper.GetInt("scan.concurrency")
		overrides.Concurrency = &val
	}

	if viper.IsSet("scan.rate_limit") {
		val := viper.GetInt("scan.rate_limit")
		overrides.RateLimit = &val
	}

	if viper.IsSet("scan.nameservers") {
		for _, ns := range viper.GetStringSlice("scan.nameservers") {
			if ns = strings.TrimSpace(ns); ns != "" {
				overrides.Nameservers = append(overrides.Nameservers, ns)
			}
		}
	}

	if viper.IsSet("scan.user_agent") {
		overrides.UserAgent = viper.GetString("scan.user_agent")
	}

	return overrides
}

// applyConfigDefaults merges config file defaults into the runtime config when the user
// did not explicitly override the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadDefaultOverrides()

	if overrides.OperatorOverride && overrides.Operator != "" {
		cliConfig.Defaults.Operator = overrides.Operator
		setStringFlagIfUnset(cmd.Flags(), "operator", overrides.Operator)
	}

	scanFlags := scanCmd.Flags()

	if overrides.TimeoutSecs != nil {
		applyIntDefault(scanFlags, "timeout", *overrides.TimeoutSecs, func(v int) {
			cliConfig.Defaults.TimeoutSecs = v
			cliConfig.Scan.TimeoutSecs = v
		})
	}

	if overrides.TelemetryEnabled != nil {
		applyBoolDefault(scanFlags, "telemetry", *overrides.TelemetryEnabled, func(v bool) {
			cliConfig.Scan.TelemetryEnabled = v
		})
	}

	if overrides.TemplatesPath != "" {
		applyStringDefault(scanFlags, "templates", overrides.TemplatesPath, func(v string) {
			cliConfig.Scan.TemplatesPath = v
		})
		applyStringDefault(templatesCmd.Flags(), "templates", overrides.TemplatesPath, func(v string) {
			templatesPath = v
		})
	}

	if overrides.Concurrency != nil {
		applyIntDefault(scanFlags, "concurrency", *overrides.Concurrency, func(v int) {
			cliConfig.Scan.Concurrency = v
		})
	}

	if overrides.RateLimit != nil {
		applyIntDefault(scanFlags, "rate-limit", *overrides.RateLimit, func(v int) {
			cliConfig.Scan.RateLimit = v
		})
	}

	if len(overrides.Nameservers) > 0 {
		applyStringSliceDefault(scanFlags, "nameserver", overrides.Nameservers, func(v []string) {
			cliConfig.Scan.Nameservers = v
		})
	}

	if overrides.UserAgent != "" {
		applyStringDefault(scanFlags, "user-agent", overrides.UserAgent, func(v string) {
			cliConfig.Scan.UserAgent = v
		})
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringSliceDefault(flags *pflag.FlagSet, name string, value []string, setter func([]string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(append([]string(nil), value...))
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}
