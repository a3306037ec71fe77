package cmd

import (
	"testing"

	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestApplyIntDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("timeout", 0, "")

	var applied int
	applyIntDefault(flags, "timeout", 15, func(v int) {
		applied = v
	})
	if applied != 15 {
		t.Fatalf("expected setter to receive 15, got %d", applied)
	}

	// When flag already set, setter should not run.
	if err := flags.Set("timeout", "7"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	applied = 0
	applyIntDefault(flags, "timeout", 20, func(v int) {
		applied = v
	})
	if applied != 0 {
		t.Fatalf("setter should not run when flag overridden, got %d", applied)
	}
}

func TestApplyStringSliceDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("nameserver", nil, "")

	source := []string{"1.1.1.1:53"}
	var applied []string
	applyStringSliceDefault(flags, "nameserver", source, func(v []string) {
		applied = v
	})
	if len(applied) != 1 || applied[0] != "1.1.1.1:53" {
		t.Fatalf("expected nameserver default to apply, got %v", applied)
	}
	applied[0] = "mutated"
	if source[0] != "1.1.1.1:53" {
		t.Fatalf("expected setter to receive a copy of the defaults")
	}

	if err := flags.Set("nameserver", "9.9.9.9:53"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	applied = nil
	applyStringSliceDefault(flags, "nameserver", source, func(v []string) {
		applied = v
	})
	if applied != nil {
		t.Fatalf("setter should not run when flag overridden, got %v", applied)
	}
}

func TestSetStringFlagIfUnset(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("operator", "", "")

	setStringFlagIfUnset(flags, "operator", "default-operator")
	if got := flags.Lookup("operator").Value.String(); got != "default-operator" {
		t.Fatalf("expected operator to be default, got %s", got)
	}

	if err := flags.Set("operator", "user-provided"); err != nil {
		t.Fatalf("failed to set operator: %v", err)
	}
	setStringFlagIfUnset(flags, "operator", "new-default")
	if got := flags.Lookup("operator").Value.String(); got != "user-provided" {
		t.Fatalf("expected operator to remain user-provided, got %s", got)
	}
}

func TestDetectOperatorFromEnv(t *testing.T) {
	t.Setenv("USER", "env-user")
	if got := detectOperatorFromEnv(); got != "env-user" {
		t.Fatalf("expected env-user, got %s", got)
	}

	t.Setenv("USER", "")
	t.Setenv("LOGNAME", "log-user")
	if got := detectOperatorFromEnv(); got != "log-user" {
		t.Fatalf("expected log-user, got %s", got)
	}
}

func TestNewCLIConfigDefaults(t *testing.T) {
	cfg := newCLIConfig()
	if cfg.Scan.TimeoutSecs != int(constants.DefaultProbeTimeout.Seconds()) {
		t.Fatalf("unexpected timeout default: %d", cfg.Scan.TimeoutSecs)
	}
	if cfg.Scan.TemplatesPath != "templates/http" {
		t.Fatalf("unexpected templates path: %s", cfg.Scan.TemplatesPath)
	}
	if cfg.Scan.Concurrency != 1 {
		t.Fatalf("expected sequential scans by default, got %d", cfg.Scan.Concurrency)
	}
	if cfg.Scan.RateLimit != 0 {
		t.Fatalf("expected rate limiting disabled by default, got %d", cfg.Scan.RateLimit)
	}
	if cfg.Scan.UserAgent != constants.DefaultUserAgent {
		t.Fatalf("unexpected user agent: %s", cfg.Scan.UserAgent)
	}
}

func TestLoadDefaultOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("defaults.timeout_secs", 30)
	viper.Set("defaults.operator", "config-operator")
	viper.Set("scan.templates", "/opt/templates")
	viper.Set("scan.concurrency", 8)
	viper.Set("scan.rate_limit", 5)
	viper.Set("scan.nameservers", []string{"1.1.1.1:53", " "})
	viper.Set("scan.user_agent", "custom-agent")

	overrides := loadDefaultOverrides()

	if overrides.TimeoutSecs == nil || *overrides.TimeoutSecs != 30 {
		t.Fatalf("expected timeout override 30, got %+v", overrides.TimeoutSecs)
	}
	if overrides.Operator != "config-operator" || !overrides.OperatorOverride {
		t.Fatalf("expected operator override to be set, got %+v", overrides)
	}
	if overrides.TemplatesPath != "/opt/templates" {
		t.Fatalf("expected templates override, got %s", overrides.TemplatesPath)
	}
	if overrides.Concurrency == nil || *overrides.Concurrency != 8 {
		t.Fatalf("expected concurrency override 8, got %+v", overrides.Concurrency)
	}
	if overrides.RateLimit == nil || *overrides.RateLimit != 5 {
		t.Fatalf("expected rate limit override 5, got %+v", overrides.RateLimit)
	}
	if len(overrides.Nameservers) != 1 || overrides.Nameservers[0] != "1.1.1.1:53" {
		t.Fatalf("expected blank nameservers to be dropped, got %v", overrides.Nameservers)
	}
	if overrides.UserAgent != "custom-agent" {
		t.Fatalf("expected user agent override, got %s", overrides.UserAgent)
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	originalTemplates := templatesPath
	t.Cleanup(func() {
		viper.Reset()
		*cliConfig = *newCLIConfig()
		templatesPath = originalTemplates
	})

	*cliConfig = *newCLIConfig()

	viper.Set("defaults.timeout_secs", 20)
	viper.Set("defaults.operator", "cfg-operator")
	viper.Set("scan.templates", "/srv/templates")
	viper.Set("scan.concurrency", 4)

	// Reset flag state to simulate untouched CLI flags.
	for _, name := range []string{"timeout", "templates", "concurrency"} {
		if flag := scanCmd.Flags().Lookup(name); flag != nil {
			flag.Changed = false
		}
	}
	if flag := templatesCmd.Flags().Lookup("templates"); flag != nil {
		flag.Changed = false
	}

	testCmd := &cobra.Command{Use: "root"}
	testCmd.Flags().String("operator", "", "")

	applyConfigDefaults(testCmd)

	if cliConfig.Defaults.TimeoutSecs != 20 || cliConfig.Scan.TimeoutSecs != 20 {
		t.Fatalf("expected timeout defaults to update to 20, got %d/%d", cliConfig.Defaults.TimeoutSecs, cliConfig.Scan.TimeoutSecs)
	}
	if cliConfig.Scan.TemplatesPath != "/srv/templates" || templatesPath != "/srv/templates" {
		t.Fatalf("expected templates path from config, got %s/%s", cliConfig.Scan.TemplatesPath, templatesPath)
	}
	if cliConfig.Scan.Concurrency != 4 {
		t.Fatalf("expected concurrency 4, got %d", cliConfig.Scan.Concurrency)
	}

	if got := testCmd.Flags().Lookup("operator").Value.String(); got != "cfg-operator" {
		t.Fatalf("expected operator flag to be set by defaults, got %s", got)
	}
}

func TestApplyConfigDefaultsRespectsFlags(t *testing.T) {
	t.Cleanup(func() {
		viper.Reset()
		*cliConfig = *newCLIConfig()
		if flag := scanCmd.Flags().Lookup("concurrency"); flag != nil {
			flag.Changed = false
		}
	})

	*cliConfig = *newCLIConfig()
	if err := scanCmd.Flags().Set("concurrency", "9"); err != nil {
		t.Fatalf("failed to set concurrency: %v", err)
	}
	viper.Set("scan.concurrency", 2)

	applyConfigDefaults(&cobra.Command{Use: "root"})

	if cliConfig.Scan.Concurrency != 9 {
		t.Fatalf("expected explicit flag to win, got %d", cliConfig.Scan.Concurrency)
	}
}
