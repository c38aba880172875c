// Package cli wires flag parsing to environment variables: every flag can
// also be provided as NARRATOR_<FLAG_NAME>, and unsupported NARRATOR_*
// variables fail loudly instead of being silently ignored.
package cli

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ParseFlagsWithEnvVars parses the flag set, seeding flag values from
// environment variables carrying the given prefix.
func ParseFlagsWithEnvVars(flags *flag.FlagSet, envVarPrefix string) {
	addLogLevelFlag(flags)

	supportedEnvVars := map[string]struct{}{}
	flags.VisitAll(func(f *flag.Flag) {
		envVarName := envVarPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		f.Usage = fmt.Sprintf("%s (%s)", f.Usage, envVarName)
		supportedEnvVars[envVarName] = struct{}{}
		if envVarValue := os.Getenv(envVarName); envVarValue != "" {
			f.DefValue = envVarValue
			err := f.Value.Set(envVarValue)
			if err != nil {
				flags.Usage()
				slog.Error(fmt.Sprintf("invalid environment variable %s value provided: %s", envVarName, err))
				os.Exit(1)
			}
		}
	})

	err := flags.Parse(os.Args[1:])
	if err != nil {
		flags.Usage()
		slog.Error(err.Error())
		os.Exit(1)
	}

	for _, entry := range os.Environ() {
		if strings.HasPrefix(entry, envVarPrefix) {
			kv := strings.SplitN(entry, "=", 2)
			if _, ok := supportedEnvVars[kv[0]]; !ok {
				flags.Usage()
				slog.Error(fmt.Sprintf("unsupported environment variable provided: %s", kv[0]))
				os.Exit(1)
			}
		}
	}
}

func addLogLevelFlag(flags *flag.FlagSet) {
	flags.Var(logLevelFlag("INFO"), "log-level", "set the log level")
}

type logLevelFlag string

func (logLevelFlag) Set(s string) error {
	var level slog.Level

	switch s {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		return fmt.Errorf("unsupported log level %q provided. supported log levels are DEBUG, INFO, WARN, ERROR", s)
	}

	slog.SetLogLoggerLevel(level)

	return nil
}

func (f logLevelFlag) String() string {
	return string(f)
}
