package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
	required                             bool
	isBool                               bool
	// bindViper names the config key the flag overrides.
	bindViper string
}

var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file (default is $XDG_CONFIG_HOME/remind/config.yaml)",
	}
	quietFlag = commandLineFlag{
		name:      "quiet",
		shorthand: "q",
		usage:     "suppress log output",
		isBool:    true,
	}
	debugFlag = commandLineFlag{
		name:      "debug",
		usage:     "enable debug logging",
		isBool:    true,
		bindViper: "debug",
	}
	atFlag = commandLineFlag{
		name:      "at",
		shorthand: "a",
		usage:     `due time, e.g. "2026-03-10 09:00", "15:30", "+30m" or "in 2h"`,
	}
	cronFlag = commandLineFlag{
		name:  "cron",
		usage: `recurrence rule, e.g. "0 9 * * 1-5" or "@daily"`,
	}
	tzFlag = commandLineFlag{
		name:  "tz",
		usage: "time zone of the recurrence rule (default is the configured zone)",
	}
	priorityFlag = commandLineFlag{
		name:         "priority",
		shorthand:    "p",
		defaultValue: "medium",
		usage:        "priority: high, medium or low",
	}
	noNotifyFlag = commandLineFlag{
		name:   "no-notify",
		usage:  "keep the schedule but send no notifications",
		isBool: true,
	}
	pendingFlag = commandLineFlag{
		name:   "pending",
		usage:  "show only reminders that will still fire, soonest first",
		isBool: true,
	}
	jsonFlag = commandLineFlag{
		name:   "json",
		usage:  "print JSON instead of a table",
		isBool: true,
	}
	untilFlag = commandLineFlag{
		name:  "until",
		usage: `snooze until this time, e.g. "18:00" or "2026-03-10 09:00"`,
	}
	forFlag = commandLineFlag{
		name:  "for",
		usage: `snooze for this long, e.g. "10m", "2h" or "1d"`,
	}
	countFlag = commandLineFlag{
		name:         "count",
		shorthand:    "n",
		defaultValue: "5",
		usage:        "number of occurrences to show",
	}
	logFileFlag = commandLineFlag{
		name:      "log-file",
		usage:     "also write daemon logs to this file",
		bindViper: "paths.logFile",
	}
	backgroundFlag = commandLineFlag{
		name:      "background",
		shorthand: "b",
		usage:     "detach from the terminal and log to a file",
		isBool:    true,
	}
	portFlag = commandLineFlag{
		name:      "port",
		usage:     "health endpoint port on 127.0.0.1 (0 disables it)",
		bindViper: "scheduler.port",
	}
)

func withUsage(flag commandLineFlag, usage string) commandLineFlag {
	flag.usage = usage
	return flag
}

// initFlags registers flags plus the ones every command shares.
func initFlags(cmd *cobra.Command, additionalFlags ...commandLineFlag) {
	flags := append([]commandLineFlag{configFlag, quietFlag, debugFlag}, additionalFlags...)
	for _, flag := range flags {
		if flag.isBool {
			cmd.Flags().BoolP(flag.name, flag.shorthand, false, flag.usage)
		} else {
			cmd.Flags().StringP(flag.name, flag.shorthand, flag.defaultValue, flag.usage)
		}
		if flag.required {
			if err := cmd.MarkFlagRequired(flag.name); err != nil {
				fmt.Printf("failed to mark flag %s as required: %v\n", flag.name, err)
			}
		}
	}
}

// bindFlags binds flags that override config keys to v. Only flags set on
// the command line take precedence over the config file.
func bindFlags(v *viper.Viper, cmd *cobra.Command, additionalFlags ...commandLineFlag) error {
	flags := append([]commandLineFlag{debugFlag}, additionalFlags...)
	for _, flag := range flags {
		if flag.bindViper == "" {
			continue
		}
		f := cmd.Flags().Lookup(flag.name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(flag.bindViper, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.name, err)
		}
	}
	return nil
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	f := flags.Lookup(name)
	return f != nil && f.Changed
}
