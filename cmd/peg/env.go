package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "peg"

// checkEnvironmentVariables sets every flag not given on the command line
// from PEG_<FLAG> for the root command or PEG_<COMMAND>_<FLAG> otherwise.
func checkEnvironmentVariables(command *cobra.Command) error {
	var errs []string
	v := viper.New()
	v.AutomaticEnv()
	if command.Name() == envPrefix {
		v.SetEnvPrefix(envPrefix)
	} else {
		v.SetEnvPrefix(fmt.Sprintf("%s_%s", envPrefix, command.Name()))
	}
	command.Flags().VisitAll(func(f *pflag.Flag) {
		name := strings.ReplaceAll(f.Name, "-", "_")
		if !f.Changed && v.IsSet(name) {
			if err := command.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(name))); err != nil {
				errs = append(errs, err.Error())
			}
		}
	})

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("error mapping environment variables to command flags: %s", strings.Join(errs, "; "))
}
