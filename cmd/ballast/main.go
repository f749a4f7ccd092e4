package main

/*
	Definition for the main ballast command. ballast validates a
	declarative storage manifest against the live system and prints
	the resolved device stacks and the planned installer actions. It
	never mutates the host.
*/

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/ballast-os/ballast/errdefs"
)

var (
	version = "devel"

	// manifestPath is the manifest to validate.
	manifestPath string

	// Probe command overrides, so fixtures can substitute for the
	// real utilities.
	blkidCmd string
	lvsCmd   string
	pvsCmd   string

	outputFormat string
	verbose      bool

	cmdRoot = &cobra.Command{
		Use:   "ballast [command]",
		Short: "Declarative Arch-style installer core",
		Long: `ballast block-device validator and stack planner
Validates a storage manifest against the probed host state and plans
the installer actions without touching the system.`,
		PersistentPreRun: preRun,
	}

	cmdVersion = &cobra.Command{
		Use:   "version",
		Short: "Print the version number and exit.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s version %s\n", cmd.Root().Name(), version)
		},
	}

	cmdValidate = &cobra.Command{
		Use:   "validate",
		Short: "Validate the manifest and print the resolved device stacks",
		RunE:  runValidate,
	}

	cmdPlan = &cobra.Command{
		Use:   "plan",
		Short: "Validate the manifest and print the staged installer actions",
		RunE:  runPlan,
	}
)

func init() {
	cmdRoot.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "manifest.yaml", "path to the storage manifest")
	cmdRoot.PersistentFlags().StringVar(&blkidCmd, "blkid", "blkid", "blkid executable to probe with")
	cmdRoot.PersistentFlags().StringVar(&lvsCmd, "lvs", "lvs", "lvs executable to probe with")
	cmdRoot.PersistentFlags().StringVar(&pvsCmd, "pvs", "pvs", "pvs executable to probe with")
	cmdRoot.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "output format, yaml or json")
	cmdRoot.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	cmdRoot.AddCommand(cmdVersion)
	cmdRoot.AddCommand(cmdValidate)
	cmdRoot.AddCommand(cmdPlan)
}

func preRun(cmd *cobra.Command, args []string) {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		switch {
		case errdefs.IsBadManifest(err):
			log.WithError(err).Error("manifest rejected")
		case errdefs.IsNoSuchDevice(err):
			log.WithError(err).Error("device missing from host")
		case errdefs.IsCommandFailed(err):
			log.WithError(err).Error("host probing failed")
		case errdefs.IsInternalBug(err):
			log.WithError(err).Error("internal error, please report this")
		default:
			log.WithError(err).Error("ballast failed")
		}
		os.Exit(1)
	}
}

func emit(v interface{}) error {
	var (
		out []byte
		err error
	)
	switch outputFormat {
	case "json":
		out, err = json.MarshalIndent(v, "", "  ")
	case "yaml":
		out, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
