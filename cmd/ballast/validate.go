package main

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ballast-os/ballast/defaults"
	"github.com/ballast-os/ballast/manifest"
	"github.com/ballast-os/ballast/probe"
	"github.com/ballast-os/ballast/report"
	"github.com/ballast-os/ballast/validate"
)

func runValidate(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	validation, _, err := validateManifest()
	if err != nil {
		return err
	}

	log.Infof("manifest ok: %d device stacks resolved", len(validation.BlockDevs))
	return emit(validation)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	started := time.Now()
	validation, m, err := validateManifest()
	if err != nil {
		return err
	}

	summary, err := report.Plan(m, validation)
	if err != nil {
		return err
	}

	location := m.Location
	if location == "" {
		location = defaults.Location()
	}
	return emit(report.New(location, summary, time.Since(started)))
}

func validateManifest() (*report.ValidationReport, *manifest.Manifest, error) {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, nil, err
	}

	prober := &probe.Prober{
		Blkid: blkidCmd,
		Lvs:   lvsCmd,
		Pvs:   pvsCmd,
	}
	snap, err := prober.Scan()
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("probed: %d fs, %d fs-ready, %d pvs",
		len(snap.SysFs), len(snap.SysFsReady), len(snap.SysLvms))

	validation, err := validate.Run(m, snap)
	if err != nil {
		return nil, nil, err
	}
	return validation, m, nil
}
