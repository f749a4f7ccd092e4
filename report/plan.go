package report

import (
	shellquote "github.com/kballard/go-shellquote"

	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/defaults"
	"github.com/ballast-os/ballast/errdefs"
	"github.com/ballast-os/ballast/hooks"
	"github.com/ballast-os/ballast/manifest"
)

// Plan derives the staged installer actions from a manifest that
// already passed validation. The storage stage follows the same
// dependency order validation ran in, so replaying the actions
// top-down builds every stack bottom-up.
func Plan(m *manifest.Manifest, v *ValidationReport) (*StageActions, error) {
	s := &StageActions{}

	for _, disk := range m.Disks {
		s.Mountpoints = append(s.Mountpoints, ActionMountpoint{
			Action: ActionCreatePartitionTable,
			Device: disk.Device,
			Table:  string(disk.Table),
		})
		for i, part := range disk.Partitions {
			number := part.Number
			if number == 0 {
				number = i + 1
			}
			s.Mountpoints = append(s.Mountpoints, ActionMountpoint{
				Action: ActionCreatePartition,
				Device: disk.Device,
				Number: number,
				Size:   part.Size,
			})
		}
	}

	lvDevs := map[string]bool{}
	for _, lvm := range m.Lvms() {
		for _, lv := range lvm.Lvs {
			lvDevs[lv.DevicePath()] = true
		}
	}
	planLukses := func(onLv bool) {
		for _, luks := range m.Lukses() {
			if lvDevs[luks.Device] == onLv {
				s.Mountpoints = append(s.Mountpoints, ActionMountpoint{
					Action: ActionCreateDmLuks,
					Device: luks.Device,
				})
			}
		}
	}

	planLukses(false)
	for _, lvm := range m.Lvms() {
		for _, pv := range lvm.Pvs {
			s.Mountpoints = append(s.Mountpoints, ActionMountpoint{
				Action: ActionCreateLvmPv,
				Device: pv,
			})
		}
	}
	for _, lvm := range m.Lvms() {
		for _, vg := range lvm.Vgs {
			s.Mountpoints = append(s.Mountpoints, ActionMountpoint{
				Action: ActionCreateLvmVg,
				Vg:     vg.Name,
				Pvs:    vg.Pvs,
			})
		}
		for _, lv := range lvm.Lvs {
			s.Mountpoints = append(s.Mountpoints, ActionMountpoint{
				Action: ActionCreateLvmLv,
				Vg:     lv.Vg,
				Lv:     lv.Name,
				Size:   lv.Size,
			})
		}
	}
	planLukses(true)

	fses := append([]manifest.Filesystem{m.Rootfs}, m.Filesystems...)
	for _, swapDev := range m.Swap {
		fses = append(fses, manifest.Filesystem{Device: swapDev, FsType: "swap"})
	}
	for _, fs := range fses {
		s.Mountpoints = append(s.Mountpoints, ActionMountpoint{
			Action:     ActionCreateFs,
			Device:     fs.Device,
			FsType:     fs.FsType,
			FsOpts:     fs.FsOpts,
			Mountpoint: fs.Mountpoint,
		})
	}

	location := m.Location
	if location == "" {
		location = defaults.Location()
	}
	s.Mountpoints = append(s.Mountpoints, ActionMountpoint{
		Action:     ActionMountFs,
		Device:     m.Rootfs.Device,
		Mountpoint: location,
		MntOpts:    m.Rootfs.MntOpts,
	})
	for _, fs := range m.Filesystems {
		if fs.Mountpoint == "" {
			continue
		}
		s.Mountpoints = append(s.Mountpoints, ActionMountpoint{
			Action:     ActionMountFs,
			Device:     fs.Device,
			Mountpoint: location + fs.Mountpoint,
			MntOpts:    fs.MntOpts,
		})
	}

	s.Bootstrap = append(s.Bootstrap, ActionBootstrap{Action: ActionInstallBase})
	if len(m.Pacstraps) > 0 {
		s.Bootstrap = append(s.Bootstrap, ActionBootstrap{
			Action:   ActionInstallPackages,
			Packages: m.Pacstraps,
		})
	}

	hostname := m.Hostname
	if hostname == "" {
		hostname = defaults.Hostname
	}
	timezone := m.Timezone
	if timezone == "" {
		timezone = defaults.Timezone
	}
	s.Routines = append(s.Routines,
		ActionRoutine{Action: ActionSetHostname, Value: hostname},
		ActionRoutine{Action: ActionGenFstab},
		ActionRoutine{Action: ActionLocaleGen, Value: defaults.LocaleGen},
		ActionRoutine{Action: ActionLocaleConf, Value: defaults.LocaleConf},
		ActionRoutine{Action: ActionLinkTimezone, Value: timezone},
	)
	if line := mkinitcpioHooks(m, v); line != "" {
		s.Routines = append(s.Routines, ActionRoutine{
			Action: ActionMkinitcpio,
			Value:  line,
		})
	}

	for _, cmd := range m.Chroot {
		action, err := userCmd(cmd)
		if err != nil {
			return nil, err
		}
		s.ChrootUser = append(s.ChrootUser, action)
	}
	for _, cmd := range m.Postinstall {
		action, err := userCmd(cmd)
		if err != nil {
			return nil, err
		}
		s.PostInstallUser = append(s.PostInstallUser, action)
	}

	return s, nil
}

func userCmd(cmd string) (ActionUserCmd, error) {
	argv, err := shellquote.Split(cmd)
	if err != nil {
		return ActionUserCmd{}, errdefs.BadManifest("unparsable command %q: %v", cmd, err)
	}
	return ActionUserCmd{Cmd: cmd, Argv: argv}, nil
}

// mkinitcpioHooks picks the initramfs HOOKS line the root stack
// requires, from the stack whose top is the root filesystem.
func mkinitcpioHooks(m *manifest.Manifest, v *ValidationReport) string {
	rootTop := blockdev.BlockDev{
		Device: m.Rootfs.Device,
		Type:   blockdev.TypeFs(m.Rootfs.FsType),
	}

	lvAt, luksAt := -1, -1
	for _, path := range v.BlockDevs {
		top, ok := path.Top()
		if !ok || top != rootTop {
			continue
		}
		for i, node := range path {
			switch node.Type {
			case blockdev.TypeLV:
				lvAt = i
			case blockdev.TypeLuks:
				luksAt = i
			}
		}
		break
	}

	switch {
	case lvAt >= 0 && luksAt >= 0 && luksAt > lvAt:
		return hooks.MkinitcpioLuksOnLvmRoot
	case lvAt >= 0 && luksAt >= 0:
		return hooks.MkinitcpioLvmOnLuksRoot
	case luksAt >= 0:
		return hooks.MkinitcpioLuksRoot
	case lvAt >= 0:
		return hooks.MkinitcpioLvmRoot
	}
	return ""
}
