package validate

import (
	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/errdefs"
	"github.com/ballast-os/ballast/manifest"
)

// collectValidFs resolves one declared filesystem into the stack
// store. When the base device tops several resolved paths (an LV
// fanned out over a multi-PV VG), every one of them is extended with
// the same filesystem node.
func collectValidFs(
	fs manifest.Filesystem,
	sysFs map[string]blockdev.Type,
	sysFsReady map[string]blockdev.Type,
	sysLvms map[string]blockdev.Paths,
	valids *blockdev.Paths,
) error {
	msg := "fs validation failed"

	if fsType, ok := sysFs[fs.Device]; ok {
		return errdefs.BadManifest(
			"%s: fs %s base %s was already used as %s",
			msg, fs.FsType, fs.Device, fsType,
		)
	}

	// Creating a filesystem straight over a probed PV would clobber
	// its VG.
	for _, path := range sysLvms[fs.Device] {
		for _, node := range path {
			if node.Type != blockdev.TypeVG {
				continue
			}
			return errdefs.BadManifest(
				"%s: fs %s base %s was already used for vg %s",
				msg, fs.FsType, fs.Device, node.Device,
			)
		}
	}

	fsDev := blockdev.BlockDev{
		Device: fs.Device,
		Type:   blockdev.TypeFs(fs.FsType),
	}

	found := false
	for i := range *valids {
		top, ok := (*valids)[i].Top()
		if !ok {
			continue
		}
		if top.Device != fs.Device {
			continue
		}
		if !top.Type.IsFsBase() {
			return errdefs.BadManifest(
				"%s: fs %s base %s cannot have type %s",
				msg, fs.FsType, fs.Device, top.Type,
			)
		}

		(*valids)[i].Push(fsDev)
		found = true
	}
	if found {
		return nil
	}

	newPath := blockdev.Path{
		{Device: fs.Device, Type: blockdev.TypeUnknown},
		fsDev,
	}

	if _, ok := sysFsReady[fs.Device]; ok {
		valids.Append(newPath)
		delete(sysFsReady, fs.Device)
		return nil
	}

	if !deviceExists(fs.Device) {
		return errdefs.NoSuchDevice(fs.Device)
	}

	valids.Append(newPath)
	return nil
}
