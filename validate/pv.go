package validate

import (
	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/errdefs"
)

// collectValidPV resolves one declared PV into the stack store.
func collectValidPV(
	pvPath string,
	sysFs map[string]blockdev.Type,
	sysFsReady map[string]blockdev.Type,
	sysLvms map[string]blockdev.Paths,
	valids *blockdev.Paths,
) error {
	msg := "lvm pv validation failed"

	if fsType, ok := sysFs[pvPath]; ok {
		return errdefs.BadManifest(
			"%s: pv %s base was already used as %s",
			msg, pvPath, fsType,
		)
	}

	// A probed PV already claimed by some VG cannot be re-created.
	for _, path := range sysLvms[pvPath] {
		for _, node := range path {
			if node.Type != blockdev.TypeVG {
				continue
			}
			return errdefs.BadManifest(
				"%s: pv %s was already used for other vg %s",
				msg, pvPath, node.Device,
			)
		}
	}

	// Find the PV base among the tops of already-resolved stacks.
	for i := range *valids {
		top, ok := (*valids)[i].Top()
		if !ok {
			continue
		}
		if top.Device != pvPath {
			continue
		}

		if top.Type == blockdev.TypePV {
			return errdefs.BadManifest("%s: duplicate pv %s in manifest", msg, pvPath)
		}
		if !top.Type.IsPVBase() {
			return errdefs.BadManifest(
				"%s: pv %s base cannot have type %s",
				msg, pvPath, top.Type,
			)
		}

		(*valids)[i].Push(blockdev.BlockDev{Device: pvPath, Type: blockdev.TypePV})
		return nil
	}

	newPath := blockdev.Path{
		{Device: pvPath, Type: blockdev.TypeUnknown},
		{Device: pvPath, Type: blockdev.TypePV},
	}

	if _, ok := sysFsReady[pvPath]; ok {
		valids.Append(newPath)
		delete(sysFsReady, pvPath)
		return nil
	}

	if !deviceExists(pvPath) {
		return errdefs.NoSuchDevice(pvPath)
	}

	valids.Append(newPath)
	return nil
}
