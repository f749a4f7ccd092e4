package validate

import (
	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/errdefs"
	"github.com/ballast-os/ballast/manifest"
)

// collectValidLuks resolves one LUKS declaration into the stack store.
//
// A LUKS container sits on exactly one device, but when that device is
// an LV whose VG spans several PVs, the probed LVM stacks contribute
// one path per PV; the LUKS node is appended to a clone of each, and
// each consumed probed path is cleared so later validators see the LV
// as used exactly once.
func collectValidLuks(
	luks manifest.Luks,
	sysFs map[string]blockdev.Type,
	sysFsReady map[string]blockdev.Type,
	sysLvms map[string]blockdev.Paths,
	valids *blockdev.Paths,
) error {
	msg := "dm luks validation failed"

	basePath := luks.Device
	mapperPath := luks.MapperPath()

	if deviceExists(mapperPath) {
		return errdefs.BadManifest("%s: device %s already exists", msg, mapperPath)
	}

	if fsType, ok := sysFs[basePath]; ok {
		return errdefs.BadManifest(
			"%s: luks %s base %s was already in use as %s",
			msg, luks.Name, basePath, fsType,
		)
	}

	luksDev := blockdev.BlockDev{Device: mapperPath, Type: blockdev.TypeLuks}

	// Look for the base among the probed LVM stacks first.
	foundVg, err := findLuksBaseVg(msg, basePath, sysLvms)
	if err != nil {
		return err
	}

	if foundVg != nil {
		// Fan out: clone and extend every probed path that ends at
		// our LV under the same VG, one per member PV.
		for _, paths := range sysLvms {
			for i := range paths {
				top, ok := paths[i].Top()
				if !ok {
					continue
				}
				if top.Device != basePath {
					continue
				}

				vg, err := vgBelowTop(msg, paths[i])
				if err != nil {
					return err
				}
				if vg.Device != foundVg.Device {
					continue
				}

				resolved := paths[i].Clone()
				resolved.Push(luksDev)
				valids.Append(resolved)
				paths[i] = blockdev.Path{}
			}
		}
		return nil
	}

	// The base may be a stack the manifest itself produced; a manifest
	// LV on a multi-PV VG tops several paths and all of them extend.
	found := false
	for i := range *valids {
		top, ok := (*valids)[i].Top()
		if !ok {
			continue
		}
		if top.Device != basePath {
			continue
		}
		if !top.Type.IsLuksBase() {
			return errdefs.BadManifest(
				"%s: luks %s base %s cannot have type %s",
				msg, luks.Name, basePath, top.Type,
			)
		}

		(*valids)[i].Push(luksDev)
		found = true
	}
	if found {
		return nil
	}

	newPath := blockdev.Path{
		{Device: basePath, Type: blockdev.TypeUnknown},
		luksDev,
	}

	if _, ok := sysFsReady[basePath]; ok {
		valids.Append(newPath)
		delete(sysFsReady, basePath)
		return nil
	}

	if !deviceExists(basePath) {
		return errdefs.NoSuchDevice(basePath)
	}

	valids.Append(newPath)
	return nil
}

// findLuksBaseVg scans the probed LVM stacks for an LV at basePath and
// returns its VG, or nil when the base is not a probed LV.
func findLuksBaseVg(msg, basePath string, sysLvms map[string]blockdev.Paths) (*blockdev.BlockDev, error) {
	for lvmBase, paths := range sysLvms {
		for _, path := range paths {
			top, ok := path.Top()
			if !ok {
				continue
			}
			if top.Device != basePath {
				continue
			}

			if !top.Type.IsLuksBase() {
				return nil, errdefs.BadManifest(
					"%s: luks base %s (itself an LVM device from %s) cannot have type %s",
					msg, basePath, lvmBase, top.Type,
				)
			}

			vg, err := vgBelowTop(msg, path)
			if err != nil {
				return nil, err
			}
			return &vg, nil
		}
	}
	return nil, nil
}

// vgBelowTop returns the node directly below the top of path (the
// second from the end), which the layering rules require to be a VG
// when the top is an LV.
func vgBelowTop(msg string, path blockdev.Path) (blockdev.BlockDev, error) {
	if len(path) < 2 {
		return blockdev.BlockDev{}, errdefs.InternalBug(
			"%s: lvm path too short to hold a vg: %v", msg, path,
		)
	}
	vg := path[len(path)-2]
	if vg.Type != blockdev.TypeVG {
		return blockdev.BlockDev{}, errdefs.InternalBug(
			"%s: unexpected device type %s - expecting a vg", msg, vg.Type,
		)
	}
	return vg, nil
}
