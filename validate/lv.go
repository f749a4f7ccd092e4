package validate

import (
	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/errdefs"
	"github.com/ballast-os/ballast/manifest"
)

// collectValidLV fans one declared LV out over every path topped by
// its VG: each VG path is cloned and extended, one resolved stack per
// member PV. The VG-topped originals stay behind for the next LV of
// the same VG; the orchestrator prunes them once the class is done.
func collectValidLV(lv manifest.Lv, valids *blockdev.Paths) error {
	msg := "lvm lv validation failed"

	vgPath := "/dev/" + lv.Vg
	lvDev := blockdev.BlockDev{
		Device: lv.DevicePath(),
		Type:   blockdev.TypeLV,
	}

	if valids.FindByTop(lvDev.Device) >= 0 {
		return errdefs.BadManifest("%s: duplicate lv %s in manifest", msg, lvDev.Device)
	}

	var clones blockdev.Paths
	for _, path := range *valids {
		top, ok := path.Top()
		if !ok {
			continue
		}
		if top.Device != vgPath {
			continue
		}
		if top.Type != blockdev.TypeVG {
			return errdefs.BadManifest(
				"%s: lv %s base %s cannot have type %s",
				msg, lv.Name, vgPath, top.Type,
			)
		}

		clone := path.Clone()
		clone.Push(lvDev)
		clones = append(clones, clone)
	}

	if len(clones) == 0 {
		return errdefs.BadManifest(
			"%s: no vg %s was resolved for lv %s",
			msg, lv.Vg, lv.Name,
		)
	}

	*valids = append(*valids, clones...)
	return nil
}
