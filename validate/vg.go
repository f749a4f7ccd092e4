package validate

import (
	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/errdefs"
	"github.com/ballast-os/ballast/manifest"
)

// collectValidVG extends every declared PV's stack with one VG node.
// All PVs of the VG receive the identical node value, so the VG ends
// up topping one path per member PV.
func collectValidVG(vg manifest.Vg, valids *blockdev.Paths) error {
	msg := "lvm vg validation failed"

	vgDev := blockdev.BlockDev{
		Device: vg.DevicePath(),
		Type:   blockdev.TypeVG,
	}

	for _, pvPath := range vg.Pvs {
		extended := false
		for i := range *valids {
			top, ok := (*valids)[i].Top()
			if !ok {
				continue
			}
			if top.Device != pvPath || top.Type != blockdev.TypePV {
				continue
			}

			(*valids)[i].Push(vgDev)
			extended = true
			break
		}
		if !extended {
			return errdefs.BadManifest(
				"%s: no pv %s was resolved for vg %s",
				msg, pvPath, vg.Name,
			)
		}
	}
	return nil
}
