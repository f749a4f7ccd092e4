// Package validate decides whether a ballast manifest is realizable on
// the probed host, and if so resolves every declared device into a
// full stack from its raw base up to the declared leaf.
//
// Validators run strictly in dependency order: disks, LUKS on plain
// devices, PVs, VGs, LVs, LUKS on LVs, filesystems, then the root and
// mountpoint checks. Each validator may consume probed fs-ready
// entries and clear probed LVM paths to mark them routed; on any
// error the partially built stack store is discarded.
package validate

import (
	"os"

	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/errdefs"
	"github.com/ballast-os/ballast/manifest"
	"github.com/ballast-os/ballast/probe"
	"github.com/ballast-os/ballast/report"
)

// deviceExists is swapped out by tests.
var deviceExists = func(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Run validates m against the probed snapshot and returns the resolved
// stack store. The caller's snapshot is not modified; consumption
// happens on an internal copy.
func Run(m *manifest.Manifest, snap *probe.Snapshot) (*report.ValidationReport, error) {
	sysFs := cloneTypeMap(snap.SysFs)
	sysFsReady := cloneTypeMap(snap.SysFsReady)
	sysLvms := clonePathsMap(snap.SysLvms)

	valids := blockdev.Paths{}

	for _, disk := range m.Disks {
		if err := collectValidDisk(disk, sysFs, &valids); err != nil {
			return nil, err
		}
	}

	earlyLuks, lvLuks := splitLukses(m, snap.SysLvms)

	for _, luks := range earlyLuks {
		if err := collectValidLuks(luks, sysFs, sysFsReady, sysLvms, &valids); err != nil {
			return nil, err
		}
	}

	for _, lvm := range m.Lvms() {
		for _, pv := range lvm.Pvs {
			if err := collectValidPV(pv, sysFs, sysFsReady, sysLvms, &valids); err != nil {
				return nil, err
			}
		}
	}
	for _, lvm := range m.Lvms() {
		for _, vg := range lvm.Vgs {
			if err := collectValidVG(vg, &valids); err != nil {
				return nil, err
			}
		}
	}
	for _, lvm := range m.Lvms() {
		for _, lv := range lvm.Lvs {
			if err := collectValidLV(lv, &valids); err != nil {
				return nil, err
			}
		}
	}
	pruneExtendedVgs(&valids)

	for _, luks := range lvLuks {
		if err := collectValidLuks(luks, sysFs, sysFsReady, sysLvms, &valids); err != nil {
			return nil, err
		}
	}

	if err := collectValidFs(m.Rootfs, sysFs, sysFsReady, sysLvms, &valids); err != nil {
		return nil, err
	}
	for _, fs := range m.Filesystems {
		if err := collectValidFs(fs, sysFs, sysFsReady, sysLvms, &valids); err != nil {
			return nil, err
		}
	}
	for _, swapDev := range m.Swap {
		swapFs := manifest.Filesystem{Device: swapDev, FsType: "swap"}
		if err := collectValidFs(swapFs, sysFs, sysFsReady, sysLvms, &valids); err != nil {
			return nil, err
		}
	}

	if err := checkRootfs(m, valids); err != nil {
		return nil, err
	}
	if err := checkMountpoints(m); err != nil {
		return nil, err
	}
	if err := checkInvariants(valids, snap.SysFs); err != nil {
		return nil, err
	}

	return &report.ValidationReport{BlockDevs: valids}, nil
}

// splitLukses separates LUKS declarations whose base is an LV (they
// must run after the LV validators) from those on plain devices. A
// base counts as an LV when a manifest LV or an existing probed LVM
// stack resolves to that device path.
func splitLukses(m *manifest.Manifest, sysLvms map[string]blockdev.Paths) (early, onLv []manifest.Luks) {
	lvDevs := map[string]bool{}
	for _, lvm := range m.Lvms() {
		for _, lv := range lvm.Lvs {
			lvDevs[lv.DevicePath()] = true
		}
	}
	for _, paths := range sysLvms {
		for _, path := range paths {
			top, ok := path.Top()
			if !ok {
				continue
			}
			if top.Type == blockdev.TypeLV {
				lvDevs[top.Device] = true
			}
		}
	}

	for _, luks := range m.Lukses() {
		if lvDevs[luks.Device] {
			onLv = append(onLv, luks)
		} else {
			early = append(early, luks)
		}
	}
	return early, onLv
}

// pruneExtendedVgs drops paths still topped by a VG that some longer
// path extends. LV validation clones VG paths so that every LV of the
// VG can fan out; once the class is done the consumed VG tops are
// redundant prefixes.
func pruneExtendedVgs(valids *blockdev.Paths) {
	kept := blockdev.Paths{}
	for _, path := range *valids {
		top, ok := path.Top()
		if !ok {
			continue
		}
		if top.Type == blockdev.TypeVG && hasExtension(*valids, path) {
			continue
		}
		kept = append(kept, path)
	}
	*valids = kept
}

func hasExtension(valids blockdev.Paths, prefix blockdev.Path) bool {
	for _, path := range valids {
		if len(path) <= len(prefix) {
			continue
		}
		if path[:len(prefix)].Equal(prefix) {
			return true
		}
	}
	return false
}

func checkRootfs(m *manifest.Manifest, valids blockdev.Paths) error {
	want := blockdev.BlockDev{
		Device: m.Rootfs.Device,
		Type:   blockdev.TypeFs(m.Rootfs.FsType),
	}
	for _, path := range valids {
		top, ok := path.Top()
		if !ok {
			continue
		}
		if top == want {
			return nil
		}
	}
	return errdefs.BadManifest(
		"root filesystem %s (%s) did not resolve to the top of any device stack",
		m.Rootfs.Device, m.Rootfs.FsType,
	)
}

func checkMountpoints(m *manifest.Manifest) error {
	seen := map[string]string{"/": m.Rootfs.Device}

	if mnt := m.Rootfs.Mountpoint; mnt != "" && mnt != "/" {
		return errdefs.BadManifest("root filesystem mountpoint must be /, got %q", mnt)
	}

	for _, fs := range m.Filesystems {
		mnt := fs.Mountpoint
		if mnt == "" {
			continue
		}
		if mnt[0] != '/' {
			return errdefs.BadManifest("mountpoint %q for %s is not absolute", mnt, fs.Device)
		}
		if other, ok := seen[mnt]; ok {
			return errdefs.BadManifest("mountpoint %s declared for both %s and %s", mnt, other, fs.Device)
		}
		seen[mnt] = fs.Device
	}
	return nil
}

// checkInvariants asserts the global properties every successful run
// must satisfy. A violation here is a ballast bug.
func checkInvariants(valids blockdev.Paths, probedFs map[string]blockdev.Type) error {
	tops := map[string]blockdev.BlockDev{}
	topBases := map[string]map[string]bool{}

	for _, path := range valids {
		if !path.Stacked() {
			return errdefs.InternalBug("resolved path %v violates device layering", path)
		}

		top, _ := path.Top()
		base, _ := path.Base()

		if top.Type == blockdev.TypeDisk {
			return errdefs.InternalBug("raw disk %s resolved as a stack top", top.Device)
		}
		if fsType, ok := probedFs[base.Device]; ok {
			return errdefs.InternalBug(
				"device %s already carries %s but resolved as a stack base",
				base.Device, fsType,
			)
		}

		// A device may top several paths only as a fan-out: the top
		// nodes must be identical and the bases distinct.
		if prev, ok := tops[top.Device]; ok {
			if prev != top {
				return errdefs.InternalBug(
					"device %s resolved as top with conflicting types %s and %s",
					top.Device, prev.Type, top.Type,
				)
			}
			if topBases[top.Device][base.Device] {
				return errdefs.InternalBug(
					"device %s resolved twice over the same base %s",
					top.Device, base.Device,
				)
			}
		} else {
			tops[top.Device] = top
			topBases[top.Device] = map[string]bool{}
		}
		topBases[top.Device][base.Device] = true
	}
	return nil
}

func cloneTypeMap(in map[string]blockdev.Type) map[string]blockdev.Type {
	out := make(map[string]blockdev.Type, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func clonePathsMap(in map[string]blockdev.Paths) map[string]blockdev.Paths {
	out := make(map[string]blockdev.Paths, len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}
