package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/errdefs"
	"github.com/ballast-os/ballast/manifest"
	"github.com/ballast-os/ballast/probe"
)

// A full stack built from scratch: disk -> partitions -> pv -> vg ->
// lv -> luks -> root filesystem, plus a boot filesystem on the first
// partition.
func scratchManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Hostname: "testhost",
		Disks: []manifest.Disk{
			{
				Device: "/dev/fda",
				Table:  manifest.TableGPT,
				Partitions: []manifest.Partition{
					{Label: "boot", Size: "512M"},
					{Label: "lvm"},
				},
			},
		},
		DMs: []manifest.DM{
			{
				Lvm: &manifest.Lvm{
					Pvs: []string{"/dev/fda2"},
					Vgs: []manifest.Vg{{Name: "archvg", Pvs: []string{"/dev/fda2"}}},
					Lvs: []manifest.Lv{{Vg: "archvg", Name: "rootlv", Size: "100%FREE"}},
				},
			},
			{
				Luks: &manifest.Luks{Device: "/dev/archvg/rootlv", Name: "croot"},
			},
		},
		Rootfs: manifest.Filesystem{Device: "/dev/mapper/croot", FsType: "btrfs"},
		Filesystems: []manifest.Filesystem{
			{Device: "/dev/fda1", FsType: "vfat", Mountpoint: "/boot"},
		},
	}
}

func emptySnapshot() *probe.Snapshot {
	return &probe.Snapshot{
		SysFs:      map[string]blockdev.Type{},
		SysFsReady: map[string]blockdev.Type{},
		SysLvms:    map[string]blockdev.Paths{},
	}
}

func TestRunScratchStack(t *testing.T) {
	restore := MockDeviceExists(func(path string) bool {
		return path == "/dev/fda"
	})
	defer restore()

	validation, err := Run(scratchManifest(), emptySnapshot())
	require.NoError(t, err)

	valids := validation.BlockDevs
	require.Len(t, valids, 2)

	wantRoot := blockdev.Path{
		{Device: "/dev/fda", Type: blockdev.TypeDisk},
		{Device: "/dev/fda2", Type: blockdev.TypePartition},
		{Device: "/dev/fda2", Type: blockdev.TypePV},
		{Device: "/dev/archvg", Type: blockdev.TypeVG},
		{Device: "/dev/archvg/rootlv", Type: blockdev.TypeLV},
		{Device: "/dev/mapper/croot", Type: blockdev.TypeLuks},
		{Device: "/dev/mapper/croot", Type: blockdev.TypeFs("btrfs")},
	}
	wantBoot := blockdev.Path{
		{Device: "/dev/fda", Type: blockdev.TypeDisk},
		{Device: "/dev/fda1", Type: blockdev.TypePartition},
		{Device: "/dev/fda1", Type: blockdev.TypeFs("vfat")},
	}
	assert.True(t, blockdev.EqualSets(valids, blockdev.Paths{wantRoot, wantBoot}),
		"unexpected resolved stacks: %v", valids)

	for _, path := range valids {
		assert.True(t, path.Stacked())
	}
}

func TestRunIsDeterministic(t *testing.T) {
	restore := MockDeviceExists(func(path string) bool {
		return path == "/dev/fda"
	})
	defer restore()

	snap := emptySnapshot()
	first, err := Run(scratchManifest(), snap)
	require.NoError(t, err)
	second, err := Run(scratchManifest(), snap)
	require.NoError(t, err)

	assert.True(t, blockdev.EqualSets(first.BlockDevs, second.BlockDevs))
}

// LUKS over an LV whose VG spans two probed PVs: the end-to-end run
// resolves one full stack per PV and leaves the caller's snapshot
// untouched.
func TestRunLuksOverProbedLvmFanOut(t *testing.T) {
	restore := noDevices()
	defer restore()

	snap := emptySnapshot()
	snap.SysLvms = map[string]blockdev.Paths{
		"/dev/vda1": {
			sysLvmPath("/dev/vda1", "archvg", "rootlv"),
			sysLvmPath("/dev/vda1", "archvg", "swaplv"),
		},
		"/dev/sda2": {
			sysLvmPath("/dev/sda2", "archvg", "rootlv"),
			sysLvmPath("/dev/sda2", "archvg", "swaplv"),
		},
	}

	m := &manifest.Manifest{
		DMs: []manifest.DM{
			{Luks: &manifest.Luks{Device: "/dev/archvg/rootlv", Name: "foo"}},
		},
		Rootfs: manifest.Filesystem{Device: "/dev/mapper/foo", FsType: "ext4"},
	}

	validation, err := Run(m, snap)
	require.NoError(t, err)

	valids := validation.BlockDevs
	require.Len(t, valids, 2)

	bases := map[string]bool{}
	for _, path := range valids {
		top, _ := path.Top()
		assert.Equal(t, blockdev.TypeFs("ext4"), top.Type)
		assert.Equal(t, "/dev/mapper/foo", top.Device)
		require.Len(t, path, 6)
		assert.Equal(t, "/dev/archvg/rootlv", path[3].Device)

		base, _ := path.Base()
		bases[base.Device] = true
	}
	assert.Equal(t, map[string]bool{"/dev/vda1": true, "/dev/sda2": true}, bases)

	// Consumption happened on an internal copy only.
	for _, pv := range []string{"/dev/vda1", "/dev/sda2"} {
		require.Len(t, snap.SysLvms[pv], 2)
		for _, path := range snap.SysLvms[pv] {
			assert.NotEmpty(t, path)
		}
	}
}

func TestRunRejections(t *testing.T) {
	t.Run("missing base device", func(t *testing.T) {
		restore := noDevices()
		defer restore()

		m := &manifest.Manifest{
			Rootfs: manifest.Filesystem{Device: "/dev/ghost", FsType: "ext4"},
		}
		_, err := Run(m, emptySnapshot())
		require.Error(t, err)
		assert.True(t, errdefs.IsNoSuchDevice(err))
	})

	t.Run("rootfs base already in use", func(t *testing.T) {
		restore := noDevices()
		defer restore()

		snap := emptySnapshot()
		snap.SysFs["/dev/fda2"] = blockdev.TypeFs("swap")

		m := &manifest.Manifest{
			Rootfs: manifest.Filesystem{Device: "/dev/fda2", FsType: "ext4"},
		}
		_, err := Run(m, snap)
		require.Error(t, err)
		assert.True(t, errdefs.IsBadManifest(err))
		assert.Contains(t, err.Error(), "swap")
	})

	t.Run("duplicate mountpoints", func(t *testing.T) {
		restore := noDevices()
		defer restore()

		snap := emptySnapshot()
		snap.SysFsReady["/dev/fda1"] = blockdev.TypeUnknown
		snap.SysFsReady["/dev/fda2"] = blockdev.TypeUnknown
		snap.SysFsReady["/dev/fda3"] = blockdev.TypeUnknown

		m := &manifest.Manifest{
			Rootfs: manifest.Filesystem{Device: "/dev/fda1", FsType: "ext4"},
			Filesystems: []manifest.Filesystem{
				{Device: "/dev/fda2", FsType: "ext4", Mountpoint: "/home"},
				{Device: "/dev/fda3", FsType: "ext4", Mountpoint: "/home"},
			},
		}
		_, err := Run(m, snap)
		require.Error(t, err)
		assert.True(t, errdefs.IsBadManifest(err))
		assert.Contains(t, err.Error(), "/home")
	})

	t.Run("relative mountpoint", func(t *testing.T) {
		restore := noDevices()
		defer restore()

		snap := emptySnapshot()
		snap.SysFsReady["/dev/fda1"] = blockdev.TypeUnknown
		snap.SysFsReady["/dev/fda2"] = blockdev.TypeUnknown

		m := &manifest.Manifest{
			Rootfs: manifest.Filesystem{Device: "/dev/fda1", FsType: "ext4"},
			Filesystems: []manifest.Filesystem{
				{Device: "/dev/fda2", FsType: "ext4", Mountpoint: "home"},
			},
		}
		_, err := Run(m, snap)
		require.Error(t, err)
		assert.True(t, errdefs.IsBadManifest(err))
	})

	t.Run("corrupt probed lvm stack is an internal bug", func(t *testing.T) {
		restore := noDevices()
		defer restore()

		snap := emptySnapshot()
		snap.SysLvms = map[string]blockdev.Paths{
			"/dev/vda1": {
				{
					{Device: "/dev/vda1", Type: blockdev.TypePV},
					{Device: "/dev/archvg/rootlv", Type: blockdev.TypeLV},
				},
			},
		}

		m := &manifest.Manifest{
			DMs: []manifest.DM{
				{Luks: &manifest.Luks{Device: "/dev/archvg/rootlv", Name: "foo"}},
			},
			Rootfs: manifest.Filesystem{Device: "/dev/mapper/foo", FsType: "ext4"},
		}
		_, err := Run(m, snap)
		require.Error(t, err)
		assert.True(t, errdefs.IsInternalBug(err))
	})
}

func TestCheckRootfsMissing(t *testing.T) {
	m := &manifest.Manifest{
		Rootfs: manifest.Filesystem{Device: "/dev/mapper/root", FsType: "btrfs"},
	}
	err := checkRootfs(m, blockdev.Paths{})
	require.Error(t, err)
	assert.True(t, errdefs.IsBadManifest(err))
}

// Swap devices ride the same validation as filesystems.
func TestRunSwapDevices(t *testing.T) {
	restore := noDevices()
	defer restore()

	snap := emptySnapshot()
	snap.SysFsReady["/dev/fda1"] = blockdev.TypeUnknown
	snap.SysFsReady["/dev/fda2"] = blockdev.TypeUnknown

	m := &manifest.Manifest{
		Rootfs: manifest.Filesystem{Device: "/dev/fda1", FsType: "ext4"},
		Swap:   []string{"/dev/fda2"},
	}

	validation, err := Run(m, snap)
	require.NoError(t, err)
	require.Len(t, validation.BlockDevs, 2)

	i := validation.BlockDevs.FindByTop("/dev/fda2")
	require.GreaterOrEqual(t, i, 0)
	top, _ := validation.BlockDevs[i].Top()
	assert.Equal(t, blockdev.TypeFs("swap"), top.Type)
}
