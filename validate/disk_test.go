package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/errdefs"
	"github.com/ballast-os/ballast/manifest"
)

func TestPartitionPath(t *testing.T) {
	assert.Equal(t, "/dev/sda1", PartitionPath("/dev/sda", 1))
	assert.Equal(t, "/dev/vdb3", PartitionPath("/dev/vdb", 3))
	assert.Equal(t, "/dev/nvme0n1p2", PartitionPath("/dev/nvme0n1", 2))
	assert.Equal(t, "/dev/mmcblk0p1", PartitionPath("/dev/mmcblk0", 1))
}

func TestCollectValidDisk(t *testing.T) {
	restore := MockDeviceExists(func(path string) bool {
		return path == "/dev/fda"
	})
	defer restore()

	disk := manifest.Disk{
		Device: "/dev/fda",
		Table:  manifest.TableGPT,
		Partitions: []manifest.Partition{
			{Label: "boot", Size: "512M"},
			{Label: "root"},
		},
	}

	valids := blockdev.Paths{}
	require.NoError(t, collectValidDisk(disk, map[string]blockdev.Type{}, &valids))

	require.Len(t, valids, 2)
	assert.True(t, valids[0].Equal(blockdev.Path{
		{Device: "/dev/fda", Type: blockdev.TypeDisk},
		{Device: "/dev/fda1", Type: blockdev.TypePartition},
	}))
	assert.True(t, valids[1].Equal(blockdev.Path{
		{Device: "/dev/fda", Type: blockdev.TypeDisk},
		{Device: "/dev/fda2", Type: blockdev.TypePartition},
	}))
}

func TestCollectValidDiskErrors(t *testing.T) {
	t.Run("disk missing", func(t *testing.T) {
		restore := noDevices()
		defer restore()

		disk := manifest.Disk{
			Device:     "/dev/fda",
			Partitions: []manifest.Partition{{}},
		}
		valids := blockdev.Paths{}
		err := collectValidDisk(disk, map[string]blockdev.Type{}, &valids)
		require.Error(t, err)
		assert.True(t, errdefs.IsNoSuchDevice(err))
	})

	t.Run("disk used whole as a filesystem", func(t *testing.T) {
		restore := MockDeviceExists(func(string) bool { return true })
		defer restore()

		sysFs := typeMap(map[string]blockdev.Type{"/dev/fda": blockdev.TypeFs("ext4")})
		disk := manifest.Disk{
			Device:     "/dev/fda",
			Partitions: []manifest.Partition{{}},
		}
		valids := blockdev.Paths{}
		err := collectValidDisk(disk, sysFs, &valids)
		require.Error(t, err)
		assert.True(t, errdefs.IsBadManifest(err))
	})

	t.Run("partition numbers collide", func(t *testing.T) {
		restore := MockDeviceExists(func(string) bool { return true })
		defer restore()

		disk := manifest.Disk{
			Device: "/dev/fda",
			Partitions: []manifest.Partition{
				{Number: 2},
				{Number: 2},
			},
		}
		valids := blockdev.Paths{}
		err := collectValidDisk(disk, map[string]blockdev.Type{}, &valids)
		require.Error(t, err)
		assert.True(t, errdefs.IsBadManifest(err))
	})

	t.Run("no partitions declared", func(t *testing.T) {
		restore := MockDeviceExists(func(string) bool { return true })
		defer restore()

		disk := manifest.Disk{Device: "/dev/fda"}
		valids := blockdev.Paths{}
		err := collectValidDisk(disk, map[string]blockdev.Type{}, &valids)
		require.Error(t, err)
		assert.True(t, errdefs.IsBadManifest(err))
	})
}
