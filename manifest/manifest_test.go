package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballast-os/ballast/errdefs"
)

const mockManifest = `
hostname: archbox
timezone: Asia/Bangkok

disks:
  - device: /dev/vda
    table: gpt
    partitions:
      - label: boot
        size: 512M
        type: ef
      - label: lvm

dm:
  - lvm:
      pvs:
        - /dev/vda2
      vgs:
        - name: archvg
          pvs: [/dev/vda2]
      lvs:
        - vg: archvg
          name: rootlv
  - luks:
      device: /dev/archvg/rootlv
      name: croot

rootfs:
  device: /dev/mapper/croot
  fstype: btrfs
  fsopts: "-L root"

fs:
  - device: /dev/vda1
    fstype: vfat
    mnt: /boot

swap:
  - /dev/vdb1

pacstraps: [git, vim]

chroot:
  - bootctl install

postinstall:
  - echo done
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(mockManifest))
	require.NoError(t, err)

	assert.Equal(t, "archbox", m.Hostname)
	require.Len(t, m.Disks, 1)
	assert.Equal(t, TableGPT, m.Disks[0].Table)
	require.Len(t, m.Disks[0].Partitions, 2)
	assert.Equal(t, "512M", m.Disks[0].Partitions[0].Size)

	lukses := m.Lukses()
	require.Len(t, lukses, 1)
	assert.Equal(t, "/dev/mapper/croot", lukses[0].MapperPath())

	lvms := m.Lvms()
	require.Len(t, lvms, 1)
	assert.Equal(t, []string{"/dev/vda2"}, lvms[0].Pvs)
	require.Len(t, lvms[0].Vgs, 1)
	assert.Equal(t, "/dev/archvg", lvms[0].Vgs[0].DevicePath())
	require.Len(t, lvms[0].Lvs, 1)
	assert.Equal(t, "/dev/archvg/rootlv", lvms[0].Lvs[0].DevicePath())

	assert.Equal(t, "btrfs", m.Rootfs.FsType)
	assert.Equal(t, []string{"/dev/vdb1"}, m.Swap)
	assert.Equal(t, []string{"git", "vim"}, m.Pacstraps)
	assert.Equal(t, []string{"bootctl install"}, m.Chroot)
}

func TestParseRejectsMissingRootfs(t *testing.T) {
	_, err := Parse([]byte(`hostname: nope`))
	require.Error(t, err)
	assert.True(t, errdefs.IsBadManifest(err))
}

func TestParseRejectsBadTable(t *testing.T) {
	bad := `
rootfs:
  device: /dev/vda1
  fstype: ext4
disks:
  - device: /dev/vda
    table: mbr-classic
    partitions:
      - label: root
`
	_, err := Parse([]byte(bad))
	require.Error(t, err)
	assert.True(t, errdefs.IsBadManifest(err))
	assert.Contains(t, err.Error(), "schema")
}

func TestParseRejectsNonYaml(t *testing.T) {
	_, err := Parse([]byte("\t{not yaml"))
	require.Error(t, err)
	assert.True(t, errdefs.IsBadManifest(err))
}

func TestParseRejectsDmWithBothMembers(t *testing.T) {
	bad := `
rootfs:
  device: /dev/vda1
  fstype: ext4
dm:
  - luks:
      device: /dev/vda2
      name: croot
    lvm:
      pvs: [/dev/vda3]
`
	_, err := Parse([]byte(bad))
	require.Error(t, err)
	assert.True(t, errdefs.IsBadManifest(err))
}
