/*
	The ballast manifest is a YAML file declaring how raw disks,
	partitions, LUKS containers, and LVM objects compose into the
	final set of filesystems, plus the post-storage installer stages
	(bootstrap packages, chroot and post-install commands).

	Declaration order inside the manifest is not required to match the
	physical stacking order; the validator reconciles it against the
	probed host state.
*/

package manifest

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Manifest is the root document.
type Manifest struct {
	// Location is the mountpoint the installed system is assembled
	// under. Empty means the installer default.
	Location string `yaml:"location,omitempty" json:"location,omitempty"`
	Hostname string `yaml:"hostname,omitempty" json:"hostname,omitempty"`
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`

	// Disks are raw disks to receive a new partition table.
	Disks []Disk `yaml:"disks,omitempty" json:"disks,omitempty"`

	// DMs are device-mapper declarations, LUKS or LVM.
	DMs []DM `yaml:"dm,omitempty" json:"dm,omitempty"`

	// Rootfs is the filesystem mounted at /.
	Rootfs Filesystem `yaml:"rootfs" json:"rootfs"`

	// Filesystems are the non-root filesystems.
	Filesystems []Filesystem `yaml:"fs,omitempty" json:"fs,omitempty"`

	// Swap lists devices to be formatted as swap.
	Swap []string `yaml:"swap,omitempty" json:"swap,omitempty"`

	// Pacstraps are extra packages bootstrapped into the target.
	Pacstraps []string `yaml:"pacstraps,omitempty" json:"pacstraps,omitempty"`

	// Chroot commands run inside the installed system.
	Chroot []string `yaml:"chroot,omitempty" json:"chroot,omitempty"`

	// Postinstall commands run on the host after everything else.
	Postinstall []string `yaml:"postinstall,omitempty" json:"postinstall,omitempty"`
}

// Disk declares a partition table and partition sequence for one raw
// device.
type Disk struct {
	Device     string      `yaml:"device" json:"device"`
	Table      Table       `yaml:"table" json:"table"`
	Partitions []Partition `yaml:"partitions" json:"partitions"`
}

// Table is the partition table kind.
type Table string

const (
	TableGPT Table = "gpt"
	TableDOS Table = "ms-dos"
)

// Partition is one partition on a manifest disk. Number is optional;
// zero means position in the declaration sequence.
type Partition struct {
	Label  string `yaml:"label,omitempty" json:"label,omitempty"`
	Number int    `yaml:"number,omitempty" json:"number,omitempty"`
	Size   string `yaml:"size,omitempty" json:"size,omitempty"`
	Type   string `yaml:"type,omitempty" json:"type,omitempty"`
}

// DM declares one device-mapper device, exactly one member set.
type DM struct {
	Luks *Luks `yaml:"luks,omitempty" json:"luks,omitempty"`
	Lvm  *Lvm  `yaml:"lvm,omitempty" json:"lvm,omitempty"`
}

// Luks declares a LUKS container over a base device. The opened
// mapping appears at /dev/mapper/<name>.
type Luks struct {
	Device string `yaml:"device" json:"device"`
	Name   string `yaml:"name" json:"name"`
	// Passphrase is deliberately not part of the manifest.
	Key string `yaml:"key,omitempty" json:"key,omitempty"`
}

// MapperPath returns the canonical path of the opened mapping.
func (l Luks) MapperPath() string {
	return "/dev/mapper/" + l.Name
}

// Lvm declares PVs, VGs, and LVs in one block.
type Lvm struct {
	Pvs []string `yaml:"pvs,omitempty" json:"pvs,omitempty"`
	Vgs []Vg     `yaml:"vgs,omitempty" json:"vgs,omitempty"`
	Lvs []Lv     `yaml:"lvs,omitempty" json:"lvs,omitempty"`
}

// Vg declares a volume group over declared PVs.
type Vg struct {
	Name string   `yaml:"name" json:"name"`
	Pvs  []string `yaml:"pvs" json:"pvs"`
}

// DevicePath returns the canonical VG device path.
func (v Vg) DevicePath() string {
	return "/dev/" + v.Name
}

// Lv declares a logical volume on a VG.
type Lv struct {
	Vg   string `yaml:"vg" json:"vg"`
	Name string `yaml:"name" json:"name"`
	Size string `yaml:"size,omitempty" json:"size,omitempty"`
}

// DevicePath returns the canonical LV device path.
func (l Lv) DevicePath() string {
	return "/dev/" + l.Vg + "/" + l.Name
}

// Filesystem declares a filesystem over a base device, optionally
// mounted into the target.
type Filesystem struct {
	Device     string `yaml:"device" json:"device"`
	FsType     string `yaml:"fstype" json:"fstype"`
	FsOpts     string `yaml:"fsopts,omitempty" json:"fsopts,omitempty"`
	Mountpoint string `yaml:"mnt,omitempty" json:"mnt,omitempty"`
	MntOpts    string `yaml:"mntopts,omitempty" json:"mntopts,omitempty"`
}

// Lukses collects the LUKS declarations in manifest order.
func (m *Manifest) Lukses() []Luks {
	var out []Luks
	for _, dm := range m.DMs {
		if dm.Luks != nil {
			out = append(out, *dm.Luks)
		}
	}
	return out
}

// Lvms collects the LVM declarations in manifest order.
func (m *Manifest) Lvms() []Lvm {
	var out []Lvm
	for _, dm := range m.DMs {
		if dm.Lvm != nil {
			out = append(out, *dm.Lvm)
		}
	}
	return out
}

// Parse decodes and structurally validates manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	if err := checkSchema(data); err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "unmarshaling manifest")
	}
	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest %s", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing manifest %s", path)
	}
	return m, nil
}
