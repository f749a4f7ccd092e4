package validate

import (
	"fmt"
	"unicode"

	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/errdefs"
	"github.com/ballast-os/ballast/manifest"
)

// collectValidDisk checks one manifest disk and seeds the stack store
// with a path per declared partition. Partitions are about to be
// created by the installer, so probed fs-ready state is not consulted.
func collectValidDisk(disk manifest.Disk, sysFs map[string]blockdev.Type, valids *blockdev.Paths) error {
	msg := "disk validation failed"

	if fsType, ok := sysFs[disk.Device]; ok {
		return errdefs.BadManifest(
			"%s: disk %s was already used whole as %s",
			msg, disk.Device, fsType,
		)
	}

	if !deviceExists(disk.Device) {
		return errdefs.NoSuchDevice(disk.Device)
	}

	if len(disk.Partitions) == 0 {
		return errdefs.BadManifest("%s: disk %s declares no partitions", msg, disk.Device)
	}

	last := 0
	for i, part := range disk.Partitions {
		number := part.Number
		if number == 0 {
			number = i + 1
		}
		if number <= last {
			return errdefs.BadManifest(
				"%s: partition numbers on %s must be unique and increasing, got %d after %d",
				msg, disk.Device, number, last,
			)
		}
		last = number

		valids.Append(blockdev.Path{
			{Device: disk.Device, Type: blockdev.TypeDisk},
			{Device: PartitionPath(disk.Device, number), Type: blockdev.TypePartition},
		})
	}
	return nil
}

// PartitionPath returns the kernel device path of partition number on
// disk: /dev/sda -> /dev/sda1, /dev/nvme0n1 -> /dev/nvme0n1p1.
func PartitionPath(disk string, number int) string {
	if disk != "" && unicode.IsDigit(rune(disk[len(disk)-1])) {
		return fmt.Sprintf("%sp%d", disk, number)
	}
	return fmt.Sprintf("%s%d", disk, number)
}
