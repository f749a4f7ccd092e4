package probe

import (
	"fmt"
	"strings"

	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/errdefs"
)

// The utilities are expected to produce the documented output shapes;
// a line that cannot be reshaped into one is a ballast bug (stale
// parser), not a user error.

// BlkidEntry is one blkid line, reshaped into the keys ballast
// recognizes. Unrecognized keys are dropped.
type BlkidEntry struct {
	Device   string
	UUID     string
	PartUUID string
	Type     string
	Label    string
}

// String renders the entry back to canonical blkid form.
func (e BlkidEntry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:", e.Device)
	for _, kv := range []struct{ k, v string }{
		{"UUID", e.UUID},
		{"PARTUUID", e.PartUUID},
		{"TYPE", e.Type},
		{"LABEL", e.Label},
	} {
		if kv.v != "" {
			fmt.Fprintf(&b, " %s=%q", kv.k, kv.v)
		}
	}
	return b.String()
}

// ParseBlkid parses full blkid output, one device per line:
//
//	DEV: KEY="VAL" KEY=VAL ...
func ParseBlkid(out string) ([]BlkidEntry, error) {
	var entries []BlkidEntry
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		dev, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errdefs.InternalBug("blkid line without device separator: %q", line)
		}

		entry := BlkidEntry{Device: dev}
		for _, field := range strings.Fields(rest) {
			key, val, ok := strings.Cut(field, "=")
			if !ok {
				return nil, errdefs.InternalBug("blkid field without '=': %q", field)
			}
			val = strings.Trim(val, `"`)
			switch key {
			case "UUID":
				entry.UUID = val
			case "PARTUUID":
				entry.PartUUID = val
			case "TYPE":
				entry.Type = val
			case "LABEL":
				entry.Label = val
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// FormatBlkid renders entries back to canonical blkid output.
func FormatBlkid(entries []BlkidEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.String())
	}
	return strings.Join(lines, "\n")
}

// Filesystem signatures that are not user filesystems from the
// installer's point of view.
var excludedFsTypes = map[string]bool{
	"iso9660":     true,
	"LVM2_member": true,
	"crypto_LUKS": true,
	"squashfs":    true,
}

// SysFs extracts devices already carrying a user filesystem from blkid
// output.
func SysFs(blkidOut string) (map[string]blockdev.Type, error) {
	entries, err := ParseBlkid(blkidOut)
	if err != nil {
		return nil, err
	}

	fs := make(map[string]blockdev.Type)
	for _, e := range entries {
		if e.Type == "" || excludedFsTypes[e.Type] {
			continue
		}
		fs[e.Device] = blockdev.TypeFs(e.Type)
	}
	return fs, nil
}

// SysFsReady extracts fs-ready devices from blkid output: a partition
// identity (PARTUUID) but no signature yet is a legal base for new
// filesystems, LUKS, and PVs.
func SysFsReady(blkidOut string) (map[string]blockdev.Type, error) {
	entries, err := ParseBlkid(blkidOut)
	if err != nil {
		return nil, err
	}

	ready := make(map[string]blockdev.Type)
	for _, e := range entries {
		if e.Type != "" {
			continue
		}
		if e.PartUUID == "" {
			continue
		}
		ready[e.Device] = blockdev.TypeUnknown
	}
	return ready, nil
}

// LvsRow is one data row of lvs output: LV name and its VG.
type LvsRow struct {
	LV string
	VG string
}

// PvsRow is one data row of pvs output: PV device path and its VG.
type PvsRow struct {
	PV string
	VG string
}

// ParseLvs parses lvs output. The first line is a header
// unconditionally; residual header rows (first column literally "LV")
// are skipped too.
func ParseLvs(out string) []LvsRow {
	var rows []LvsRow
	for i, line := range strings.Split(out, "\n") {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if fields[0] == "LV" {
			continue
		}
		rows = append(rows, LvsRow{LV: fields[0], VG: fields[1]})
	}
	return rows
}

// ParsePvs parses pvs output. The first line is a header; data rows
// have a full device path in the first column.
func ParsePvs(out string) []PvsRow {
	var rows []PvsRow
	for i, line := range strings.Split(out, "\n") {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if !strings.HasPrefix(fields[0], "/") {
			continue
		}
		rows = append(rows, PvsRow{PV: fields[0], VG: fields[1]})
	}
	return rows
}

// FormatLvs renders rows back to canonical lvs output, header included.
func FormatLvs(rows []LvsRow) string {
	lines := []string{"  LV VG Attr LSize"}
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("  %s %s", r.LV, r.VG))
	}
	return strings.Join(lines, "\n")
}

// FormatPvs renders rows back to canonical pvs output, header included.
func FormatPvs(rows []PvsRow) string {
	lines := []string{"  PV VG Fmt Attr PSize PFree"}
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("  %s %s", r.PV, r.VG))
	}
	return strings.Join(lines, "\n")
}

// SysLvms reconstructs the existing LVM stacks from lvs and pvs
// output. Each PV maps to one resolved path per LV in its VG:
//
//	[pv unknown, pv, /dev/vg, /dev/vg/lv]
//
// A PV whose VG holds no LVs maps to an empty list.
func SysLvms(lvsOut, pvsOut string) (map[string]blockdev.Paths, error) {
	lvs := ParseLvs(lvsOut)
	pvs := ParsePvs(pvsOut)

	lvms := make(map[string]blockdev.Paths)
	for _, pv := range pvs {
		vgDev := "/dev/" + pv.VG

		paths := blockdev.Paths{}
		for _, lv := range lvs {
			if lv.VG != pv.VG {
				continue
			}
			paths = append(paths, blockdev.Path{
				{Device: pv.PV, Type: blockdev.TypeUnknown},
				{Device: pv.PV, Type: blockdev.TypePV},
				{Device: vgDev, Type: blockdev.TypeVG},
				{Device: vgDev + "/" + lv.LV, Type: blockdev.TypeLV},
			})
		}
		lvms[pv.PV] = paths
	}
	return lvms, nil
}
