// Package probe builds ballast's snapshot of the block devices that
// already exist on the host. It shells out to blkid, lvs, and pvs
// (paths injectable so tests and dry runs substitute fixtures) and
// parses their textual output; nothing here mutates the host.
package probe

import (
	"os/exec"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/errdefs"
)

// Prober holds the executable paths of the discovery utilities.
type Prober struct {
	Blkid string
	Lvs   string
	Pvs   string
}

// New returns a Prober using the utilities from $PATH.
func New() *Prober {
	return &Prober{
		Blkid: "blkid",
		Lvs:   "lvs",
		Pvs:   "pvs",
	}
}

// Snapshot is the host state validation runs against, built once per
// run. SysFsReady entries are consumed as manifest entries claim them;
// SysLvms paths are cleared in place once routed into the stack store.
type Snapshot struct {
	// SysFs maps device path to its existing filesystem.
	SysFs map[string]blockdev.Type
	// SysFsReady maps fs-ready device paths (PARTUUID but no
	// signature) to blockdev.TypeUnknown.
	SysFsReady map[string]blockdev.Type
	// SysLvms maps each PV path to the resolved LVM stacks sitting
	// on it, base to LV. A PV with no LVs maps to an empty list.
	SysLvms map[string]blockdev.Paths
}

// Scan runs all three utilities and parses their output.
func (p *Prober) Scan() (*Snapshot, error) {
	blkidOut, err := p.run(p.Blkid)
	if err != nil {
		return nil, err
	}
	lvsOut, err := p.run(p.Lvs)
	if err != nil {
		return nil, err
	}
	pvsOut, err := p.run(p.Pvs)
	if err != nil {
		return nil, err
	}

	fs, err := SysFs(blkidOut)
	if err != nil {
		return nil, err
	}
	fsReady, err := SysFsReady(blkidOut)
	if err != nil {
		return nil, err
	}
	lvms, err := SysLvms(lvsOut, pvsOut)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		SysFs:      fs,
		SysFsReady: fsReady,
		SysLvms:    lvms,
	}, nil
}

// run synchronously invokes one discovery utility and returns its
// stdout. The child is lifecycle-bound to us via PR_SET_PDEATHSIG.
func (p *Prober) run(name string, args ...string) (string, error) {
	log.Debugf("probing: %s %s", name, strings.Join(args, " "))

	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGTERM,
	}
	out, err := cmd.Output()
	if err != nil {
		context := name
		if eerr, ok := err.(*exec.ExitError); ok && len(eerr.Stderr) > 0 {
			context = name + ": " + strings.TrimSpace(string(eerr.Stderr))
		}
		return "", errdefs.CommandFailed(err, context)
	}
	return string(out), nil
}
