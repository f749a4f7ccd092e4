// Package report holds the outputs of a ballast run: the resolved
// device stacks from validation, and the staged action summary the
// planner derives from a validated manifest. Nothing here executes
// anything.
package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	yaml "gopkg.in/yaml.v3"

	"github.com/ballast-os/ballast/blockdev"
)

// ValidationReport is what validation hands to the planner: every
// manifest-declared leaf resolved to a full, layering-correct stack.
// Order of the collection is unspecified; each path runs base to top.
type ValidationReport struct {
	BlockDevs blockdev.Paths `json:"block_devs" yaml:"block_devs"`
}

// Report is the run summary emitted to the user.
type Report struct {
	ID       string        `json:"id" yaml:"id"`
	Location string        `json:"location" yaml:"location"`
	Summary  *StageActions `json:"summary" yaml:"summary"`
	Elapsed  time.Duration `json:"elapsedTime" yaml:"elapsedTime"`
}

// New builds a Report with a fresh run id.
func New(location string, summary *StageActions, elapsed time.Duration) *Report {
	return &Report{
		ID:       uuid.NewString(),
		Location: location,
		Summary:  summary,
		Elapsed:  elapsed,
	}
}

// JSON renders the report as JSON.
func (r *Report) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// YAML renders the report as YAML.
func (r *Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// StageActions groups planned actions by installer stage, in the
// order the stages would run.
type StageActions struct {
	Mountpoints     []ActionMountpoint  `json:"stage-mountpoints,omitempty" yaml:"stage-mountpoints,omitempty"`
	Bootstrap       []ActionBootstrap   `json:"stage-bootstrap,omitempty" yaml:"stage-bootstrap,omitempty"`
	Routines        []ActionRoutine     `json:"stage-routines,omitempty" yaml:"stage-routines,omitempty"`
	ChrootUser      []ActionUserCmd     `json:"stage-chroot_user,omitempty" yaml:"stage-chroot_user,omitempty"`
	PostInstallUser []ActionUserCmd     `json:"stage-postinstall_user,omitempty" yaml:"stage-postinstall_user,omitempty"`
}

// ActionMountpoint is one storage-stage step. Action discriminates;
// only the fields that action uses are set.
type ActionMountpoint struct {
	Action string `json:"action" yaml:"action"`

	Device string `json:"device,omitempty" yaml:"device,omitempty"`
	Table  string `json:"table,omitempty" yaml:"table,omitempty"`
	Number int    `json:"number,omitempty" yaml:"number,omitempty"`
	Size   string `json:"size,omitempty" yaml:"size,omitempty"`

	FsType     string `json:"fstype,omitempty" yaml:"fstype,omitempty"`
	FsOpts     string `json:"fsopts,omitempty" yaml:"fsopts,omitempty"`
	Mountpoint string `json:"mountpoint,omitempty" yaml:"mountpoint,omitempty"`
	MntOpts    string `json:"mntopts,omitempty" yaml:"mntopts,omitempty"`

	Pvs []string `json:"pvs,omitempty" yaml:"pvs,omitempty"`
	Vg  string   `json:"vg,omitempty" yaml:"vg,omitempty"`
	Lv  string   `json:"lv,omitempty" yaml:"lv,omitempty"`
}

// Mountpoint stage action names.
const (
	ActionCreatePartitionTable = "createPartitionTable"
	ActionCreatePartition      = "createPartition"
	ActionCreateDmLuks         = "createDmLuks"
	ActionCreateLvmPv          = "createLvmPv"
	ActionCreateLvmVg          = "createLvmVg"
	ActionCreateLvmLv          = "createLvmLv"
	ActionCreateFs             = "createFilesystem"
	ActionMountFs              = "mountFilesystem"
)

// ActionBootstrap is one bootstrap-stage step.
type ActionBootstrap struct {
	Action   string   `json:"action" yaml:"action"`
	Packages []string `json:"packages,omitempty" yaml:"packages,omitempty"`
}

const (
	ActionInstallBase     = "installBase"
	ActionInstallPackages = "installPackages"
)

// ActionRoutine is one post-storage routine.
type ActionRoutine struct {
	Action string `json:"action" yaml:"action"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
}

const (
	ActionSetHostname  = "setHostname"
	ActionGenFstab     = "genfstab"
	ActionLocaleGen    = "localeGen"
	ActionLocaleConf   = "localeConf"
	ActionLinkTimezone = "linkTimezone"
	ActionMkinitcpio   = "mkinitcpio"
)

// ActionUserCmd is a user-supplied command planned for the chroot or
// post-install stage, pre-split into argv.
type ActionUserCmd struct {
	Cmd  string   `json:"cmd" yaml:"cmd"`
	Argv []string `json:"argv" yaml:"argv"`
}
