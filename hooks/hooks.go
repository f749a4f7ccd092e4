// Package hooks holds canned configuration fragments: the mkinitcpio
// HOOKS lines each root stack shape requires, which the planner picks
// from, and the networkd quick-setup templates of the @quicknet user
// hook, which the planner does not use.
package hooks

// Quicknet tokens and templates for a minimal DHCP network setup
// inside the installed system.
const (
	QuicknetTokenInterface = "{{ inf }}"
	QuicknetTokenDNS       = "{{ dns_upstream }}"

	QuicknetFilename = "00-dhcp_{{ inf }}-quicknet.conf"

	QuicknetNetworkdDHCP = `# Installed by ballast hook @quicknet
[Match]
Name={{ inf }}

[Network]
DHCP=yes
`

	QuicknetNetworkdDNS = `# Installed by ballast hook @quicknet
DNS={{ dns_upstream }}
`
)

// mkinitcpio HOOKS lines, one per supported root stack shape.
const (
	MkinitcpioLvmRoot = "base udev autodetect modconf kms keyboard keymap consolefont block lvm2 filesystems fsck"

	MkinitcpioLuksRoot = "base udev autodetect modconf kms keyboard keymap consolefont block encrypt filesystems fsck"

	MkinitcpioLvmOnLuksRoot = "base udev autodetect modconf kms keyboard keymap consolefont block encrypt lvm2 filesystems fsck"

	MkinitcpioLuksOnLvmRoot = "base udev autodetect modconf kms keyboard keymap consolefont block lvm2 encrypt filesystems fsck"
)
