package report

import (
	"github.com/ballast-os/ballast/internal/pkg/shellscript"
)

// ChrootScript renders the chroot stage as one strict-mode bash
// script, empty string when the stage has no commands.
func (s *StageActions) ChrootScript() string {
	return renderStage("ballast chroot stage", s.ChrootUser)
}

// PostInstallScript renders the post-install stage the same way.
func (s *StageActions) PostInstallScript() string {
	return renderStage("ballast postinstall stage", s.PostInstallUser)
}

func renderStage(name string, actions []ActionUserCmd) string {
	if len(actions) == 0 {
		return ""
	}
	cmds := make([]string, 0, len(actions))
	for _, a := range actions {
		cmds = append(cmds, a.Cmd)
	}
	return shellscript.Render(name, cmds)
}
