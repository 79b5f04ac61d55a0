package options

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/anstrom/uplink/internal/errors"
)

const (
	nmapBinary   = "nmap"
	scriptPrefix = "--script="
	sudoBinary   = "sudo"
)

// WindowsPrivilegeWarning is shown when a privileged scan is started on windows.
const WindowsPrivilegeWarning = "You are attempting a privileged scan on Windows. " +
	"Please ensure you are running this script as an Administrator."

// privilegedFlags need raw sockets.
var privilegedFlags = []string{"-sS", "-O", "-sU"}

// Form is the operator's current selection.
type Form struct {
	Target     string   `json:"target"`
	Options    []string `json:"options"`
	Scripts    []string `json:"scripts"`
	CustomArgs string   `json:"custom_args"`
	Alarm      bool     `json:"alarm"`
}

// Platform describes where the command will run.
type Platform struct {
	OS   string
	EUID int
}

// CurrentPlatform reports the running platform.
func CurrentPlatform() Platform {
	return Platform{OS: runtime.GOOS, EUID: os.Geteuid()}
}

// Validate trims the target and checks every selection against the catalog.
func (c *Catalog) Validate(form *Form) error {
	form.Target = strings.TrimSpace(form.Target)
	if form.Target == "" {
		return errors.ErrTargetRequired()
	}

	for _, flag := range form.Options {
		if _, ok := c.Option(flag); !ok {
			return errors.NewWithTarget(errors.CodeValidation,
				fmt.Sprintf("Unknown option: %s", flag), form.Target)
		}
	}
	for _, name := range form.Scripts {
		if _, ok := c.Script(name); !ok {
			return errors.NewWithTarget(errors.CodeValidation,
				fmt.Sprintf("Unknown script: %s", name), form.Target)
		}
	}
	return nil
}

// BuildCommand validates the form and assembles the nmap argv.
// Checked options and scripts appear in catalog order, custom arguments last.
func (c *Catalog) BuildCommand(form *Form) ([]string, error) {
	if err := c.Validate(form); err != nil {
		return nil, err
	}

	argv := []string{nmapBinary, form.Target, "-oX", "-"}

	selected := toSet(form.Options)
	for _, o := range c.Options() {
		if selected[o.Flag] {
			argv = append(argv, o.Flag)
		}
	}

	scripts := toSet(form.Scripts)
	for _, s := range c.Scripts() {
		if scripts[s.Name] {
			argv = append(argv, scriptPrefix+s.Name)
		}
	}

	argv = append(argv, strings.Fields(form.CustomArgs)...)
	return argv, nil
}

// RequiresPrivilege reports whether argv needs root or Administrator rights.
func RequiresPrivilege(argv []string, form *Form) bool {
	if len(form.Scripts) > 0 {
		return true
	}
	for _, arg := range argv {
		for _, flag := range privilegedFlags {
			if arg == flag {
				return true
			}
		}
	}
	return false
}

// ApplyPrivilege prefixes sudo for unprivileged linux users and returns a
// warning for windows. Other platforms are left unchanged.
func ApplyPrivilege(argv []string, form *Form, p Platform) ([]string, string) {
	if !RequiresPrivilege(argv, form) {
		return argv, ""
	}

	switch p.OS {
	case "linux":
		if p.EUID != 0 {
			return append([]string{sudoBinary}, argv...), ""
		}
	case "windows":
		return argv, WindowsPrivilegeWarning
	}
	return argv, ""
}

// WithBinary replaces the nmap executable, skipping a leading sudo.
func WithBinary(argv []string, binary string) []string {
	if binary == "" || binary == nmapBinary {
		return argv
	}
	out := append([]string(nil), argv...)
	for i, arg := range out {
		if arg == nmapBinary {
			out[i] = binary
			break
		}
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
