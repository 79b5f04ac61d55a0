package report

import (
	"fmt"
	"strings"

	"github.com/anstrom/uplink/internal/nmapxml"
)

// Profile titles shown above node details.
const (
	HostProfileTitle    = "Host Profile"
	ServiceProfileTitle = "Service Profile"
)

// HostProfile renders the details shown for a host node.
func HostProfile(host *nmapxml.Host) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Host IP Address: %s\n", host.Address)

	for _, hn := range host.Hostnames {
		fmt.Fprintf(&b, "Hostname: %s (%s)\n", hn.Name, hn.Type)
	}
	if host.Status != "" {
		fmt.Fprintf(&b, "Host Status: %s\n", host.Status)
	}
	if host.OS != nil {
		fmt.Fprintf(&b, "OS: %s\n", host.OS.Name)
		fmt.Fprintf(&b, "Accuracy: %s\n", accuracy(host.OS))
	}
	return b.String()
}

// ServiceProfile renders the details shown for a service node.
func ServiceProfile(host *nmapxml.Host, port *nmapxml.Port) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Host: %s\n", host.Address)
	fmt.Fprintf(&b, "Port: %d\n", port.ID)
	fmt.Fprintf(&b, "Protocol: %s\n", port.Protocol)

	if port.State != "" {
		fmt.Fprintf(&b, "State: %s\n", port.State)
	}
	if svc := port.Service; svc != nil {
		fmt.Fprintf(&b, "Service: %s\n", orNA(svc.Name))
		fmt.Fprintf(&b, "Product: %s\n", orNA(svc.Product))
		fmt.Fprintf(&b, "Version: %s\n", orNA(svc.Version))
	}
	for _, script := range port.Scripts {
		fmt.Fprintf(&b, "\nScript: %s\n", script.ID)
		fmt.Fprintf(&b, "Output:\n%s\n", script.Output)
	}
	return b.String()
}

func orNA(v string) string {
	if v == "" {
		return nmapxml.NotAvailable
	}
	return v
}
