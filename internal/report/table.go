package report

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/anstrom/uplink/internal/nmapxml"
)

// WriteTable prints one row per open port, or per host when it has none.
func WriteTable(w io.Writer, result *nmapxml.Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Host", "Port", "Service", "Product", "Recommendation")

	for i := range result.Hosts {
		host := &result.Hosts[i]
		open := host.OpenPorts()
		if len(open) == 0 {
			if err := table.Append([]string{host.Address, "-", "-", "-", "No open ports found."}); err != nil {
				return err
			}
			continue
		}

		for _, port := range open {
			name := port.ServiceName(unknownService)
			product := ""
			if port.Service != nil {
				product = strings.TrimSpace(port.Service.Product + " " + port.Service.Version)
			}
			action, _ := Recommendation(name)
			row := []string{host.Address, port.Label(), name, product, action}
			if err := table.Append(row); err != nil {
				return err
			}
		}
	}

	return table.Render()
}
