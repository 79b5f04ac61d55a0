// Package report renders parsed scan results as the post-scan summary, the
// markdown report, node profiles and CLI tables.
package report

import (
	"fmt"
	"strings"

	"github.com/anstrom/uplink/internal/nmapxml"
)

const (
	// SummaryHeader opens the post-scan pane.
	SummaryHeader = "--- Scan Summary & Post-Scan Actions ---\n\n"
	// SummaryParseFailure replaces the host list when the XML cannot be parsed.
	SummaryParseFailure = "Failed to parse XML output. Summary unavailable."

	unknownService = "Unknown"
)

var recommendations = map[string]string{
	"ssh":   "Try common credentials or a brute-force attack.",
	"http":  "Check for common directories or run a vulnerability scanner.",
	"https": "Check for common directories or run a vulnerability scanner.",
	"ftp":   "Test for anonymous login.",
}

// Recommendation returns the suggested next step for a service, if any.
func Recommendation(service string) (string, bool) {
	r, ok := recommendations[strings.ToLower(service)]
	return r, ok
}

// Summary renders the post-scan summary for raw nmap XML.
func Summary(data []byte) string {
	var b strings.Builder
	b.WriteString(SummaryHeader)

	result, err := nmapxml.Parse(data)
	if err != nil {
		b.WriteString(SummaryParseFailure)
		return b.String()
	}

	writeSummaryHosts(&b, result)
	return b.String()
}

func writeSummaryHosts(b *strings.Builder, result *nmapxml.Result) {
	for i := range result.Hosts {
		host := &result.Hosts[i]
		fmt.Fprintf(b, "Host: %s\n\n", host.Address)

		// Hosts whose ports are all closed or filtered get no line at all.
		if len(host.Ports) == 0 {
			b.WriteString("  No open ports found.\n\n")
			continue
		}

		for _, port := range host.OpenPorts() {
			name := port.ServiceName(unknownService)
			fmt.Fprintf(b, "  Port: %d/%s - Service: %s\n", port.ID, port.Protocol, name)

			if port.Service != nil && port.Service.Product != "" {
				fmt.Fprintf(b, "    Product: %s %s\n", port.Service.Product, port.Service.Version)
			}

			if action, ok := Recommendation(name); ok {
				fmt.Fprintf(b, "    > Recommended Action: %s\n\n", action)
			}
		}
	}
}
