package report

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/nmapxml"
)

const (
	reportTimeLayout   = "2006-01-02 15:04:05"
	fileTimeLayout     = "2006-01-02_15-04-05"
	reportFilePrefix   = "nmap_report_"
	markdownExtension  = ".md"
	rawXMLExtension    = ".xml"
	scriptOutputIndent = "      "
)

// FileName returns the timestamped report file name for now.
func FileName(now time.Time) string {
	return reportFilePrefix + now.Format(fileTimeLayout) + markdownExtension
}

// Markdown renders a markdown report of result dated now.
func Markdown(result *nmapxml.Result, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Nmap Scan Report\n\n")
	fmt.Fprintf(&b, "**Scan Date:** %s\n\n", now.Format(reportTimeLayout))

	for i := range result.Hosts {
		writeMarkdownHost(&b, &result.Hosts[i])
	}
	return b.String()
}

func writeMarkdownHost(b *strings.Builder, host *nmapxml.Host) {
	fmt.Fprintf(b, "--- \n\n## Host: `%s`\n\n", host.Address)

	if host.Status != "" {
		fmt.Fprintf(b, "- **Status:** `%s`\n", host.Status)
	}
	if names := host.HostnameList(); len(names) > 0 {
		fmt.Fprintf(b, "- **Hostnames:** %s\n", strings.Join(names, ", "))
	}
	if host.OS != nil {
		fmt.Fprintf(b, "- **OS:** %s\n", host.OS.Name)
		fmt.Fprintf(b, "  - **Accuracy:** %s\n", accuracy(host.OS))
	}

	open := host.OpenPorts()
	if len(open) == 0 {
		return
	}

	b.WriteString("\n### Open Ports & Services\n\n")
	for _, port := range open {
		fmt.Fprintf(b, "- **Port:** `%s`\n", port.Label())
		fmt.Fprintf(b, "  - **Service:** %s\n", port.ServiceName(unknownService))
		if port.Service != nil {
			if port.Service.Product != "" {
				fmt.Fprintf(b, "  - **Product:** %s\n", port.Service.Product)
			}
			if port.Service.Version != "" {
				fmt.Fprintf(b, "  - **Version:** %s\n", port.Service.Version)
			}
		}

		if len(port.Scripts) == 0 {
			continue
		}
		b.WriteString("  - **Scripts:**\n")
		for _, script := range port.Scripts {
			fmt.Fprintf(b, "    - **%s**\n", script.ID)
			if output := strings.TrimSpace(script.Output); output != "" {
				fmt.Fprintf(b, "%s```\n%s%s\n%s```\n",
					scriptOutputIndent, scriptOutputIndent, output, scriptOutputIndent)
			}
		}
	}
}

func accuracy(m *nmapxml.OSMatch) string {
	if m.Accuracy <= 0 {
		return nmapxml.NotAvailable
	}
	return fmt.Sprintf("%d%%", m.Accuracy)
}

// Saved describes the files written by Save.
type Saved struct {
	MarkdownPath string `json:"markdown_path"`
	XMLPath      string `json:"xml_path"`
}

// Message is the confirmation shown to the operator.
func (s *Saved) Message() string {
	return fmt.Sprintf("Scan report saved to:\n%s", s.MarkdownPath)
}

// Save writes the markdown report and the raw XML into dir.
func Save(dir string, data []byte, now time.Time) (*Saved, error) {
	if nmapxml.IsBlank(data) {
		return nil, errors.ErrNoScanData()
	}

	result, err := nmapxml.Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.CodeParseFailed,
			fmt.Sprintf("Failed to parse Nmap's XML output: %v. Cannot generate report.", stderrors.Unwrap(err)), err)
	}

	name := FileName(now)
	saved := &Saved{
		MarkdownPath: filepath.Join(dir, name),
		XMLPath:      filepath.Join(dir, strings.TrimSuffix(name, markdownExtension)+rawXMLExtension),
	}

	if err := nmapxml.SaveFile(saved.MarkdownPath, []byte(Markdown(result, now))); err != nil {
		return nil, errors.Wrap(errors.CodeFileWrite, fmt.Sprintf("Failed to save report: %v", err), err)
	}
	if err := nmapxml.SaveFile(saved.XMLPath, data); err != nil {
		return nil, errors.Wrap(errors.CodeFileWrite, fmt.Sprintf("Failed to save report: %v", err), err)
	}

	return saved, nil
}
