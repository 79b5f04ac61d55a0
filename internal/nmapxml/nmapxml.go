// Package nmapxml parses nmap's XML output into the host and port model used
// by the summary, report and graph views.
package nmapxml

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/uplink/internal/errors"
)

// NotAvailable is shown wherever nmap did not report a value.
const NotAvailable = "N/A"

const (
	stateOpen = "open"
	filePerm  = 0600
)

// Result is a parsed nmap run.
type Result struct {
	Args    string `json:"args"`
	Version string `json:"version"`
	Hosts   []Host `json:"hosts"`
}

// Host is one scanned host.
type Host struct {
	Address   string     `json:"address"`
	Hostnames []Hostname `json:"hostnames,omitempty"`
	Status    string     `json:"status,omitempty"`
	OS        *OSMatch   `json:"os,omitempty"`
	Ports     []Port     `json:"ports,omitempty"`
}

// Hostname is a name nmap resolved for a host.
type Hostname struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// OSMatch is nmap's best operating system guess. Accuracy 0 means unknown.
type OSMatch struct {
	Name     string `json:"name"`
	Accuracy int    `json:"accuracy"`
}

// Port is a scanned port.
type Port struct {
	ID       uint16   `json:"id"`
	Protocol string   `json:"protocol"`
	State    string   `json:"state"`
	Service  *Service `json:"service,omitempty"`
	Scripts  []Script `json:"scripts,omitempty"`
}

// Service is the service nmap detected on a port.
type Service struct {
	Name    string `json:"name"`
	Product string `json:"product"`
	Version string `json:"version"`
}

// Script is the output of an NSE script.
type Script struct {
	ID     string `json:"id"`
	Output string `json:"output"`
}

// IsOpen reports whether nmap found the port open.
func (p *Port) IsOpen() bool {
	return p.State == stateOpen
}

// Label is the "port/proto" form used in the graph and report.
func (p *Port) Label() string {
	return fmt.Sprintf("%d/%s", p.ID, p.Protocol)
}

// ServiceName returns the detected service name or fallback.
func (p *Port) ServiceName(fallback string) string {
	if p.Service == nil || p.Service.Name == "" {
		return fallback
	}
	return p.Service.Name
}

// OpenPorts returns the ports in state open, in document order.
func (h *Host) OpenPorts() []Port {
	var open []Port
	for _, p := range h.Ports {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open
}

// HostnameList returns the plain hostnames.
func (h *Host) HostnameList() []string {
	names := make([]string, 0, len(h.Hostnames))
	for _, hn := range h.Hostnames {
		names = append(names, hn.Name)
	}
	return names
}

// OpenPortCount counts open ports across all hosts.
func (r *Result) OpenPortCount() int {
	n := 0
	for i := range r.Hosts {
		n += len(r.Hosts[i].OpenPorts())
	}
	return n
}

// FirstAddress returns the address of the first host, the target of follow-up actions.
func (r *Result) FirstAddress() (string, bool) {
	if len(r.Hosts) == 0 || r.Hosts[0].Address == NotAvailable {
		return "", false
	}
	return r.Hosts[0].Address, true
}

// IsBlank reports whether data holds nothing but whitespace.
func IsBlank(data []byte) bool {
	return len(strings.TrimSpace(string(data))) == 0
}

// Parse parses nmap -oX output.
func Parse(data []byte) (*Result, error) {
	run := &nmap.Run{}
	if err := nmap.Parse(data, run); err != nil {
		return nil, errors.Wrap(errors.CodeParseFailed, "Failed to parse nmap XML", err)
	}
	return FromRun(run), nil
}

// FromRun converts a library run into the result model.
func FromRun(run *nmap.Run) *Result {
	result := &Result{
		Args:    run.Args,
		Version: run.Version,
		Hosts:   make([]Host, 0, len(run.Hosts)),
	}
	for i := range run.Hosts {
		result.Hosts = append(result.Hosts, convertHost(&run.Hosts[i]))
	}
	return result
}

func convertHost(h *nmap.Host) Host {
	host := Host{
		Address: NotAvailable,
		Status:  h.Status.State,
		Ports:   make([]Port, 0, len(h.Ports)),
	}
	if len(h.Addresses) > 0 {
		host.Address = h.Addresses[0].Addr
	}

	for _, hn := range h.Hostnames {
		host.Hostnames = append(host.Hostnames, Hostname{Name: hn.Name, Type: hn.Type})
	}

	if len(h.OS.Matches) > 0 {
		m := h.OS.Matches[0]
		host.OS = &OSMatch{Name: m.Name, Accuracy: m.Accuracy}
	}

	for j := range h.Ports {
		host.Ports = append(host.Ports, convertPort(&h.Ports[j]))
	}
	return host
}

func convertPort(p *nmap.Port) Port {
	port := Port{
		ID:       p.ID,
		Protocol: p.Protocol,
		State:    p.State.State,
	}

	svc := p.Service
	if svc.Name != "" || svc.Product != "" || svc.Version != "" {
		port.Service = &Service{Name: svc.Name, Product: svc.Product, Version: svc.Version}
	}

	for _, s := range p.Scripts {
		port.Scripts = append(port.Scripts, Script{ID: s.ID, Output: s.Output})
	}
	return port
}

// SaveFile writes raw XML to path.
func SaveFile(path string, data []byte) error {
	if err := validateFilePath(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return errors.Wrap(errors.CodeFileWrite, fmt.Sprintf("Failed to write %s", path), err)
	}
	return nil
}

// LoadFile reads a saved nmap XML file and parses it.
func LoadFile(path string) ([]byte, *Result, error) {
	if err := validateFilePath(path); err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is validated by validateFilePath
	if err != nil {
		return nil, nil, errors.Wrap(errors.CodeNotFound, fmt.Sprintf("Failed to read %s", path), err)
	}
	if IsBlank(data) {
		return data, nil, errors.ErrNoScanData()
	}

	result, err := Parse(data)
	if err != nil {
		return data, nil, err
	}
	return data, result, nil
}

func validateFilePath(path string) error {
	if strings.Contains(filepath.Clean(path), "..") {
		return errors.New(errors.CodeValidation, "path contains directory traversal")
	}
	return nil
}
