package followup

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/uplink/internal/nmapxml"
)

const sweepPrefixV4 = 24

// SweepRange returns the /24 around an IPv4 host, or host unchanged.
func SweepRange(host string) string {
	if strings.Contains(host, "/") {
		return host
	}
	ip := net.ParseIP(host).To4()
	if ip == nil {
		return host
	}
	network := &net.IPNet{IP: ip.Mask(net.CIDRMask(sweepPrefixV4, 32)), Mask: net.CIDRMask(sweepPrefixV4, 32)}
	return network.String()
}

func (s *Service) sweepOptions(network string) []nmap.Option {
	options := []nmap.Option{
		nmap.WithTargets(network),
		nmap.WithPingScan(),
		nmap.WithTimingTemplate(nmap.TimingAggressive),
	}
	if s.nmapPath != "" {
		options = append(options, nmap.WithBinaryPath(s.nmapPath))
	}
	return options
}

// sweep ping-scans the network around host and lists the live hosts.
func (s *Service) sweep(ctx context.Context, host string, out func(string)) error {
	network := SweepRange(host)
	if network != host {
		out(fmt.Sprintf("Network: %s\n", network))
	}

	scanner, err := nmap.NewScanner(ctx, s.sweepOptions(network)...)
	if err != nil {
		out(unexpected(err))
		return err
	}

	run, warnings, err := scanner.Run()
	if warnings != nil && len(*warnings) > 0 {
		s.logger.Warn("sweep warnings", "network", network, "warnings", *warnings)
	}
	if err != nil {
		out(unexpected(err))
		return err
	}

	result := nmapxml.FromRun(run)
	up := 0
	for i := range result.Hosts {
		h := &result.Hosts[i]
		if h.Status != "up" {
			continue
		}
		up++
		if names := h.HostnameList(); len(names) > 0 {
			out(fmt.Sprintf("Host: %s (%s)\n", h.Address, strings.Join(names, ", ")))
		} else {
			out(fmt.Sprintf("Host: %s\n", h.Address))
		}
	}
	out(fmt.Sprintf("%d host(s) up\n", up))
	return nil
}
