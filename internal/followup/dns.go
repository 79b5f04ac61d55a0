package followup

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	resolvConf     = "/etc/resolv.conf"
	defaultDNSPort = "53"
	defaultTimeout = 5 * time.Second
)

// dnsServer returns the configured resolver, falling back to the first
// nameserver in resolv.conf.
func (s *Service) dnsServer() (string, error) {
	if server := s.cfg.DNSServer; server != "" {
		if _, _, err := net.SplitHostPort(server); err != nil {
			return net.JoinHostPort(server, defaultDNSPort), nil
		}
		return server, nil
	}

	conf, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		return "", fmt.Errorf("no DNS server configured: %w", err)
	}
	if len(conf.Servers) == 0 {
		return "", fmt.Errorf("no nameservers in %s", resolvConf)
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port), nil
}

func (s *Service) timeout() time.Duration {
	if s.cfg.Timeout > 0 {
		return s.cfg.Timeout
	}
	return defaultTimeout
}

// lookupDNS resolves an address to its PTR names, or a name to its A and
// AAAA records.
func (s *Service) lookupDNS(ctx context.Context, host string, out func(string)) error {
	server, err := s.dnsServer()
	if err != nil {
		out(unexpected(err))
		return err
	}
	out(fmt.Sprintf("Server: %s\n", server))

	client := &dns.Client{Timeout: s.timeout()}

	if ip := net.ParseIP(host); ip != nil {
		rev, err := dns.ReverseAddr(ip.String())
		if err != nil {
			out(unexpected(err))
			return err
		}
		return s.query(ctx, client, server, rev, dns.TypePTR, out)
	}

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		if err := s.query(ctx, client, server, dns.Fqdn(host), qtype, out); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) query(ctx context.Context, client *dns.Client, server, name string, qtype uint16,
	out func(string)) error {
	msg := new(dns.Msg)
	msg.SetQuestion(name, qtype)
	msg.RecursionDesired = true

	resp, rtt, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		out(unexpected(err))
		return err
	}

	qname := dns.TypeToString[qtype]
	if resp.Rcode != dns.RcodeSuccess {
		out(fmt.Sprintf("%s %s: %s\n", qname, name, dns.RcodeToString[resp.Rcode]))
		return nil
	}

	answers := formatAnswers(resp.Answer)
	if len(answers) == 0 {
		out(fmt.Sprintf("%s %s: no records\n", qname, name))
		return nil
	}
	for _, a := range answers {
		out(fmt.Sprintf("%s %s -> %s\n", qname, name, a))
	}
	s.logger.Debug("dns query answered", "name", name, "type", qname, "rtt", rtt)
	return nil
}

func formatAnswers(rrs []dns.RR) []string {
	var answers []string
	for _, rr := range rrs {
		switch v := rr.(type) {
		case *dns.PTR:
			answers = append(answers, strings.TrimSuffix(v.Ptr, "."))
		case *dns.A:
			answers = append(answers, v.A.String())
		case *dns.AAAA:
			answers = append(answers, v.AAAA.String())
		case *dns.CNAME:
			answers = append(answers, "alias "+strings.TrimSuffix(v.Target, "."))
		}
	}
	return answers
}
