package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

const snmpRetries = 1

// System group objects from SNMPv2-MIB.
var systemOIDs = []struct {
	oid   string
	label string
}{
	{"1.3.6.1.2.1.1.1.0", "Description"},
	{"1.3.6.1.2.1.1.5.0", "Name"},
	{"1.3.6.1.2.1.1.3.0", "Uptime"},
	{"1.3.6.1.2.1.1.4.0", "Contact"},
	{"1.3.6.1.2.1.1.6.0", "Location"},
}

// querySNMP reads the system group with an SNMPv2c GET.
func (s *Service) querySNMP(ctx context.Context, host string, out func(string)) error {
	community := s.cfg.SNMPCommunity
	if community == "" {
		community = "public"
	}
	port := s.cfg.SNMPPort
	if port == 0 {
		port = 161
	}

	client := &gosnmp.GoSNMP{
		Target:    host,
		Port:      port,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   s.timeout(),
		Retries:   snmpRetries,
		Context:   ctx,
	}
	if err := client.Connect(); err != nil {
		out(unexpected(err))
		return err
	}
	defer func() { _ = client.Conn.Close() }()

	oids := make([]string, 0, len(systemOIDs))
	for _, o := range systemOIDs {
		oids = append(oids, o.oid)
	}

	packet, err := client.Get(oids)
	if err != nil {
		out(unexpected(err))
		return err
	}
	if packet.Error != gosnmp.NoError {
		err := fmt.Errorf("agent returned %s", packet.Error)
		out(unexpected(err))
		return err
	}

	values := make(map[string]string, len(packet.Variables))
	for _, v := range packet.Variables {
		values[strings.TrimPrefix(v.Name, ".")] = formatVariable(v)
	}
	for _, o := range systemOIDs {
		value, ok := values[o.oid]
		if !ok || value == "" {
			value = "N/A"
		}
		out(fmt.Sprintf("%-12s %s\n", o.label+":", value))
	}
	return nil
}

func formatVariable(v gosnmp.SnmpPDU) string {
	switch v.Type {
	case gosnmp.OctetString:
		if b, ok := v.Value.([]byte); ok {
			return strings.TrimSpace(string(b))
		}
	case gosnmp.TimeTicks:
		ticks := gosnmp.ToBigInt(v.Value).Int64()
		return (time.Duration(ticks) * 10 * time.Millisecond).String()
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.Null:
		return ""
	}
	if v.Value == nil {
		return ""
	}
	return fmt.Sprint(v.Value)
}
