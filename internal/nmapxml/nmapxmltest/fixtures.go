// Package nmapxmltest provides nmap XML documents for tests.
package nmapxmltest

// TwoHosts is a run with a main host exposing ssh, http and ftp plus a second
// host with a single https port and a closed port.
const TwoHosts = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun scanner="nmap" args="nmap 192.168.1.0/30 -oX - -sV -O" start="1700000000" version="7.94" xmloutputversion="1.05">
<host starttime="1700000001" endtime="1700000009">
<status state="up" reason="arp-response"/>
<address addr="192.168.1.1" addrtype="ipv4"/>
<address addr="AA:BB:CC:DD:EE:FF" addrtype="mac" vendor="Acme"/>
<hostnames>
<hostname name="router.lan" type="PTR"/>
<hostname name="gw.lan" type="user"/>
</hostnames>
<ports>
<port protocol="tcp" portid="21"><state state="open" reason="syn-ack"/><service name="ftp" product="vsftpd" version="3.0.3"/><script id="ftp-anon" output="Anonymous FTP login allowed (FTP code 230)"/></port>
<port protocol="tcp" portid="22"><state state="open" reason="syn-ack"/><service name="ssh" product="OpenSSH" version="9.6p1"/></port>
<port protocol="tcp" portid="80"><state state="open" reason="syn-ack"/><service name="http"/></port>
<port protocol="tcp" portid="443"><state state="filtered" reason="no-response"/><service name="https"/></port>
</ports>
<os>
<osmatch name="Linux 5.4" accuracy="96" line="1000"/>
<osmatch name="Linux 4.15" accuracy="90" line="1001"/>
</os>
</host>
<host starttime="1700000001" endtime="1700000009">
<status state="up" reason="echo-reply"/>
<address addr="192.168.1.2" addrtype="ipv4"/>
<ports>
<port protocol="tcp" portid="443"><state state="open" reason="syn-ack"/><service name="https" product="nginx"/></port>
<port protocol="tcp" portid="8080"><state state="closed" reason="reset"/></port>
</ports>
</host>
</nmaprun>
`

// NoPorts is a single live host without a ports element.
const NoPorts = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun scanner="nmap" args="nmap 10.0.0.9 -oX -" start="1700000000" version="7.94">
<host>
<status state="up" reason="echo-reply"/>
<address addr="10.0.0.9" addrtype="ipv4"/>
</host>
</nmaprun>
`

// NoHosts is a run that found nothing.
const NoHosts = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun scanner="nmap" args="nmap 10.9.9.9 -oX -" start="1700000000" version="7.94">
</nmaprun>
`

// Truncated is what a stopped scan leaves on stdout.
const Truncated = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun scanner="nmap" args="nmap 10.0.0.1 -oX -" start="1700000000" version="7.94">
<host><status state="up"/>`
