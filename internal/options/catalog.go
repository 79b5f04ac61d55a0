// Package options holds the nmap option and script catalogs and turns form
// selections into an nmap command line.
package options

// Option is a single nmap command-line flag offered as a checkbox.
type Option struct {
	Flag        string `json:"flag"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Category groups options under a heading.
type Category struct {
	Name    string   `json:"name"`
	Options []Option `json:"options"`
}

// Script is an NSE script offered as a checkbox.
type Script struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// ScriptCategory groups scripts under a heading.
type ScriptCategory struct {
	Name    string   `json:"name"`
	Scripts []Script `json:"scripts"`
}

// Catalog is the ordered set of options and scripts. Order matters: the
// generated command lists selections in catalog order.
type Catalog struct {
	Categories       []Category       `json:"categories"`
	ScriptCategories []ScriptCategory `json:"script_categories"`
}

func category(name string, pairs ...string) Category {
	c := Category{Name: name}
	for i := 0; i+1 < len(pairs); i += 2 {
		c.Options = append(c.Options, Option{Flag: pairs[i], Description: pairs[i+1], Category: name})
	}
	return c
}

func scriptCategory(name string, pairs ...string) ScriptCategory {
	c := ScriptCategory{Name: name}
	for i := 0; i+1 < len(pairs); i += 2 {
		c.Scripts = append(c.Scripts, Script{Name: pairs[i], Description: pairs[i+1], Category: name})
	}
	return c
}

// DefaultCatalog returns the built-in option and script catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Categories: []Category{
			category("Scan Type",
				"-sS", "TCP SYN Scan: Stealthy, fast, and often blocked.",
				"-sT", "TCP Connect Scan: The default, but noisier.",
				"-sU", "UDP Scan: Slower, but used for services like DNS.",
				"-sV", "Version Detection: Probes open ports to determine service and version information.",
				"-sC", "Default Script Scan: Runs a set of common, safe scripts.",
				"-A", "Aggressive Scan: Combines OS detection, version detection, script scanning, and traceroute.",
			),
			category("Host Discovery",
				"-Pn", "Treat all hosts as online: Skips the host discovery phase.",
				"-n", "No DNS Resolution: Faster scanning without DNS lookups.",
				"-F", "Fast Scan: Scans fewer ports than the default scan.",
			),
			category("OS Detection",
				"-O", "Enable OS Detection: Attempts to identify the operating system of the target.",
			),
			category("Timing & Performance",
				"-T4", "Aggressive Timing: Faster, but may be detected.",
				"-T5", "Insane Timing: Very fast, but high chance of missing ports.",
				"-T1", "Slower Timing: Less aggressive, for fragile systems.",
			),
		},
		ScriptCategories: []ScriptCategory{
			scriptCategory("Vulnerability",
				"vuln", "Checks for common vulnerabilities.",
				"cve-2009-3103", "Tests for the ProFTPD 1.3.2 exploit.",
				"smb-vuln-ms17-010", "Checks for the EternalBlue vulnerability (WannaCry).",
			),
			scriptCategory("Discovery",
				"dns-brute", "Performs DNS zone brute-forcing.",
				"http-title", "Gets the title of web pages on HTTP servers.",
				"smb-enum-shares", "Enumerates SMB shares on a target.",
			),
			scriptCategory("Authentication",
				"ftp-anon", "Checks if an FTP server allows anonymous login.",
				"ssh-brute", "Attempts to brute-force SSH credentials.",
			),
		},
	}
}

// Options returns every option in catalog order.
func (c *Catalog) Options() []Option {
	var all []Option
	for _, cat := range c.Categories {
		all = append(all, cat.Options...)
	}
	return all
}

// Scripts returns every script in catalog order.
func (c *Catalog) Scripts() []Script {
	var all []Script
	for _, cat := range c.ScriptCategories {
		all = append(all, cat.Scripts...)
	}
	return all
}

// Option looks up an option by flag.
func (c *Catalog) Option(flag string) (Option, bool) {
	for _, o := range c.Options() {
		if o.Flag == flag {
			return o, true
		}
	}
	return Option{}, false
}

// Script looks up a script by name.
func (c *Catalog) Script(name string) (Script, bool) {
	for _, s := range c.Scripts() {
		if s.Name == name {
			return s, true
		}
	}
	return Script{}, false
}

// Describe returns the tooltip text for a flag or script name.
func (c *Catalog) Describe(key string) string {
	if o, ok := c.Option(key); ok {
		return o.Description
	}
	if s, ok := c.Script(key); ok {
		return s.Description
	}
	return ""
}
