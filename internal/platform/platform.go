package platform

import (
	"vpsdeploy/internal/osrelease"
)

// PkgFamily names the package manager command family for a platform.
type PkgFamily string

const (
	Apt PkgFamily = "apt"
	Dnf PkgFamily = "dnf"
)

// NginxLayout names the convention nginx uses for site configs.
type NginxLayout string

const (
	// SitesEnabled is the Debian convention: configs live in
	// sites-available and are activated by symlink in sites-enabled.
	SitesEnabled NginxLayout = "sites-enabled"
	// ConfD is the RHEL convention: a single directory of enabled
	// configs under conf.d.
	ConfD NginxLayout = "conf.d"
)

// Platform is the configuration record selected for a detected OS:
// which package manager family to drive, what to install, how nginx
// lays out its configs, and which NodeSource bootstrap to fetch.
type Platform struct {
	Family       string
	Pkg          PkgFamily
	BasePackages []string
	Nginx        NginxLayout
	NodeSetupURL string
}

var (
	debianPlatform = Platform{
		Family:       "debian",
		Pkg:          Apt,
		BasePackages: []string{"curl", "git", "ca-certificates", "build-essential"},
		Nginx:        SitesEnabled,
		NodeSetupURL: "https://deb.nodesource.com/setup_%d.x",
	}
	rhelPlatform = Platform{
		Family:       "rhel",
		Pkg:          Dnf,
		BasePackages: []string{"curl", "git", "ca-certificates", "gcc-c++", "make"},
		Nginx:        ConfD,
		NodeSetupURL: "https://rpm.nodesource.com/setup_%d.x",
	}
)

// table maps exact os-release IDs to their platform record.
var table = map[string]Platform{
	"ubuntu":    debianPlatform,
	"debian":    debianPlatform,
	"raspbian":  debianPlatform,
	"fedora":    rhelPlatform,
	"centos":    rhelPlatform,
	"rhel":      rhelPlatform,
	"rocky":     rhelPlatform,
	"almalinux": rhelPlatform,
	"amzn":      rhelPlatform,
}

// Resolve selects the platform record for a host profile. Exact ID
// match wins; otherwise the first recognized ID_LIKE term decides.
// Returns ok=false when nothing matches, so the caller can fall back
// to probing for package manager binaries.
func Resolve(profile *osrelease.HostProfile) (Platform, bool) {
	if p, ok := table[profile.ID]; ok {
		return p, true
	}
	for _, like := range profile.IDLike {
		if p, ok := table[like]; ok {
			return p, true
		}
	}
	return Platform{}, false
}

// Supported lists every OS id in the dispatch table.
func Supported() []string {
	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	return ids
}

// ForFamily returns the platform record for a package manager family,
// used when the OS id is unrecognized but a manager binary was found.
func ForFamily(family PkgFamily) Platform {
	if family == Dnf {
		return rhelPlatform
	}
	return debianPlatform
}
