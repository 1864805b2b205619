package converge

import (
	"os"
	"regexp"
)

// hostsOverride reports whether the hosts file maps hostname to ip on a line of its own.
func hostsOverride(path, ip, hostname string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	re := regexp.MustCompile(`\n` + regexp.QuoteMeta(ip) + `\s+` + regexp.QuoteMeta(hostname) + `\s*\n`)
	return re.Match(data), nil
}
