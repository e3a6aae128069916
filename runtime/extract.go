package runtime

import (
	"regexp"

	"github.com/pithecene-io/toolproxy/types"
)

var (
	// "rustc 1.70.0 (90c541806 2023-05-31)"
	versionPattern = regexp.MustCompile(`^\S+ (?P<version>[^(]+) \((?P<hash>\S+) (?P<date>\d{4}-\d{2}-\d{2})`)

	// "error[E0308]: mismatched types"
	errorCodePattern = regexp.MustCompile(`\[(?P<code>E.{4})\]`)

	versionIdx = versionPattern.SubexpIndex("version")
	hashIdx    = versionPattern.SubexpIndex("hash")
	dateIdx    = versionPattern.SubexpIndex("date")
	codeIdx    = errorCodePattern.SubexpIndex("code")
)

// MatchVersion extracts a version probe from one line of version output.
func MatchVersion(line string) (types.VersionProbe, bool) {
	m := versionPattern.FindStringSubmatch(line)
	if m == nil {
		return types.VersionProbe{}, false
	}
	return types.VersionProbe{
		Version:     m[versionIdx],
		VersionHash: m[hashIdx],
		BuildDate:   m[dateIdx],
	}, true
}

// MatchErrorCodes returns every bracketed error code in line, left to right.
func MatchErrorCodes(line string) []string {
	matches := errorCodePattern.FindAllStringSubmatch(line, -1)
	if matches == nil {
		return nil
	}
	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		codes = append(codes, m[codeIdx])
	}
	return codes
}

// VersionMatcher keeps the first version probe seen across a stream.
// Lines offered after a match are not scanned.
type VersionMatcher struct {
	probe   types.VersionProbe
	matched bool
}

// Offer scans line and reports whether it produced the probe.
func (m *VersionMatcher) Offer(line string) bool {
	if m.matched {
		return false
	}
	probe, ok := MatchVersion(line)
	if !ok {
		return false
	}
	m.probe = probe
	m.matched = true
	return true
}

// Probe returns the recorded probe, if any.
func (m *VersionMatcher) Probe() (types.VersionProbe, bool) {
	return m.probe, m.matched
}

// ErrorCodeCollector accumulates error codes across a stream in line order.
// Duplicates are kept.
type ErrorCodeCollector struct {
	codes []string
}

// Offer scans line and returns how many codes it added.
func (c *ErrorCodeCollector) Offer(line string) int {
	found := MatchErrorCodes(line)
	c.codes = append(c.codes, found...)
	return len(found)
}

// Codes returns the collected codes, or nil when none were seen.
func (c *ErrorCodeCollector) Codes() []string {
	if len(c.codes) == 0 {
		return nil
	}
	return append([]string(nil), c.codes...)
}
