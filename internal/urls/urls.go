// Package urls extracts URLs from terminal transcript text.
package urls

import "regexp"

// urlPattern matches URLs for the protocols a shell transcript is likely
// to contain. Host matching is permissive on purpose: transcripts hold
// IPs, bare hostnames and file paths alike.
var urlPattern = regexp.MustCompile(`(?im)` +
	`((?:dav|dict|dns|file|finger|ftps?|git|gopher|https?|imaps?|irc[6s]?|ip[fn]s|ldaps?|pop3s?|rediss?|rsync|rtsp[su]?|sftp|smbs?|smtps?|svn(?:\+ssh)?|tcp|telnet|tftp|udp|vnc|wss?)://)` +
	`((?:\S+(?::\S*)?@)?` +
	`(?:(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)|` +
	`(?:(?:[a-z\x{00a1}-\x{ffff}0-9]-*)*[a-z\x{00a1}-\x{ffff}0-9]+)(?:(?:\.(?:[a-z\x{00a1}-\x{ffff}0-9]-*)*[a-z\x{00a1}-\x{ffff}0-9]+)*(?:\.(?:[a-z\x{00a1}-\x{ffff}]{2,})))?|` +
	`/(?:(?:[a-z\x{00a1}-\x{ffff}0-9]-*)*[a-z\x{00a1}-\x{ffff}0-9]+))` +
	`(?::\d{1,5})?` +
	`(?:/[a-zA-Z0-9:@%\-._~!$&()*+,;=?/]*)?` +
	`(?:#[a-zA-Z0-9:@%\-._~!$&()*+,;=?/]*)?)`)

// Extract returns the URLs found in text, de-duplicated, in first-seen
// order.
func Extract(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
