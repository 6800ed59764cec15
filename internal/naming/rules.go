package naming

import "strings"

// Ripper identifies the release group inferred from a filename tail.
type Ripper string

const (
	RipperPSA     Ripper = "PSA"
	RipperJoy     Ripper = "Joy"
	RipperRMT     Ripper = "RMT"
	RipperHET     Ripper = "HET"
	RipperUnknown Ripper = "Unknown"
)

// ripperRule assigns ripper when match accepts the tail. head is the tail with
// its three-character extension removed.
type ripperRule struct {
	ripper Ripper
	match  func(tail, head string) bool
}

var ripperRules = []ripperRule{
	{RipperPSA, func(tail, head string) bool {
		return strings.Contains(tail, "x265.HEVC-PSA") || len(tail) == 3 || strings.Contains(head, "8.")
	}},
	{RipperJoy, func(tail, head string) bool {
		return strings.Contains(tail, " Joy)") || strings.HasSuffix(head, "Joy.")
	}},
	{RipperRMT, func(tail, head string) bool {
		return strings.Contains(tail, "x265.rmteam") || strings.HasSuffix(head, "RMT.")
	}},
	{RipperHET, func(tail, head string) bool {
		return strings.Contains(tail, "x265-HETeam") || strings.HasSuffix(head, "HET.") || strings.HasSuffix(head, "HET.Ext.")
	}},
}

type replacement struct {
	old string
	new string
}

// tailReplacements are applied in order; later rows see the output of earlier
// ones.
var tailReplacements = map[Ripper][]replacement{
	RipperPSA: {
		{"REMASTERED.720p.10bit.BluRay.6CH.x265.HEVC-PSA.", ""},
		{"720p.10bit.BluRay.6CH.x265.HEVC-PSA.", ""},
		{"INTERNAL.720p.BrRip.2CH.x265.HEVC-PSA", "8"},
		{"720p.BluRay.2CH.x265.HEVC-PSA", "8"},
		{"720p.BrRip.2CH.x265.HEVC-PSA", "8"},
		{"1080p.BrRip.6CH.x265.HEVC-PSA", "1080"},
		{"1080p.BluRay.6CH.x265.HEVC-PSA", "1080"},
		{"720p.10bit.WEBRip.6CH.x265.HEVC-PSA", "web."},
		{"720p.10bit.WEBRip.2CH.x265.HEVC-PSA", "web.2"},
		{"720p.WEBRip.2CH.x265.HEVC-PSA", "web.8"},
	},
	RipperHET: {
		{"720p.BluRay.x265-HETeam", "HET"},
		{"Extended.1080p.BluRay.x265-HETeam", "1080.HET.Ext"},
		{"1080p.BluRay.x265-HETeam", "1080.HET"},
	},
	RipperRMT: {
		{"remastered.720p.bluray.hevc.x265.rmteam", "RMT"},
		{"720p.bluray.hevc.x265.rmteam", "RMT"},
		{"1080p.bluray.dd5.1.hevc.x265.rmteam", "1080.RMT"},
	},
	RipperJoy: {
		{"(720p x265 q22 Joy)", "720.Joy"},
		{"(1080p x265 q22 Joy)", "Joy"},
	},
}

// ClassifyRipper assigns exactly one ripper to tail. Rules are tested top to
// bottom and RipperUnknown is returned when none match.
func ClassifyRipper(tail string) Ripper {
	head := ""
	if len(tail) >= 3 {
		head = tail[:len(tail)-3]
	}
	for _, rule := range ripperRules {
		if rule.match(tail, head) {
			return rule.ripper
		}
	}
	return RipperUnknown
}

// CompressTail rewrites a movie tail using the ripper's replacement table.
// Unknown rippers keep only the last three characters of name (the
// extension). The returned bool reports whether a replacement fired or the
// tail was already in canonical form.
func CompressTail(ripper Ripper, tail, name string) (string, bool) {
	if ripper == RipperUnknown {
		return lastN(name, 3), false
	}
	out := tail
	for _, r := range tailReplacements[ripper] {
		out = strings.ReplaceAll(out, r.old, r.new)
	}
	return out, out != tail || isCanonicalTail(ripper, tail)
}

func isCanonicalTail(ripper Ripper, tail string) bool {
	ext := strings.LastIndexByte(tail, '.')
	if ext < 0 {
		return len(tail) <= 3
	}
	head := tail[:ext]
	if head == "" {
		return true
	}
	for _, r := range tailReplacements[ripper] {
		if head == strings.TrimSuffix(r.new, ".") {
			return true
		}
	}
	return false
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
