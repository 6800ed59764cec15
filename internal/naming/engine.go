package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediatool/internal/services"
)

var (
	episodePattern   = regexp.MustCompile(`(?i)S\d{2}E\d{2}`)
	parenYearPattern = regexp.MustCompile(`[., ]\(\d{4}\)[., ]`)
	bareYearPattern  = regexp.MustCompile(`[., ]\d{4}[., ]`)
)

const (
	episodeQualityNeedle = ".720p."
	minTitleLength       = 3
	resolutionYear       = "1080"
)

// YearSpan locates the matched year token, separators included, inside a
// simplified name. Len is zero when no year was found and Pos then marks the
// title boundary.
type YearSpan struct {
	Pos int
	Len int
}

// End returns the offset just past the matched token.
func (s YearSpan) End() int {
	return s.Pos + s.Len
}

// Result is the outcome of canonicalising one simplified name.
type Result struct {
	Name    string
	Episode bool
	Title   string
	Year    string
	Span    YearSpan
	Ripper  Ripper
	// Tail is the raw tail before compression.
	Tail   string
	Suffix string
	// Recognized is false when the tail matched no compression rule.
	Recognized bool
}

// Simplify strips parent from path and rejects results that still contain a
// directory separator.
func Simplify(parent, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", services.Wrap(services.ErrInvariant, "naming", "simplify path", "empty path", nil)
	}
	name := path
	if parent != "" && len(path) > len(parent) && strings.HasPrefix(path, parent) {
		name = strings.TrimLeft(path[len(parent):], string(filepath.Separator))
	}
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '\\') {
		return "", services.Wrap(services.ErrInvariant, "naming", "simplify path",
			fmt.Sprintf("simplified path %q contains a directory separator", name), nil)
	}
	return name, nil
}

// IsEpisode reports whether name carries an SxxExx token.
func IsEpisode(name string) bool {
	return episodePattern.MatchString(name)
}

// ExtractYear finds the release year. A parenthesised year wins over a bare
// one. Without a match the span marks the last four characters and the year
// is empty.
func ExtractYear(name string) (string, YearSpan, error) {
	if loc := parenYearPattern.FindStringIndex(name); loc != nil {
		token := name[loc[0]:loc[1]]
		return checkYear(token[2:len(token)-2], YearSpan{Pos: loc[0], Len: loc[1] - loc[0]})
	}
	if loc := bareYearPattern.FindStringIndex(name); loc != nil {
		token := name[loc[0]:loc[1]]
		return checkYear(token[1:len(token)-1], YearSpan{Pos: loc[0], Len: loc[1] - loc[0]})
	}
	pos := len(name) - 4
	if pos < 0 {
		pos = 0
	}
	return "", YearSpan{Pos: pos}, nil
}

func checkYear(year string, span YearSpan) (string, YearSpan, error) {
	if year == resolutionYear {
		return "", YearSpan{}, services.Wrap(services.ErrValidation, "naming", "extract year",
			"bad parsing: resolution 1080 matched as year", nil)
	}
	return year, span, nil
}

// ExtractTitle derives the title ending at span.Pos. For episodes the title
// starts at the episode number following the SxxExx token.
func ExtractTitle(name string, episode bool, span YearSpan) (string, error) {
	end := min(max(span.Pos, 0), len(name))
	if episode {
		head := name[:end]
		if loc := episodePattern.FindStringIndex(head); loc != nil {
			raw := head[loc[0]+3:]
			if len(raw) == 4 && strings.HasSuffix(raw, ".") {
				raw = raw[:3]
			}
			return titleCase(strings.ReplaceAll(raw, ".", " ")), nil
		}
	} else if end < minTitleLength {
		return "", services.Wrap(services.ErrValidation, "naming", "extract title",
			fmt.Sprintf("year not found in title (position %d) for %q", span.Pos, name), nil)
	}
	return titleCase(strings.ReplaceAll(name[:end], ".", " ")), nil
}

// EpisodeSpan returns the title boundary for an episode name: the quality
// marker when present, otherwise just before the extension.
func EpisodeSpan(name string) YearSpan {
	if pos := strings.Index(name, episodeQualityNeedle); pos >= 0 {
		return YearSpan{Pos: pos}
	}
	if len(name) > 6 && name[0] == 'S' && name[3] == 'E' && name[6] == '.' {
		return YearSpan{Pos: len(name) - 3}
	}
	return YearSpan{Pos: max(len(name)-4, 0)}
}

// Canonicalize computes the canonical form of a simplified name.
//
// Movies become "Title (Year).suffix" when a year was found and
// "Title.suffix" otherwise. Episodes become "Title.suffix" where the suffix is
// always the extension.
func Canonicalize(name string) (Result, error) {
	res := Result{Episode: IsEpisode(name)}

	if res.Episode {
		res.Ripper = ClassifyRipper(name)
		res.Span = EpisodeSpan(name)
		res.Tail = name
		res.Suffix = lastN(name, 3)
		res.Recognized = true
		title, err := ExtractTitle(name, true, res.Span)
		if err != nil {
			return Result{}, err
		}
		res.Title = title
		res.Name = res.Title + dotted(res.Suffix)
		return res, nil
	}

	year, span, err := ExtractYear(name)
	if err != nil {
		return Result{}, err
	}
	res.Year, res.Span = year, span
	title, err := ExtractTitle(name, false, span)
	if err != nil {
		return Result{}, err
	}
	res.Title = title
	res.Tail = name[min(span.End(), len(name)):]
	res.Ripper = ClassifyRipper(res.Tail)
	res.Suffix, res.Recognized = CompressTail(res.Ripper, res.Tail, name)

	if res.Year != "" {
		res.Name = res.Title + " (" + res.Year + ")" + dotted(res.Suffix)
	} else {
		res.Name = res.Title + dotted(res.Suffix)
	}
	return res, nil
}

// CanonicalPath resolves path against parent and returns the canonical full
// path alongside the naming result.
func CanonicalPath(parent, path string) (string, Result, error) {
	name, err := Simplify(parent, path)
	if err != nil {
		return "", Result{}, err
	}
	res, err := Canonicalize(name)
	if err != nil {
		return "", Result{}, err
	}
	return filepath.Join(parent, res.Name), res, nil
}

func dotted(suffix string) string {
	if suffix == "" {
		return ""
	}
	return "." + suffix
}

func titleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(strings.TrimSpace(s))
}
