package streams

import (
	"fmt"
	"slices"
	"strings"

	"mediatool/internal/language"
	"mediatool/internal/media/ffprobe"
	"mediatool/internal/naming"
	"mediatool/internal/services"
)

// Rules holds the supported codec sets and the target language.
type Rules struct {
	Language       string
	SubtitleCodecs []string
	AudioCodecs    []string
}

// Selection is the outcome of classifying one container.
type Selection struct {
	// SubtitleIndex and AudioIndex are ffprobe stream indices, -1 when absent.
	SubtitleIndex         int
	AudioIndex            int
	SubtitleLanguageMatch bool
	AudioLanguageMatch    bool
	// Qualifying counts only streams whose codec is supported.
	SubtitleCount int
	AudioCount    int
	// SubtitleStreams counts every subtitle stream, supported or not.
	SubtitleStreams int
	VideoCount      int
	DataIndices     []int
	// ContainerChangeSafe is false when remuxing would guess at audio or
	// silently drop subtitles. UnsafeReason names the cause.
	ContainerChangeSafe bool
	UnsafeReason        string
}

// HasSubtitle reports whether a subtitle stream was chosen.
func (s Selection) HasSubtitle() bool { return s.SubtitleIndex >= 0 }

// HasAudio reports whether an audio stream was chosen.
func (s Selection) HasAudio() bool { return s.AudioIndex >= 0 }

// override is a release-group specific correction layered after the generic
// rule.
type override struct {
	ripper naming.Ripper
	// skipSubtitleCodecs never qualify for this group.
	skipSubtitleCodecs []string
	// firstAudioIsPrimary resolves audio ambiguity by trusting stream order.
	firstAudioIsPrimary bool
}

var overrides = []override{
	{ripper: naming.RipperHET, skipSubtitleCodecs: []string{"ass", "ssa"}},
	{ripper: naming.RipperRMT, firstAudioIsPrimary: true},
}

func overrideFor(ripper naming.Ripper) override {
	for _, o := range overrides {
		if o.ripper == ripper {
			return o
		}
	}
	return override{}
}

type pick struct {
	index    int
	fallback int
	matched  bool
	count    int
}

func newPick() pick {
	return pick{index: -1, fallback: -1}
}

func (p *pick) offer(index int, lang, target string) {
	p.count++
	if !p.matched && language.Matches(lang, target) {
		p.index = index
		p.matched = true
		return
	}
	if p.fallback < 0 {
		p.fallback = index
	}
}

func (p *pick) resolve() int {
	if p.matched {
		return p.index
	}
	return p.fallback
}

// Classify selects streams for ripper under rules. An empty stream list is an
// invariant violation; an unrecognised codec type is a validation error for
// the item.
func Classify(streams []ffprobe.Stream, ripper naming.Ripper, rules Rules) (Selection, error) {
	if len(streams) == 0 {
		return Selection{}, services.Wrap(services.ErrInvariant, "streams", "classify", "no streams to classify", nil)
	}
	ordered := slices.Clone(streams)
	slices.SortStableFunc(ordered, func(a, b ffprobe.Stream) int { return a.Index - b.Index })

	ov := overrideFor(ripper)
	target := rules.Language
	sub, aud := newPick(), newPick()
	sel := Selection{}

	for _, s := range ordered {
		codec := strings.ToLower(strings.TrimSpace(s.CodecName))
		lang := language.ExtractFromTags(s.Tags)
		switch strings.ToLower(strings.TrimSpace(s.CodecType)) {
		case ffprobe.CodecVideo:
			sel.VideoCount++
		case ffprobe.CodecData:
			sel.DataIndices = append(sel.DataIndices, s.Index)
		case ffprobe.CodecSubtitle:
			sel.SubtitleStreams++
			if !slices.Contains(rules.SubtitleCodecs, codec) || slices.Contains(ov.skipSubtitleCodecs, codec) {
				continue
			}
			sub.offer(s.Index, lang, target)
		case ffprobe.CodecAudio:
			if !slices.Contains(rules.AudioCodecs, codec) {
				continue
			}
			aud.offer(s.Index, lang, target)
		default:
			return Selection{}, services.Wrap(services.ErrValidation, "streams", "classify",
				fmt.Sprintf("unknown stream type %q at index %d", s.CodecType, s.Index), nil)
		}
	}

	sel.SubtitleIndex, sel.SubtitleLanguageMatch, sel.SubtitleCount = sub.resolve(), sub.matched, sub.count
	sel.AudioIndex, sel.AudioLanguageMatch, sel.AudioCount = aud.resolve(), aud.matched, aud.count

	sel.ContainerChangeSafe = true
	switch {
	case sel.AudioCount == 0:
		sel.ContainerChangeSafe, sel.UnsafeReason = false, "no supported audio stream"
	case sel.AudioCount > 1 && !sel.AudioLanguageMatch && !ov.firstAudioIsPrimary:
		sel.ContainerChangeSafe, sel.UnsafeReason = false, fmt.Sprintf("%d audio streams without a %s track", sel.AudioCount, target)
	case sel.SubtitleStreams > 0 && sel.SubtitleCount == 0:
		sel.ContainerChangeSafe, sel.UnsafeReason = false, "no supported subtitle stream to keep"
	}
	return sel, nil
}
