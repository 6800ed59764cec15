package config

const (
	defaultConfigPath             = "~/.config/mediatool/config.toml"
	defaultStateDir               = "~/.local/share/mediatool"
	defaultLogDir                 = "~/.local/share/mediatool/logs"
	defaultTrashDir               = "~/.local/share/mediatool/trash"
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultProbeSeconds           = 10
	defaultSubtitleSeconds        = 120
	defaultRemuxSeconds           = 40
	defaultVersionSeconds         = 10
	defaultLanguage               = "eng"
	defaultOutputExtension        = "mp4"
	defaultMinSubtitleBytes       = 5 * 1024
	defaultMaxRemuxShrinkBytes    = 50 * 1024 * 1024
	defaultFreeSpaceMultiplier    = 2
	defaultFreeSpaceHeadroomBytes = 64 * 1024 * 1024
	defaultVersionURL             = "https://johnvansickle.com/ffmpeg/release-readme.txt"
	defaultVersionPattern         = `version:\s*([0-9][0-9A-Za-z.\-]*)`
	defaultMaxVersionLength       = 20
	defaultRequestTimeoutSeconds  = 60
	defaultRemovalMode            = RemovalTrash
	defaultNtfyTimeoutSeconds     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Removal modes.
const (
	RemovalTrash  = "trash"
	RemovalDelete = "delete"
)

var (
	defaultSubtitleCodecs  = []string{"subrip", "srt", "ass", "ssa", "mov_text", "webvtt", "text"}
	defaultAudioCodecs     = []string{"aac", "ac3", "eac3", "mp3", "opus", "flac", "alac"}
	defaultMediaExtensions = []string{"mp4", "mkv", "m4v", "wmv", "3gp", "m4a"}
	defaultRemuxExtensions = []string{"mkv"}
	defaultArchiveExts     = []string{"rar", "tar", "zip", "tgz", "tar.gz"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			TrashDir: defaultTrashDir,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Timeouts: Timeouts{
			ProbeSeconds:    defaultProbeSeconds,
			SubtitleSeconds: defaultSubtitleSeconds,
			RemuxSeconds:    defaultRemuxSeconds,
			VersionSeconds:  defaultVersionSeconds,
		},
		Media: Media{
			Language:            defaultLanguage,
			SubtitleCodecs:      cloneStrings(defaultSubtitleCodecs),
			AudioCodecs:         cloneStrings(defaultAudioCodecs),
			MediaExtensions:     cloneStrings(defaultMediaExtensions),
			RemuxExtensions:     cloneStrings(defaultRemuxExtensions),
			OutputExtension:     defaultOutputExtension,
			MinSubtitleBytes:    defaultMinSubtitleBytes,
			MaxRemuxShrinkBytes: defaultMaxRemuxShrinkBytes,
		},
		Archive: Archive{
			Extensions:             cloneStrings(defaultArchiveExts),
			FreeSpaceMultiplier:    defaultFreeSpaceMultiplier,
			FreeSpaceHeadroomBytes: defaultFreeSpaceHeadroomBytes,
		},
		Update: Update{
			VersionURL:            defaultVersionURL,
			VersionPattern:        defaultVersionPattern,
			MaxVersionLength:      defaultMaxVersionLength,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Removal: Removal{
			Mode: defaultRemovalMode,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func cloneStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}
