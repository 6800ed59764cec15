package updater

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"mediatool/internal/config"
	"mediatool/internal/logging"
	"mediatool/internal/services"
)

const userAgent = "mediatool-updater/1"

// Outcome classifies a finished update check.
type Outcome string

const (
	OutcomeUpToDate  Outcome = "up_to_date"
	OutcomeAvailable Outcome = "available"
	OutcomeUpdated   Outcome = "updated"
)

// Result reports the versions compared and what was done about them.
type Result struct {
	Local   string
	Remote  string
	Outcome Outcome
	Message string
}

type versionSource interface {
	Version(ctx context.Context, timeout time.Duration) (string, error)
}

// Updater compares and replaces the managed ffmpeg install.
type Updater struct {
	logger         *slog.Logger
	local          versionSource
	client         *http.Client
	toolDir        string
	versionURL     string
	downloadURL    string
	pattern        *regexp.Regexp
	maxLength      int
	versionTimeout time.Duration
}

// ResolveToolDir expands toolDir, falling back to tools.ffmpeg_dir.
func ResolveToolDir(cfg *config.Config, toolDir string) (string, error) {
	toolDir = strings.TrimSpace(toolDir)
	if toolDir == "" {
		toolDir = strings.TrimSpace(cfg.Tools.FFmpegDir)
	} else {
		expanded, err := config.ExpandPath(toolDir)
		if err != nil {
			return "", services.Wrap(services.ErrConfiguration, "updater", "resolve tool dir", toolDir, err)
		}
		toolDir = expanded
	}
	if toolDir == "" {
		return "", services.Wrap(services.ErrConfiguration, "updater", "resolve tool dir", "set tools.ffmpeg_dir or pass --tool-dir", nil)
	}
	return toolDir, nil
}

// New builds an Updater for toolDir, falling back to tools.ffmpeg_dir. local
// must report the version installed in that directory.
func New(cfg *config.Config, logger *slog.Logger, local versionSource, toolDir string) (*Updater, error) {
	toolDir, err := ResolveToolDir(cfg, toolDir)
	if err != nil {
		return nil, err
	}
	pattern, err := regexp.Compile(cfg.Update.VersionPattern)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "updater", "compile pattern", cfg.Update.VersionPattern, err)
	}
	if pattern.NumSubexp() < 1 {
		return nil, services.Wrap(services.ErrConfiguration, "updater", "compile pattern", "version_pattern needs a capture group", nil)
	}

	timeout := time.Duration(cfg.Update.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Updater{
		logger:         logging.NewComponentLogger(logger, "updater"),
		local:          local,
		client:         &http.Client{Timeout: timeout},
		toolDir:        toolDir,
		versionURL:     strings.TrimSpace(cfg.Update.VersionURL),
		downloadURL:    strings.TrimSpace(cfg.Update.DownloadURL),
		pattern:        pattern,
		maxLength:      cfg.Update.MaxVersionLength,
		versionTimeout: cfg.VersionTimeout(),
	}, nil
}

// ToolDir returns the install directory the updater manages.
func (u *Updater) ToolDir() string {
	return u.toolDir
}

// Versions fetches the local and published versions concurrently and waits
// for both.
func (u *Updater) Versions(ctx context.Context) (string, string, error) {
	var (
		wg                  sync.WaitGroup
		local, remote       string
		localErr, remoteErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		local, localErr = u.local.Version(ctx, u.versionTimeout)
	}()
	go func() {
		defer wg.Done()
		remote, remoteErr = u.fetchRemoteVersion(ctx)
	}()
	wg.Wait()

	if localErr != nil {
		return "", "", localErr
	}
	if remoteErr != nil {
		return "", "", remoteErr
	}
	return strings.TrimSpace(local), strings.TrimSpace(remote), nil
}

// Run compares versions and installs the published release when it differs.
// In simulation nothing on disk changes.
func (u *Updater) Run(ctx context.Context, simulate bool) (Result, error) {
	local, remote, err := u.Versions(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := u.checkVersion("local", local); err != nil {
		return Result{}, err
	}
	if err := u.checkVersion("published", remote); err != nil {
		return Result{}, err
	}

	result := Result{Local: local, Remote: remote}
	u.logger.Info("ffmpeg versions compared",
		logging.String("local_version", local),
		logging.String("remote_version", remote),
	)
	switch {
	case local == remote:
		result.Outcome = OutcomeUpToDate
		result.Message = fmt.Sprintf("ffmpeg %s is up to date", local)
		return result, nil
	case simulate:
		result.Outcome = OutcomeAvailable
		result.Message = fmt.Sprintf("ffmpeg %s is available (installed %s); remove --simulate to update", remote, local)
		return result, nil
	case u.downloadURL == "":
		result.Outcome = OutcomeAvailable
		result.Message = fmt.Sprintf("ffmpeg %s is available (installed %s); set update.download_url to install it", remote, local)
		return result, nil
	}

	if err := u.install(ctx, local, remote); err != nil {
		return result, err
	}
	result.Outcome = OutcomeUpdated
	result.Message = fmt.Sprintf("ffmpeg updated from %s to %s", local, remote)
	u.logger.Info("ffmpeg updated",
		logging.String("local_version", local),
		logging.String("remote_version", remote),
		logging.String("tool_dir", u.toolDir),
	)
	return result, nil
}

func (u *Updater) checkVersion(which, version string) error {
	if version == "" {
		return services.Wrap(services.ErrValidation, "updater", "compare versions", which+" version is empty", nil)
	}
	if u.maxLength > 0 && len(version) > u.maxLength {
		return services.Wrap(services.ErrValidation, "updater", "compare versions",
			fmt.Sprintf("%s version %q exceeds %d characters", which, version, u.maxLength), nil)
	}
	return nil
}
