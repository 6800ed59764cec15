package updater

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"mediatool/internal/services"
)

const maxVersionPageBytes = 1 << 20

func (u *Updater) fetchRemoteVersion(ctx context.Context) (string, error) {
	if u.versionURL == "" {
		return "", services.Wrap(services.ErrConfiguration, "updater", "fetch version", "update.version_url is empty", nil)
	}
	resp, err := u.get(ctx, u.versionURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVersionPageBytes))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "updater", "fetch version", "read body", err)
	}
	match := u.pattern.FindSubmatch(body)
	if match == nil {
		return "", services.Wrap(services.ErrValidation, "updater", "fetch version", "version pattern did not match "+u.versionURL, nil)
	}
	return strings.TrimSpace(string(match[1])), nil
}

func (u *Updater) download(ctx context.Context, url, dest string) error {
	resp, err := u.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmp := dest + ".partial"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrTransient, "updater", "download", url, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return os.Rename(tmp, dest)
}

func (u *Updater) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "updater", "build request", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "updater", "request", url, err)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		detail := fmt.Sprintf("%s returned %d", url, resp.StatusCode)
		if msg := strings.TrimSpace(string(body)); msg != "" {
			detail += ": " + msg
		}
		return nil, services.Wrap(services.ErrExternalTool, "updater", "request", detail, nil)
	}
	return resp, nil
}
