package pkgmgr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Repo describes an out-of-band package source a step needs before its
// package becomes installable. Only the fields for the active manager are
// consulted; AddRepo is a no-op for managers with nothing configured.
type Repo struct {
	// Name keys the apt keyring and source-list files.
	Name string

	// apt: signing key URL plus a full "deb [...] ..." source line.
	AptKeyURL     string
	AptSourceLine string

	// brew tap, e.g. "1password/tap".
	BrewTap string

	// scoop bucket: "<name> <git-url>" or just a known bucket name.
	ScoopBucket string
}

// AddRepo registers the repository described by repo with the active
// manager. Managers whose default source already carries the packages
// (winget, choco) need nothing and return nil.
func (a *Adapter) AddRepo(ctx context.Context, repo Repo) error {
	switch a.Kind {
	case Apt:
		return a.addAptRepo(ctx, repo)
	case Brew:
		if repo.BrewTap == "" {
			return nil
		}
		return a.Exec(ctx, []string{"brew", "tap", repo.BrewTap})
	case Scoop:
		if repo.ScoopBucket == "" {
			return nil
		}
		argv := append([]string{"scoop", "bucket", "add"}, strings.Fields(repo.ScoopBucket)...)
		return a.Exec(ctx, argv)
	default:
		return nil
	}
}

// addAptRepo downloads the signing key into /usr/share/keyrings and writes a
// source list entry. Both paths are root-owned, so the writes go through the
// elevation prefix like any other apt invocation.
func (a *Adapter) addAptRepo(ctx context.Context, repo Repo) error {
	if repo.AptKeyURL == "" || repo.AptSourceLine == "" {
		return nil
	}
	if repo.Name == "" {
		return fmt.Errorf("apt repo needs a name for its keyring file")
	}

	tmp, err := os.CreateTemp("", "rig-key-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := downloadTo(ctx, repo.AptKeyURL, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("download signing key %s: %w", repo.AptKeyURL, err)
	}
	tmp.Close()

	keyring := "/usr/share/keyrings/" + repo.Name + ".gpg"
	argv, err := a.elevate(dearmorArgs(tmp.Name(), keyring))
	if err != nil {
		return err
	}
	if err := a.Exec(ctx, argv); err != nil {
		return fmt.Errorf("install keyring %s: %w", keyring, err)
	}

	list := "/etc/apt/sources.list.d/" + repo.Name + ".list"
	argv, err = a.elevate([]string{"sh", "-c",
		fmt.Sprintf("printf '%%s\\n' %q > %s", repo.AptSourceLine, list)})
	if err != nil {
		return err
	}
	if err := a.Exec(ctx, argv); err != nil {
		return fmt.Errorf("write source list %s: %w", list, err)
	}
	return nil
}

// dearmorArgs converts the downloaded key at src into the binary keyring apt
// expects at dst. Vendors publish signing keys ASCII-armored (.asc), and a
// signed-by= source line wants the dearmored form.
func dearmorArgs(src, dst string) []string {
	return []string{"sh", "-c",
		fmt.Sprintf("gpg --dearmor < %s > %s && chmod 0644 %s", src, dst, dst)}
}

func downloadTo(ctx context.Context, url string, dst *os.File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "rig/1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	_, err = io.Copy(dst, resp.Body)
	return err
}
