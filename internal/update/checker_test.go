package update

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// releaseServer serves a minimal GitHub releases API fixture.
func releaseServer(t *testing.T, tag string) *httptest.Server {
	t.Helper()
	platform := DetectPlatform()
	handler := func(w http.ResponseWriter, r *http.Request) {
		body := fmt.Sprintf(`{
			"tag_name": %q,
			"html_url": "https://example.com/releases/%s",
			"body": "notes",
			"assets": [
				{"name": %q, "browser_download_url": "https://example.com/dl/archive"},
				{"name": "checksums.txt", "browser_download_url": "https://example.com/dl/checksums"}
			]
		}`, tag, tag, platform.ArtifactName())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
	return httptest.NewServer(http.HandlerFunc(handler))
}

func TestCheck_UpdateAvailable(t *testing.T) {
	server := releaseServer(t, "v1.3.0")
	defer server.Close()

	checker := NewGitHubChecker("1.2.0", "devcforge", "devc").WithBaseURL(server.URL)
	info, err := checker.Check("")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	if !info.Available {
		t.Error("Expected update to be available")
	}
	if info.CurrentVersion != "1.2.0" || info.LatestVersion != "1.3.0" {
		t.Errorf("Versions = %s -> %s, want 1.2.0 -> 1.3.0", info.CurrentVersion, info.LatestVersion)
	}
	if info.AssetURL == "" || info.ChecksumURL == "" {
		t.Error("Expected asset and checksum URLs for this platform")
	}
}

func TestCheck_AlreadyCurrent(t *testing.T) {
	server := releaseServer(t, "v1.2.0")
	defer server.Close()

	checker := NewGitHubChecker("1.2.0", "devcforge", "devc").WithBaseURL(server.URL)
	info, err := checker.Check("")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if info.Available {
		t.Error("No update should be reported at the same version")
	}
}

func TestCheck_OlderLatestRelease(t *testing.T) {
	// A yanked or re-pointed latest release can be older than the running
	// version; that must never read as an available update.
	server := releaseServer(t, "v1.2.9")
	defer server.Close()

	checker := NewGitHubChecker("1.3.0", "devcforge", "devc").WithBaseURL(server.URL)
	info, err := checker.Check("")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if info.Available {
		t.Error("An older latest release must not be reported as an update")
	}
	if info.LatestVersion != "1.2.9" {
		t.Errorf("LatestVersion = %s, want 1.2.9", info.LatestVersion)
	}
}

func TestCheck_PinnedOlderVersion(t *testing.T) {
	// An explicit version pin is honored even when it goes backwards.
	platform := DetectPlatform()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/devcforge/devc/releases/tags/v1.1.0" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"tag_name": "v1.1.0", "assets": [{"name": %q, "browser_download_url": "u"}]}`,
			platform.ArtifactName())
	}))
	defer server.Close()

	checker := NewGitHubChecker("1.3.0", "devcforge", "devc").WithBaseURL(server.URL)
	info, err := checker.Check("1.1.0")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !info.Available {
		t.Error("A pinned older version should be installable")
	}
}

func TestCheck_SpecificTag(t *testing.T) {
	platform := DetectPlatform()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/devcforge/devc/releases/tags/v1.4.0" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"tag_name": "v1.4.0", "assets": [{"name": %q, "browser_download_url": "u"}]}`,
			platform.ArtifactName())
	}))
	defer server.Close()

	checker := NewGitHubChecker("1.2.0", "devcforge", "devc").WithBaseURL(server.URL)
	info, err := checker.Check("1.4.0")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if info.LatestVersion != "1.4.0" {
		t.Errorf("LatestVersion = %s, want 1.4.0", info.LatestVersion)
	}
}

func TestCheck_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	checker := NewGitHubChecker("1.2.0", "devcforge", "devc").WithBaseURL(server.URL)
	if _, err := checker.Check(""); err == nil {
		t.Error("Expected error for API failure")
	}
}

func TestPlatformArtifactName(t *testing.T) {
	p := Platform{OS: "linux", Arch: "amd64"}
	if p.ArtifactName() != "devc_linux_amd64.tar.gz" {
		t.Errorf("ArtifactName() = %s, want devc_linux_amd64.tar.gz", p.ArtifactName())
	}
	if !p.IsSupported() {
		t.Error("linux/amd64 should be supported")
	}
	if (Platform{OS: "plan9", Arch: "amd64"}).IsSupported() {
		t.Error("plan9 should not be supported")
	}
}
