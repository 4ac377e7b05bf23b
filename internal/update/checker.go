package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// GitHubChecker checks for updates via the GitHub releases API.
type GitHubChecker struct {
	currentVersion string
	githubToken    string
	owner          string
	repo           string
	client         *http.Client
	baseURL        string // overridable for tests
}

// githubRelease is the subset of the GitHub release response we consume.
type githubRelease struct {
	TagName    string `json:"tag_name"`
	Body       string `json:"body"`
	HTMLURL    string `json:"html_url"`
	Prerelease bool   `json:"prerelease"`
	Assets     []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// NewGitHubChecker creates a checker for the given release repository.
func NewGitHubChecker(currentVersion, owner, repo string) *GitHubChecker {
	return &GitHubChecker{
		currentVersion: currentVersion,
		owner:          owner,
		repo:           repo,
		client:         &http.Client{Timeout: 30 * time.Second},
		baseURL:        "https://api.github.com",
	}
}

// WithToken sets an optional GitHub token to avoid rate limiting.
func (c *GitHubChecker) WithToken(token string) *GitHubChecker {
	c.githubToken = token
	return c
}

// WithBaseURL overrides the API endpoint, for tests.
func (c *GitHubChecker) WithBaseURL(url string) *GitHubChecker {
	c.baseURL = url
	return c
}

// Check fetches release metadata and compares it against the running
// version. With an empty targetVersion the latest release is used;
// otherwise the named tag is fetched.
func (c *GitHubChecker) Check(targetVersion string) (*Info, error) {
	var release *githubRelease
	var err error
	if targetVersion == "" {
		release, err = c.getRelease("latest")
	} else {
		release, err = c.getRelease("tags/v" + NormalizeVersion(targetVersion))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release: %w", err)
	}

	currentVer, err := ParseVersion(c.currentVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid current version: %w", err)
	}
	releaseVer, err := ParseVersion(release.TagName)
	if err != nil {
		return nil, fmt.Errorf("invalid release version: %w", err)
	}

	assetURL, checksumURL := findAssetURLs(release, DetectPlatform())

	// "latest" only counts as an update when it is actually newer; a
	// yanked or re-pointed latest release must not trigger a downgrade.
	// An explicitly pinned version is honored in either direction.
	available := releaseVer.IsGreaterThan(currentVer)
	if targetVersion != "" {
		available = releaseVer.Compare(currentVer) != 0
	}

	return &Info{
		Available:      available,
		CurrentVersion: NormalizeVersion(c.currentVersion),
		LatestVersion:  NormalizeVersion(release.TagName),
		ReleaseURL:     release.HTMLURL,
		ReleaseNotes:   release.Body,
		AssetURL:       assetURL,
		ChecksumURL:    checksumURL,
	}, nil
}

func (c *GitHubChecker) getRelease(ref string) (*githubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/%s", c.baseURL, c.owner, c.repo, ref)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.githubToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.githubToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release response: %w", err)
	}
	return &release, nil
}

// findAssetURLs locates the platform archive and checksums file in a release.
func findAssetURLs(release *githubRelease, platform Platform) (string, string) {
	artifact := platform.ArtifactName()
	var assetURL, checksumURL string
	for _, asset := range release.Assets {
		switch asset.Name {
		case artifact:
			assetURL = asset.BrowserDownloadURL
		case "checksums.txt":
			checksumURL = asset.BrowserDownloadURL
		}
	}
	return assetURL, checksumURL
}
