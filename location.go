package cloudx

import (
	"fmt"
	"net/url"
	"strings"
)

// Location is a classified storage URL split into bucket and key prefix
type Location struct {
	// Provider is the backend the URL classifies to
	Provider Provider

	// URL is the normalized URL
	URL *url.URL

	// Bucket is the bucket or container name. For abfs(s) URLs it comes from
	// the user part (container@account.dfs.core.windows.net).
	Bucket string

	// Account is the storage account for abfs(s) URLs
	Account string

	// Prefix is the object key prefix without leading or trailing slashes
	Prefix string
}

// ParseLocation classifies rawURL and extracts bucket and prefix
func ParseLocation(rawURL string) (Location, error) {
	provider, u, err := ProviderFor(rawURL)
	if err != nil {
		return Location{}, err
	}

	loc := Location{
		Provider: provider,
		URL:      u,
		Bucket:   u.Host,
		Prefix:   strings.Trim(u.Path, "/"),
	}

	switch provider {
	case ProviderFile:
		loc.Bucket = ""
		loc.Prefix = u.Path
		return loc, nil
	case ProviderAzure:
		if u.User != nil {
			loc.Bucket = u.User.Username()
			loc.Account, _, _ = strings.Cut(u.Hostname(), ".")
		}
	}

	if loc.Bucket == "" && provider != ProviderHTTP {
		return Location{}, &ConfigError{
			Op:       "parse_location",
			Provider: provider,
			Key:      rawURL,
			Err:      fmt.Errorf("%w: url has no bucket", ErrInvalidInput),
		}
	}
	return loc, nil
}

// Join returns the full object key for key below the location prefix
func (l Location) Join(key string) string {
	key = strings.TrimPrefix(key, "/")
	if l.Prefix == "" {
		return key
	}
	if key == "" {
		return l.Prefix
	}
	return l.Prefix + "/" + key
}

// Strip removes the location prefix from a full object key
func (l Location) Strip(fullKey string) string {
	if l.Prefix == "" || fullKey == l.Prefix {
		return strings.TrimPrefix(fullKey, l.Prefix)
	}
	return strings.TrimPrefix(fullKey, l.Prefix+"/")
}
