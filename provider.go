package cloudx

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Provider identifies the storage backend a URL points at
type Provider int

const (
	// ProviderS3 is Amazon S3 or an S3-compatible service
	ProviderS3 Provider = iota + 1
	// ProviderAzure is Azure Blob Storage / ADLS Gen2
	ProviderAzure
	// ProviderGCS is Google Cloud Storage
	ProviderGCS
	// ProviderFile is the local filesystem
	ProviderFile
	// ProviderHTTP is a plain HTTP(S) server
	ProviderHTTP
)

// String returns the provider name used in logs, metrics and errors
func (p Provider) String() string {
	switch p {
	case ProviderS3:
		return "s3"
	case ProviderAzure:
		return "azure"
	case ProviderGCS:
		return "gcs"
	case ProviderFile:
		return "file"
	case ProviderHTTP:
		return "http"
	default:
		return fmt.Sprintf("provider(%d)", int(p))
	}
}

// schemeProviders is the fixed scheme to provider mapping
var schemeProviders = map[string]Provider{
	"s3":    ProviderS3,
	"s3a":   ProviderS3,
	"az":    ProviderAzure,
	"azure": ProviderAzure,
	"adl":   ProviderAzure,
	"abfs":  ProviderAzure,
	"abfss": ProviderAzure,
	"gs":    ProviderGCS,
	"gcp":   ProviderGCS,
	"gcs":   ProviderGCS,
	"file":  ProviderFile,
	"http":  ProviderHTTP,
	"https": ProviderHTTP,
}

// ParseURL turns a URL or a filesystem path into an absolute URL.
//
// Input containing "://" is parsed as a URL. Anything else is treated as a
// path: relative paths are resolved against the working directory and the
// result is returned as a file:// URL.
func ParseURL(input string) (*url.URL, error) {
	if strings.Contains(input, "://") {
		return parseSchemeURL(input)
	}
	return FileURL(input)
}

func parseSchemeURL(input string) (*url.URL, error) {
	scheme, rest, _ := strings.Cut(input, "://")
	if strings.EqualFold(scheme, "file") && strings.Contains(rest, `\`) {
		// file://\c:\dir\file style input from Windows users
		return FileURL(strings.TrimLeft(rest, `\/`))
	}

	u, err := url.Parse(input)
	if err != nil {
		return nil, &ConfigError{Op: "parse_url", Key: input, Err: fmt.Errorf("%w: %v", ErrInvalidInput, err)}
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u, nil
}

// FileURL converts a filesystem path into a file:// URL.
func FileURL(path string) (*url.URL, error) {
	if path == "" {
		return nil, &ConfigError{Op: "parse_url", Err: fmt.Errorf("%w: empty path", ErrInvalidInput)}
	}

	if !isAbsPath(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, &ConfigError{Op: "parse_url", Key: path, Err: fmt.Errorf("%w: cannot resolve working directory: %v", ErrInvalidInput, err)}
		}
		path = filepath.Join(cwd, path)
	}

	slashed := filepath.ToSlash(path)
	if vol := windowsVolume(slashed); vol != "" {
		// c:/Users -> /C:/Users
		slashed = "/" + strings.ToUpper(vol) + slashed[len(vol):]
	}

	return &url.URL{Scheme: "file", Path: slashed}, nil
}

// FilePath returns the local path a file:// URL refers to
func FilePath(u *url.URL) (string, error) {
	if u == nil || u.Scheme != "file" {
		return "", &ConfigError{Op: "file_path", Err: fmt.Errorf("%w: not a file url", ErrInvalidInput)}
	}
	p := u.Path
	if vol := windowsVolume(strings.TrimPrefix(p, "/")); vol != "" {
		p = strings.TrimPrefix(p, "/")
	}
	return filepath.FromSlash(p), nil
}

// ClassifyURL maps a parsed URL to its provider
func ClassifyURL(u *url.URL) (Provider, error) {
	if u == nil {
		return 0, &ConfigError{Op: "classify", Err: fmt.Errorf("%w: nil url", ErrInvalidInput)}
	}
	p, ok := schemeProviders[strings.ToLower(u.Scheme)]
	if !ok {
		return 0, &ConfigError{Op: "classify", Key: u.Scheme, Err: fmt.Errorf("%w: unknown url scheme %q", ErrInvalidInput, u.Scheme)}
	}
	return p, nil
}

// ProviderFor parses input and classifies it in one step
func ProviderFor(input string) (Provider, *url.URL, error) {
	u, err := ParseURL(input)
	if err != nil {
		return 0, nil, err
	}
	p, err := ClassifyURL(u)
	if err != nil {
		return 0, nil, err
	}
	return p, u, nil
}

func isAbsPath(path string) bool {
	if filepath.IsAbs(path) {
		return true
	}
	// Drive paths are absolute regardless of the host OS
	return runtime.GOOS == "windows" && windowsVolume(filepath.ToSlash(path)) != "" && len(path) > 2 && (path[2] == '/' || path[2] == '\\')
}

// windowsVolume returns "c:" for paths starting with a drive letter
func windowsVolume(p string) string {
	if len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0]) {
		return p[:2]
	}
	return ""
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
