// Package cloudx resolves object storage URLs into configured provider
// clients.
//
// A URL (or a bare filesystem path) is classified to a Provider by its
// scheme. Untyped key/value overrides are typed against that provider's key
// set, merged over the environment and, for S3, over the ~/.aws credential
// files and a discovered bucket region. The result is handed to the
// provider's Builder which constructs the SDK client with the shared retry
// and transport policy.
//
// The package is designed to be imported from the module root:
//
//	import "github.com/gostratum/cloudx"
//
// Builders live in their own packages so applications only link the SDKs
// they use:
//
//	adapters/s3     Amazon S3 and S3-compatible services
//	adapters/azure  Azure Blob Storage and ADLS Gen2
//	adapters/gcs    Google Cloud Storage
//	adapters/httpx  plain HTTP(S) servers
//	adapters/local  the local filesystem
//
// Use the Fx module (cloudx.Module) together with the adapter modules, or
// NewRegistry with builders created by hand. A provider without a registered
// builder returns ErrFeatureUnavailable.
package cloudx
