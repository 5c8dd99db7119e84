package s3

import (
	"context"
	"errors"
	"fmt"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/gostratum/cloudx"
)

// MapS3Error converts S3 SDK errors to domain errors
func MapS3Error(err error, op, key string) error {
	if err == nil {
		return nil
	}

	// Already mapped
	var objErr *cloudx.ObjectError
	if errors.As(err, &objErr) {
		return err
	}

	// Context errors pass through so callers can errors.Is them
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &cloudx.ObjectError{Op: op, Key: key, Err: err}
	}

	// Typed S3 errors first
	var (
		noSuchKey    *types.NoSuchKey
		noSuchBucket *types.NoSuchBucket
		notFound     *types.NotFound
	)
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", cloudx.ErrNotFound, err)}
	case errors.As(err, &noSuchBucket):
		return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: bucket does not exist", cloudx.ErrNotFound)}
	}

	// Then API error codes, which cover services that only send the code
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if mapped := mapErrorCode(apiErr.ErrorCode()); mapped != nil {
			return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %s", mapped, apiErr.ErrorMessage())}
		}
	}

	// Finally the HTTP status, e.g. HEAD responses that carry no body
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		if mapped := cloudx.ErrorForStatus(respErr.HTTPStatusCode()); mapped != nil {
			return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", mapped, err)}
		}
	}

	// Default: wrap the original error
	return &cloudx.ObjectError{Op: op, Key: key, Err: err}
}

func mapErrorCode(code string) error {
	switch code {
	case "NoSuchKey", "NoSuchBucket", "NotFound", "404":
		return cloudx.ErrNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "Forbidden", "403":
		return cloudx.ErrPermissionDenied
	case "PreconditionFailed", "BucketAlreadyExists", "BucketAlreadyOwnedByYou", "InvalidObjectState":
		return cloudx.ErrConflict
	case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
		return cloudx.ErrUnavailable
	case "NotImplemented":
		return cloudx.ErrNotSupported
	}
	return nil
}
