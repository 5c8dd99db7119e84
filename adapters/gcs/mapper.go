package gcs

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/gostratum/cloudx"
)

// MapGCSError converts storage client errors to domain errors
func MapGCSError(err error, op, key string) error {
	if err == nil {
		return nil
	}

	var objErr *cloudx.ObjectError
	if errors.As(err, &objErr) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &cloudx.ObjectError{Op: op, Key: key, Err: err}
	}

	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", cloudx.ErrNotFound, err)}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if mapped := cloudx.ErrorForStatus(apiErr.Code); mapped != nil {
			return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", mapped, err)}
		}
	}

	return &cloudx.ObjectError{Op: op, Key: key, Err: err}
}
