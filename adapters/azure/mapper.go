package azure

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/gostratum/cloudx"
)

// MapAzureError converts azblob errors to domain errors
func MapAzureError(err error, op, key string) error {
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

	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound):
		return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", cloudx.ErrNotFound, err)}
	case bloberror.HasCode(err, bloberror.AuthorizationFailure, bloberror.AuthenticationFailed,
		bloberror.AuthorizationPermissionMismatch, bloberror.InsufficientAccountPermissions):
		return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", cloudx.ErrPermissionDenied, err)}
	case bloberror.HasCode(err, bloberror.ConditionNotMet, bloberror.BlobAlreadyExists, bloberror.LeaseIDMissing):
		return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", cloudx.ErrConflict, err)}
	case bloberror.HasCode(err, bloberror.ServerBusy, bloberror.OperationTimedOut, bloberror.InternalError):
		return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", cloudx.ErrUnavailable, err)}
	}

	// HEAD responses carry the code only in a header the SDK may not surface
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		if mapped := cloudx.ErrorForStatus(respErr.StatusCode); mapped != nil {
			return &cloudx.ObjectError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", mapped, err)}
		}
	}

	return &cloudx.ObjectError{Op: op, Key: key, Err: err}
}
