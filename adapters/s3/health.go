package s3

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// pingTimeout bounds a single readiness probe
const pingTimeout = 2 * time.Second

// Ping checks that the bucket is reachable with the configured credentials
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.loc.Bucket),
	})
	if err != nil {
		return MapS3Error(err, "ping", s.loc.Bucket)
	}
	return nil
}
