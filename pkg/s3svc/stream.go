package s3svc

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// OpenStream opens a byte stream for one object. The caller owns the stream
// and must close it; closing early (before the body is drained) is the
// expected way to abandon the remainder of a large object.
func (s *Service) OpenStream(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.awsS3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("OpenStream: error of GetObject: %w", err)
	}
	return out.Body, nil
}
