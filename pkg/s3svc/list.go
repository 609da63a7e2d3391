package s3svc

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"photocat/pkg/dto"
)

// ListPage returns one page of objects under the given key prefix. The
// continuation token is the one returned by the previous page, or empty for
// the first page. S3 continuation tokens remain valid across requests, which
// is what lets a preempted full scan resume from where it left off.
func (s *Service) ListPage(ctx context.Context, prefix, token string, pageSize int32) (dto.ListPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.cfg.Bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(pageSize),
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	out, err := s.awsS3Client.ListObjectsV2(ctx, input)
	if err != nil {
		return dto.ListPage{}, fmt.Errorf("ListPage: error of ListObjectsV2: %w", err)
	}

	page := dto.ListPage{
		Objects:     make([]dto.ObjectInfo, 0, len(out.Contents)),
		NextToken:   aws.ToString(out.NextContinuationToken),
		IsTruncated: aws.ToBool(out.IsTruncated),
	}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		// Zero-byte folder markers carry no file content.
		if strings.HasSuffix(key, "/") {
			continue
		}
		info := dto.ObjectInfo{
			Key:  key,
			Size: aws.ToInt64(obj.Size),
			ETag: strings.Trim(aws.ToString(obj.ETag), `"`),
		}
		if obj.LastModified != nil {
			info.LastModified = *obj.LastModified
		}
		page.Objects = append(page.Objects, info)
	}
	return page, nil
}
