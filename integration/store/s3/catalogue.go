package s3

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrymomot/certkeeper/core/logger"
	"github.com/dmitrymomot/certkeeper/core/request"
)

// ListRequests reads every request document under requests/. A document that
// fails to parse is logged and skipped; only a listing failure aborts the
// scan.
func (s *Store) ListRequests(ctx context.Context) ([]request.Request, error) {
	prefix := path.Join(s.prefix, "requests") + "/"

	var reqs []request.Request
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3aws.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, classifyError(err, "list requests")
		}

		for _, obj := range out.Contents {
			if obj.Key == nil || !strings.HasSuffix(*obj.Key, ".json") {
				continue
			}
			data, err := s.getObject(ctx, *obj.Key)
			if err != nil {
				s.log.Error("request document unreadable, skipping",
					slog.String("object", *obj.Key), logger.Error(err))
				continue
			}
			req, err := request.Parse(data)
			if err != nil {
				s.log.Error("request document invalid, skipping",
					slog.String("object", *obj.Key), logger.Error(err))
				continue
			}
			reqs = append(reqs, req)
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	return reqs, nil
}
