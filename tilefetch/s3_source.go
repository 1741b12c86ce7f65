package tilefetch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3FileSource fetches tile targets (object keys) from an S3 bucket.
// Combine with HashPrefixResolver for tilezen-style hashed key layouts.
type S3FileSource struct {
	downloader    *s3manager.Downloader
	bucket        string
	requesterPays bool
}

func NewS3FileSource(bucket string, requesterPays bool) (*S3FileSource, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, err
	}

	downloader := s3manager.NewDownloader(
		sess,
		func(d *s3manager.Downloader) {
			// Pooled buffers keep large-object downloads from thrashing the GC.
			d.BufferProvider = s3manager.NewPooledBufferedWriterReadFromProvider(15 * 1024 * 1024)
		},
	)

	return &S3FileSource{
		downloader:    downloader,
		bucket:        bucket,
		requesterPays: requesterPays,
	}, nil
}

func (s *S3FileSource) Issue(target string, respond func(Response)) RequestHandle {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		buf := &aws.WriteAtBuffer{}
		input := &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(target),
		}

		if s.requesterPays {
			input.RequestPayer = aws.String("requester")
		}

		_, err := s.downloader.DownloadWithContext(ctx, buf, input)

		if ctx.Err() != nil {
			return
		}

		if err != nil {
			respond(Response{Err: fmt.Sprintf("unable to download s3://%s/%s: %v", s.bucket, target, err)})
			return
		}
		respond(Response{Data: buf.Bytes()})
	}()

	return &cancelHandle{cancel: cancel}
}
