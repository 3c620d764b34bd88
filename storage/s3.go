package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3 is the object-storage backend. Writes go through the upload manager so
// large bodies are multiparted; temporary URLs are presigned GETs.
type S3 struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	bucket   string
	region   string
}

func NewS3(cfg aws.Config, bucket string) *S3 {
	client := s3.NewFromConfig(cfg)
	return &S3{
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		region:   cfg.Region,
	}
}

func (s *S3) Put(ctx context.Context, path string, contents []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(CleanPath(path)),
		Body:   bytes.NewReader(contents),
	})
	return err
}

func (s *S3) PutFileAs(ctx context.Context, dir, name string, content io.Reader) (string, error) {
	key := CleanPath(dir + "/" + name)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   content,
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *S3) Get(ctx context.Context, path string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(CleanPath(path)),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(CleanPath(path)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3) Size(ctx context.Context, path string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(CleanPath(path)),
	})
	if err != nil {
		return 0, err
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *S3) Delete(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	objects := make([]types.ObjectIdentifier, len(paths))
	for i, p := range paths {
		objects[i] = types.ObjectIdentifier{Key: aws.String(CleanPath(p))}
	}
	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	return err
}

func (s *S3) Files(ctx context.Context, dir string, recursive bool) ([]ObjectAttrs, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(listPrefix(dir)),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	var objs []ObjectAttrs
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			objs = append(objs, ObjectAttrs{Path: key, Size: aws.ToInt64(obj.Size)})
		}
	}
	return objs, nil
}

func (s *S3) Directories(ctx context.Context, dir string, recursive bool) ([]string, error) {
	prefix := listPrefix(dir)

	if !recursive {
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket:    aws.String(s.bucket),
			Prefix:    aws.String(prefix),
			Delimiter: aws.String("/"),
		})
		var dirs []string
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			for _, cp := range page.CommonPrefixes {
				dirs = append(dirs, strings.TrimSuffix(aws.ToString(cp.Prefix), "/"))
			}
		}
		return dirs, nil
	}

	// Recursive listings have no delimiter, so prefixes are reconstructed
	// from the object keys.
	objs, err := s.Files(ctx, dir, true)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, obj := range objs {
		parts := strings.Split(obj.Path, "/")
		for i := 1; i < len(parts); i++ {
			seen[strings.Join(parts[:i], "/")] = struct{}{}
		}
	}
	delete(seen, strings.TrimSuffix(prefix, "/"))
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs, nil
}

func (s *S3) DeleteDirectory(ctx context.Context, dir string) error {
	objs, err := s.Files(ctx, dir, true)
	if err != nil {
		return err
	}
	paths := make([]string, len(objs))
	for i, obj := range objs {
		paths[i] = obj.Path
	}
	return s.Delete(ctx, paths...)
}

func (s *S3) URL(path string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, CleanPath(path))
}

func (s *S3) TemporaryURL(ctx context.Context, path string, expiresAt time.Time) (string, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return "", fmt.Errorf("s3: expiry %s is in the past", expiresAt)
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(CleanPath(path)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func listPrefix(dir string) string {
	dir = CleanPath(dir)
	if dir == "" {
		return ""
	}
	return dir + "/"
}
