// Package snapshot archives store snapshots in an S3 bucket.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dd0wney/provenance-graph/pkg/logging"
)

const (
	extension   = ".snap"
	contentType = "application/octet-stream"
)

var (
	ErrInvalidName = errors.New("invalid snapshot name")
	ErrNotFound    = errors.New("snapshot not found")
)

// ObjectAPI is the subset of the S3 client the archive uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Snapshotter writes a full snapshot of a store.
type Snapshotter interface {
	Snapshot(w io.Writer) error
}

// Restorer replaces a store's contents from a snapshot.
type Restorer interface {
	Restore(r io.Reader) error
}

// Config locates the archive.
type Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
	// Endpoint overrides the S3 endpoint, e.g. for MinIO.
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"usePathStyle"`
	// Static keys replace the default credential chain when both are set.
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
}

// Info describes an archived snapshot.
type Info struct {
	Name         string    `json:"name"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Archive stores snapshots under <prefix>/<name>.snap.
type Archive struct {
	api    ObjectAPI
	bucket string
	prefix string
	logger logging.Logger
}

// NewArchive creates an archive over an existing client.
func NewArchive(api ObjectAPI, bucket, prefix string, logger logging.Logger) *Archive {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Archive{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With(logging.Component("snapshot")),
	}
}

// Connect builds an S3 client from the default AWS credential chain.
func Connect(ctx context.Context, cfg Config, logger logging.Logger) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("snapshot bucket is required")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewArchive(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// Key returns the object key of a snapshot name.
func (a *Archive) Key(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if a.prefix == "" {
		return name + extension, nil
	}
	return path.Join(a.prefix, name+extension), nil
}

// Push uploads a snapshot of src under name, replacing any previous one.
func (a *Archive) Push(ctx context.Context, name string, src Snapshotter) (*Info, error) {
	key, err := a.Key(name)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := src.Snapshot(&buf); err != nil {
		return nil, fmt.Errorf("take snapshot: %w", err)
	}
	size := int64(buf.Len())

	start := time.Now()
	_, err = a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	a.logger.Info("snapshot pushed",
		logging.String("bucket", a.bucket),
		logging.Path(key),
		logging.Int("bytes", int(size)),
		logging.Latency(time.Since(start)))
	return &Info{Name: name, Key: key, Size: size, LastModified: time.Now().UTC()}, nil
}

// Pull downloads the named snapshot into dst.
func (a *Archive) Pull(ctx context.Context, name string, dst Restorer) error {
	key, err := a.Key(name)
	if err != nil {
		return err
	}

	out, err := a.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return a.mapError(key, err)
	}
	defer out.Body.Close()

	if err := dst.Restore(out.Body); err != nil {
		return fmt.Errorf("restore %s: %w", key, err)
	}
	a.logger.Info("snapshot pulled", logging.String("bucket", a.bucket), logging.Path(key))
	return nil
}

// Delete removes the named snapshot.
func (a *Archive) Delete(ctx context.Context, name string) error {
	key, err := a.Key(name)
	if err != nil {
		return err
	}
	if _, err := a.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return a.mapError(key, err)
	}
	return nil
}

// List returns the archived snapshots, newest first.
func (a *Archive) List(ctx context.Context) ([]Info, error) {
	prefix := ""
	if a.prefix != "" {
		prefix = a.prefix + "/"
	}

	var out []Info
	p := s3.NewListObjectsV2Paginator(a.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			rest := strings.TrimPrefix(key, prefix)
			if strings.Contains(rest, "/") || !strings.HasSuffix(rest, extension) {
				continue
			}
			out = append(out, Info{
				Name:         strings.TrimSuffix(rest, extension),
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].LastModified.After(out[j].LastModified)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (a *Archive) mapError(key string, err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("%s: %w", key, err)
}
