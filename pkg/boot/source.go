package boot

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/deskroute/internal/errors"
)

// Source fetches a raw boot document.
type Source interface {
	// Name identifies the document; its extension selects the format.
	Name() string

	// Fetch returns the document's bytes.
	Fetch(ctx context.Context) ([]byte, error)
}

// FileSource reads the boot document from the local filesystem.
type FileSource struct {
	Path string
}

// Name implements Source.
func (s FileSource) Name() string { return s.Path }

// Fetch implements Source.
func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.New(errors.CodeBootUnreadable).
			WithDetail("Could not read " + s.Path).
			Wrap(err)
	}
	return data, nil
}

// ObjectGetter is the part of the S3 client an S3Source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the boot document from an S3 object.
//
// Example usage:
//
//	src := boot.S3Source{Client: boot.NewS3Client("eu-west-1"), Bucket: "desk", Key: "boot.yaml"}
//	data, err := boot.Load(ctx, src)
type S3Source struct {
	Client ObjectGetter
	Bucket string
	Key    string
}

// Name implements Source.
func (s S3Source) Name() string {
	return "s3://" + s.Bucket + "/" + s.Key
}

// Fetch implements Source.
func (s S3Source) Fetch(ctx context.Context) ([]byte, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, errors.New(errors.CodeBootUnreadable).
			WithDetail("Could not get " + s.Name()).
			Wrap(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.New(errors.CodeBootUnreadable).Wrap(err)
	}
	return data, nil
}

// NewS3Client returns an S3 client for region using the standard
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN variables.
func NewS3Client(region string) *s3.Client {
	creds := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "Environment",
		}, nil
	})
	return s3.New(s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(creds),
	})
}

// OpenSource parses a boot source: a file path, a file:// URL or an
// s3://bucket/key URL. newClient is called for S3 sources; nil means
// NewS3Client(region).
func OpenSource(ref, region string, newClient func(region string) ObjectGetter) (Source, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, errors.New(errors.CodeBootSource).WithSuggestion("Set boot.source to a file path or s3://bucket/key")
	}
	if !strings.Contains(ref, "://") {
		return FileSource{Path: ref}, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, errors.New(errors.CodeBootSource).Wrap(err)
	}
	switch u.Scheme {
	case "file":
		return FileSource{Path: u.Path}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, errors.New(errors.CodeBootSource).
				WithDetail("S3 sources need a bucket and a key").
				WithExample("s3://desk-config/boot.yaml")
		}
		if newClient == nil {
			newClient = func(region string) ObjectGetter { return NewS3Client(region) }
		}
		return S3Source{Client: newClient(region), Bucket: u.Host, Key: key}, nil
	default:
		return nil, errors.New(errors.CodeBootSource).
			WithDetail("Scheme " + u.Scheme + " is not supported")
	}
}
