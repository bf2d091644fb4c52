// Package source opens sales data sources by URI. Bare paths and file://
// URIs read the local filesystem; s3://bucket/key reads an S3 object.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	schemeFile = "file"
	schemeS3   = "s3"
)

var ErrInvalidURI = errors.New("invalid source uri")

// Location is a parsed source URI.
type Location struct {
	Scheme string
	Path   string // file scheme
	Bucket string // s3 scheme
	Key    string // s3 scheme
}

func (l Location) String() string {
	if l.Scheme == schemeS3 {
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return l.Path
}

// Parse splits uri into a Location. Relative file paths are made absolute.
func Parse(uri string) (Location, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Location{}, fmt.Errorf("%w: empty", ErrInvalidURI)
	}

	if rest, ok := strings.CutPrefix(uri, "s3://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Location{}, fmt.Errorf("%w: %q needs s3://bucket/key", ErrInvalidURI, uri)
		}
		return Location{Scheme: schemeS3, Bucket: bucket, Key: key}, nil
	}

	path := strings.TrimPrefix(uri, "file://")
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return Location{Scheme: schemeFile, Path: filepath.Clean(path)}, nil
}

// Canonical returns a stable identity for uri, or uri itself if it cannot
// be parsed.
func Canonical(uri string) string {
	loc, err := Parse(uri)
	if err != nil {
		return uri
	}
	return loc.String()
}

// ObjectGetter is the subset of the S3 client used to read objects.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Config struct {
	Region  string
	Profile string
}

// Opener reads sources. The S3 client is created on the first s3:// open.
type Opener struct {
	s3cfg S3Config

	once    sync.Once
	client  ObjectGetter
	initErr error
}

func NewOpener(cfg S3Config) *Opener {
	return &Opener{s3cfg: cfg}
}

// NewOpenerWithClient uses client for every s3:// source.
func NewOpenerWithClient(client ObjectGetter) *Opener {
	o := &Opener{client: client}
	o.once.Do(func() {})
	return o
}

func (o *Opener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case schemeS3:
		return o.openS3(ctx, loc)
	default:
		f, err := os.Open(loc.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", loc.Path, err)
		}
		return f, nil
	}
}

func (o *Opener) openS3(ctx context.Context, loc Location) (io.ReadCloser, error) {
	client, err := o.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", loc, err)
	}
	return out.Body, nil
}

func (o *Opener) s3Client(ctx context.Context) (ObjectGetter, error) {
	o.once.Do(func() {
		var opts []func(*config.LoadOptions) error
		if o.s3cfg.Region != "" {
			opts = append(opts, config.WithRegion(o.s3cfg.Region))
		}
		if o.s3cfg.Profile != "" {
			opts = append(opts, config.WithSharedConfigProfile(o.s3cfg.Profile))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			o.initErr = fmt.Errorf("load aws config: %w", err)
			return
		}
		o.client = s3.NewFromConfig(awsCfg)
	})
	return o.client, o.initErr
}
