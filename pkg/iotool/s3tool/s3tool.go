// Package s3tool implements an IO-Tool that keeps each topology as an
// N-Triples object in an S3 bucket.
package s3tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dd0wney/cluso-topology/pkg/iotool"
)

const contentType = "application/n-triples"

// API is the subset of the S3 client the tool uses.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config selects the bucket and credentials.
type Config struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the AWS endpoint, for MinIO and similar.
	Endpoint     string
	UsePathStyle bool

	// Static credentials. When empty the default AWS chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// Tool stores topologies as S3 objects named <prefix><id>.nt.
type Tool struct {
	client API
	bucket string
	prefix string
}

var _ iotool.Tool = (*Tool)(nil)

// New wraps an existing client.
func New(client API, bucket, prefix string) *Tool {
	return &Tool{client: client, bucket: bucket, prefix: prefix}
}

// Open builds an S3 client from cfg.
func Open(ctx context.Context, cfg Config) (*Tool, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
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
	return New(client, cfg.Bucket, cfg.Prefix), nil
}

func (t *Tool) key(id string) string {
	return t.prefix + id + ".nt"
}

// classify turns an S3 error into a tool response. Errors that carry no
// S3 error code never reached the service and are returned as-is.
func classify(id string, err error) (iotool.Response, error) {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return iotool.Response{Code: iotool.CodeNotFound, Message: "topology " + id + " not found"}, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return iotool.Response{Code: iotool.CodeInternal, Message: apiErr.ErrorCode() + ": " + apiErr.ErrorMessage()}, nil
	}
	return iotool.Response{}, err
}

func (t *Tool) Request(ctx context.Context, id string) (iotool.Response, error) {
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key(id)),
	})
	if err != nil {
		return classify(id, err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return iotool.Response{}, fmt.Errorf("read object %s: %w", t.key(id), err)
	}
	return iotool.Response{
		Code:    iotool.CodeOK,
		Message: "OK",
		Data:    map[string]string{id: string(content)},
	}, nil
}

func (t *Tool) Store(ctx context.Context, id string, content []byte) (iotool.Response, error) {
	if id == "" {
		return iotool.Response{Code: iotool.CodeInvalid, Message: "topology id is required"}, nil
	}
	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(t.key(id)),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return classify(id, err)
	}
	return iotool.Response{Code: iotool.CodeOK, Message: "OK"}, nil
}

// Drop deletes the object. S3 deletes are idempotent, so existence is
// checked first to report CodeNotFound.
func (t *Tool) Drop(ctx context.Context, id string) (iotool.Response, error) {
	_, err := t.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key(id)),
	})
	if err != nil {
		return classify(id, err)
	}
	_, err = t.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key(id)),
	})
	if err != nil {
		return classify(id, err)
	}
	return iotool.Response{Code: iotool.CodeOK, Message: "OK"}, nil
}
