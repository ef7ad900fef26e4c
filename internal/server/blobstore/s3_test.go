package blobstore

import (
	"context"
	"errors"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func newTestStore() *S3Store {
	return &S3Store{bucket: "chunks"}
}

func TestExists_TrueOnHeadSuccess(t *testing.T) {
	orig := headObject
	defer func() { headObject = orig }()

	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		if *in.Bucket != "chunks" || *in.Key != "chunks/a" {
			t.Fatalf("unexpected head input: %s/%s", *in.Bucket, *in.Key)
		}
		return &s3.HeadObjectOutput{}, nil
	}

	ok, err := newTestStore().Exists(context.Background(), "chunks/a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected object to exist")
	}
}

func TestExists_FalseOnNotFound(t *testing.T) {
	orig := headObject
	defer func() { headObject = orig }()

	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return nil, &types.NotFound{}
	}

	ok, err := newTestStore().Exists(context.Background(), "chunks/a")
	if err != nil {
		t.Fatalf("404 must not be an error, got: %v", err)
	}
	if ok {
		t.Fatal("expected object to be absent")
	}
}

func TestExists_PropagatesOtherErrors(t *testing.T) {
	orig := headObject
	defer func() { headObject = orig }()

	boom := errors.New("connection refused")
	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return nil, boom
	}

	_, err := newTestStore().Exists(context.Background(), "chunks/a")
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped transport error, got %v", err)
	}
}

func TestPresignPut_ReturnsURL(t *testing.T) {
	orig := presignPutObject
	defer func() { presignPutObject = orig }()

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://store/chunks/a?sig=x"}, nil
	}

	url, err := newTestStore().PresignPut(context.Background(), "chunks/a", 15*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://store/chunks/a?sig=x" {
		t.Fatalf("unexpected url: %s", url)
	}
}

func TestPresignGet_PropagatesError(t *testing.T) {
	orig := presignGetObject
	defer func() { presignGetObject = orig }()

	boom := errors.New("presign failed")
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, boom
	}

	_, err := newTestStore().PresignGet(context.Background(), "chunks/a", 15*time.Minute)
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped error, got %v", err)
	}
}
