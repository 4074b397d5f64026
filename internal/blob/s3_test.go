package blob

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/inventory/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObjects struct {
	calls  []*s3.DeleteObjectsInput
	errs   []types.Error
	failed error
}

func (f *fakeObjects) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.calls = append(f.calls, in)
	if f.failed != nil {
		return nil, f.failed
	}
	return &s3.DeleteObjectsOutput{Errors: f.errs}, nil
}

type fakePresign struct {
	expires time.Duration
	put     *s3.PutObjectInput
}

func (f *fakePresign) options(opts []func(*s3.PresignOptions)) {
	var o s3.PresignOptions
	for _, fn := range opts {
		fn(&o)
	}
	f.expires = o.Expires
}

func (f *fakePresign) PresignPutObject(_ context.Context, in *s3.PutObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.options(opts)
	f.put = in
	return &v4.PresignedHTTPRequest{URL: "https://bucket.example/" + aws.ToString(in.Key) + "?put"}, nil
}

func (f *fakePresign) PresignGetObject(_ context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.options(opts)
	if aws.ToString(in.Key) == "broken" {
		return nil, errors.New("signer unavailable")
	}
	return &v4.PresignedHTTPRequest{URL: "https://bucket.example/" + aws.ToString(in.Key) + "?get"}, nil
}

func keysOf(in *s3.DeleteObjectsInput) []string {
	out := make([]string, len(in.Delete.Objects))
	for i, o := range in.Delete.Objects {
		out[i] = aws.ToString(o.Key)
	}
	return out
}

// ============================================================================
// DeleteObjects
// ============================================================================

func TestDeleteObjects(t *testing.T) {
	objects := &fakeObjects{}
	s := New(objects, &fakePresign{}, "images")

	if err := s.DeleteObjects(context.Background(), []string{"a.jpg", "b.jpg", "a.jpg", ""}); err != nil {
		t.Fatalf("DeleteObjects() error = %v", err)
	}

	if len(objects.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(objects.calls))
	}
	in := objects.calls[0]
	if got, want := keysOf(in), []string{"a.jpg", "b.jpg"}; !slices.Equal(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if aws.ToString(in.Bucket) != "images" || !aws.ToBool(in.Delete.Quiet) {
		t.Errorf("bucket = %q quiet = %v", aws.ToString(in.Bucket), aws.ToBool(in.Delete.Quiet))
	}
}

func TestDeleteObjects_Batches(t *testing.T) {
	objects := &fakeObjects{}
	s := New(objects, &fakePresign{}, "images")

	keys := make([]string, maxDeleteBatch+5)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%d", i)
	}
	if err := s.DeleteObjects(context.Background(), keys); err != nil {
		t.Fatalf("DeleteObjects() error = %v", err)
	}
	if len(objects.calls) != 2 || len(objects.calls[1].Delete.Objects) != 5 {
		t.Errorf("calls = %d, want 2 with 5 keys in the second", len(objects.calls))
	}
}

func TestDeleteObjects_Empty(t *testing.T) {
	objects := &fakeObjects{}
	if err := New(objects, &fakePresign{}, "images").DeleteObjects(context.Background(), nil); err != nil {
		t.Errorf("DeleteObjects(nil) error = %v", err)
	}
	if len(objects.calls) != 0 {
		t.Errorf("calls = %d, want 0", len(objects.calls))
	}
}

func TestDeleteObjects_Errors(t *testing.T) {
	t.Run("partial failure", func(t *testing.T) {
		objects := &fakeObjects{errs: []types.Error{{Key: aws.String("a.jpg"), Code: aws.String("AccessDenied")}}}
		err := New(objects, &fakePresign{}, "images").DeleteObjects(context.Background(), []string{"a.jpg"})
		if err == nil || !strings.Contains(err.Error(), "a.jpg (AccessDenied)") {
			t.Errorf("DeleteObjects() error = %v, want partial failure naming a.jpg", err)
		}
	})

	t.Run("request failure", func(t *testing.T) {
		cause := errors.New("connection reset")
		objects := &fakeObjects{failed: cause}
		err := New(objects, &fakePresign{}, "images").DeleteObjects(context.Background(), []string{"a.jpg"})
		if !errors.Is(err, cause) {
			t.Errorf("DeleteObjects() error = %v, want %v", err, cause)
		}
	})
}

// ============================================================================
// Presigning
// ============================================================================

func TestPresignPut(t *testing.T) {
	presign := &fakePresign{}
	s := New(&fakeObjects{}, presign, "images")

	url, err := s.PresignPut(context.Background(), "uploads/a.png", "image/png", time.Minute)
	if err != nil {
		t.Fatalf("PresignPut() error = %v", err)
	}
	if url != "https://bucket.example/uploads/a.png?put" {
		t.Errorf("PresignPut() = %q", url)
	}
	if presign.expires != time.Minute {
		t.Errorf("expires = %v, want %v", presign.expires, time.Minute)
	}
	if aws.ToString(presign.put.ContentType) != "image/png" {
		t.Errorf("content type = %q, want image/png", aws.ToString(presign.put.ContentType))
	}
}

func TestPresignGet(t *testing.T) {
	presign := &fakePresign{}
	s := New(&fakeObjects{}, presign, "images")

	url, err := s.PresignGet(context.Background(), "a.png", 30*time.Second)
	if err != nil || url != "https://bucket.example/a.png?get" {
		t.Errorf("PresignGet() = %q, %v", url, err)
	}
	if presign.expires != 30*time.Second {
		t.Errorf("expires = %v, want 30s", presign.expires)
	}

	if _, err := s.PresignGet(context.Background(), "broken", time.Second); err == nil {
		t.Error("PresignGet(broken) error = nil, want error")
	}
}

func TestOpen_NoBucket(t *testing.T) {
	if _, err := Open(context.Background(), config.S3Config{Region: "us-east-1"}); !errors.Is(err, ErrNoBucket) {
		t.Errorf("Open() error = %v, want ErrNoBucket", err)
	}
}
