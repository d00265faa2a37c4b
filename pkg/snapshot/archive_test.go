package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dd0wney/provenance-graph/pkg/logging"
	"github.com/dd0wney/provenance-graph/pkg/storage"
)

type fakeObject struct {
	data     []byte
	modified time.Time
}

// fakeS3 keeps objects in memory and answers one page per listing.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	clock   time.Time
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject), clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Minute)
	f.objects[aws.ToString(in.Key)] = fakeObject{data: data, modified: f.clock}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		obj := f.objects[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modified),
		})
	}
	return out, nil
}

func seededStore(t *testing.T) *storage.GraphStorage {
	t.Helper()
	gs := storage.NewGraphStorage()
	_, err := gs.MergeOnID(context.Background(), "Node", "m1",
		map[string]storage.Value{"definitionId": storage.StringValue("Simulation Model")}, nil)
	if err != nil {
		t.Fatalf("MergeOnID failed: %v", err)
	}
	return gs
}

func TestKey(t *testing.T) {
	a := NewArchive(newFakeS3(), "bucket", "/backups/", logging.NewNopLogger())
	bare := NewArchive(newFakeS3(), "bucket", "", logging.NewNopLogger())

	tests := []struct {
		archive *Archive
		name    string
		want    string
		wantErr bool
	}{
		{a, "nightly", "backups/nightly.snap", false},
		{bare, "nightly", "nightly.snap", false},
		{a, "", "", true},
		{a, "a/b", "", true},
		{a, "..", "", true},
	}
	for _, tt := range tests {
		got, err := tt.archive.Key(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidName) {
				t.Errorf("Key(%q) error = %v, want ErrInvalidName", tt.name, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Key(%q) = %q, %v; want %q", tt.name, got, err, tt.want)
		}
	}
}

func TestPushPull(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	a := NewArchive(api, "bucket", "backups", logging.NewNopLogger())

	info, err := a.Push(ctx, "nightly", seededStore(t))
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if info.Key != "backups/nightly.snap" || info.Size == 0 {
		t.Errorf("Unexpected info %+v", info)
	}

	restored := storage.NewGraphStorage()
	if err := a.Pull(ctx, "nightly", restored); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	n, err := restored.GetNode(ctx, "Node", "m1")
	if err != nil {
		t.Fatalf("Restored store is missing m1: %v", err)
	}
	if n.StringProperty("definitionId") != "Simulation Model" {
		t.Errorf("Unexpected restored node %+v", n)
	}
}

func TestPullMissing(t *testing.T) {
	a := NewArchive(newFakeS3(), "bucket", "backups", logging.NewNopLogger())
	err := a.Pull(context.Background(), "absent", storage.NewGraphStorage())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestPushFailure(t *testing.T) {
	api := newFakeS3()
	api.putErr = errors.New("access denied")
	a := NewArchive(api, "bucket", "", logging.NewNopLogger())

	if _, err := a.Push(context.Background(), "nightly", seededStore(t)); err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Fatalf("Expected upload error, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	a := NewArchive(api, "bucket", "backups", logging.NewNopLogger())
	gs := seededStore(t)

	for _, name := range []string{"first", "second"} {
		if _, err := a.Push(ctx, name, gs); err != nil {
			t.Fatalf("Push(%s) failed: %v", name, err)
		}
	}
	// Objects outside the archive layout are ignored.
	api.objects["backups/nested/third.snap"] = fakeObject{data: []byte("x"), modified: time.Now()}
	api.objects["backups/notes.txt"] = fakeObject{data: []byte("x"), modified: time.Now()}
	api.objects["other/fourth.snap"] = fakeObject{data: []byte("x"), modified: time.Now()}

	infos, err := a.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "second" || infos[1].Name != "first" {
		t.Fatalf("Expected [second first], got %+v", infos)
	}

	if err := a.Delete(ctx, "first"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	infos, err = a.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "second" {
		t.Errorf("Expected only second after delete, got %+v", infos)
	}
}

func TestConnectRequiresBucket(t *testing.T) {
	if _, err := Connect(context.Background(), Config{}, logging.NewNopLogger()); err == nil {
		t.Fatal("Expected an error without a bucket")
	}
}

func TestConnectWithStaticKeys(t *testing.T) {
	cfg := Config{
		Bucket:          "bucket",
		Region:          "eu-west-1",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	}
	a, err := Connect(context.Background(), cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	client, ok := a.api.(*s3.Client)
	if !ok {
		t.Fatalf("Expected an s3 client, got %T", a.api)
	}
	opts := client.Options()
	if !opts.UsePathStyle || opts.BaseEndpoint == nil || *opts.BaseEndpoint != cfg.Endpoint {
		t.Errorf("Unexpected client options: path style %v, endpoint %v", opts.UsePathStyle, opts.BaseEndpoint)
	}
	creds, err := opts.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if creds.AccessKeyID != "minio" || creds.SecretAccessKey != "minio123" {
		t.Errorf("Unexpected credentials %+v", creds)
	}
}
