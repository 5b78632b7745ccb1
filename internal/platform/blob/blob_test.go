package blob

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/disintegration/imaging"
	"github.com/phrazzld/inkpipe/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	err     error
	input   *s3.GetObjectInput
	hasDL   bool
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = in
	_, f.hasDL = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader(data)),
		ContentType: aws.String("image/jpeg"),
	}, nil
}

func encodeImage(t *testing.T, w, h int, format imaging.Format) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

func blobConfig() config.BlobConfig {
	return config.BlobConfig{Bucket: "ink", Region: "us-east-1", DownloadTimeout: time.Second, MaxImageEdge: 256}
}

func TestDownscale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		w, h         int
		maxEdge      int
		wantW, wantH int
		sourceFormat imaging.Format
	}{
		{"landscape shrinks", 2048, 1024, 1024, 1024, 512, imaging.JPEG},
		{"portrait shrinks", 300, 1200, 600, 150, 600, imaging.PNG},
		{"small image kept", 200, 100, 1024, 200, 100, imaging.PNG},
		{"default edge", 3000, 1500, 0, DefaultMaxImageEdge, DefaultMaxImageEdge / 2, imaging.JPEG},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Downscale(encodeImage(t, tt.w, tt.h, tt.sourceFormat), tt.maxEdge)
			require.NoError(t, err)
			assert.Equal(t, "image/png", got.MIMEType)

			img, err := imaging.Decode(bytes.NewReader(got.Data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, img.Bounds().Dx())
			assert.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

func TestDownscaleRejectsGarbage(t *testing.T) {
	t.Parallel()
	_, err := Downscale([]byte("not an image"), 100)
	assert.Error(t, err)
}

func TestS3StoreFetchImage(t *testing.T) {
	t.Parallel()

	fake := &fakeS3{objects: map[string][]byte{"ink/1.jpg": encodeImage(t, 1000, 500, imaging.JPEG)}}
	s := newS3Store(fake, blobConfig(), nil)

	img, err := s.FetchImage(context.Background(), "ink/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "ink", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "ink/1.jpg", aws.ToString(fake.input.Key))
	assert.True(t, fake.hasDL, "download must run under a deadline")

	decoded, err := imaging.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 256, decoded.Bounds().Dx())
	assert.Equal(t, 128, decoded.Bounds().Dy())
}

func TestS3StoreErrors(t *testing.T) {
	t.Parallel()

	missing := newS3Store(&fakeS3{}, blobConfig(), nil)
	_, _, err := missing.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	boom := errors.New("connection refused")
	failing := newS3Store(&fakeS3{err: boom}, blobConfig(), nil)
	_, err = failing.FetchImage(context.Background(), "ink/1.jpg")
	assert.ErrorIs(t, err, boom)

	big := newS3Store(&fakeS3{objects: map[string][]byte{"big": make([]byte, MaxObjectBytes+1)}}, blobConfig(), nil)
	_, _, err = big.Get(context.Background(), "big")
	assert.ErrorIs(t, err, ErrObjectTooLarge)

	corrupt := newS3Store(&fakeS3{objects: map[string][]byte{"bad": []byte("text")}}, blobConfig(), nil)
	_, err = corrupt.FetchImage(context.Background(), "bad")
	assert.Error(t, err)
}
