package s3client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_PutObject(t *testing.T) {
	ctx := context.Background()
	c := TestClient(t, "artifacts")

	require.NoError(t, c.PutObject(ctx, "runs/r1/page.html", []byte("<html></html>"), "text/html"))
	require.NoError(t, c.PutObject(ctx, "runs/r1/screenshot.png", []byte{0x89, 'P', 'N', 'G'}, "image/png"))
	require.NoError(t, c.PutObject(ctx, "runs/r2/page.html", []byte("other"), "text/html"))

	require.Equal(t, "<html></html>", string(ReadObject(t, c, "runs/r1/page.html")))
	require.ElementsMatch(t, []string{"runs/r1/page.html", "runs/r1/screenshot.png"}, Keys(t, c, "runs/r1/"))
}

func TestClient_PutObjectMissingBucket(t *testing.T) {
	c := TestClient(t, "artifacts")
	c.bucketName = "no-such-bucket"

	err := c.PutObject(context.Background(), "runs/r1/page.html", []byte("x"), "text/html")
	require.Error(t, err)
	require.Contains(t, err.Error(), "runs/r1/page.html")
}

func TestClient_Location(t *testing.T) {
	c := &Client{bucketName: "bucket", endpoint: "http://minio:9000"}
	require.Equal(t, "http://minio:9000/bucket/runs/a.png", c.Location("/runs/a.png"))

	bare := &Client{bucketName: "bucket"}
	require.Equal(t, "s3://bucket/runs/a.png", bare.Location("runs/a.png"))
}
