package s3client

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PutGetDelete(t *testing.T) {
	c := TestClient(t, "site")
	ctx := context.Background()

	require.NoError(t, c.PutObject(ctx, "ru/syntax/cut.html", []byte("<html>cut</html>"), "text/html; charset=utf-8"))

	body, info, err := c.GetObject(ctx, "ru/syntax/cut.html")
	require.NoError(t, err)
	assert.Equal(t, "<html>cut</html>", string(body))
	assert.Equal(t, int64(len(body)), info.Size)
	assert.Equal(t, "text/html; charset=utf-8", info.ContentType)

	require.NoError(t, c.DeleteObject(ctx, "ru/syntax/cut.html"))
	_, _, err = c.GetObject(ctx, "ru/syntax/cut.html")
	assert.True(t, errors.Is(err, ErrObjectNotFound), "expected ErrObjectNotFound, got %v", err)
}

func TestClient_ListObjectsByPrefix(t *testing.T) {
	c := TestClient(t, "site")
	ctx := context.Background()

	for _, key := range []string{"v1/index.html", "v1/ru/search/index.html", "v2/index.html"} {
		require.NoError(t, c.PutObject(ctx, key, []byte(key), "text/html"))
	}

	objects, err := c.ListObjects(ctx, "v1/")
	require.NoError(t, err)

	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"v1/index.html", "v1/ru/search/index.html"}, keys)
	assert.Equal(t, "site", c.BucketName())
}
