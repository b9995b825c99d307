package blob

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestDirStoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	st := NewDirStore(root)
	ctx := context.Background()

	id, err := st.Store(ctx, Artifact{Name: "classification_table.csv", MIMEType: "text/csv", Data: []byte("v1")}, "exports")
	require.NoError(t, err)
	assert.Equal(t, "exports/classification_table.csv", id)

	// storing again overwrites the same object
	id2, err := st.Store(ctx, Artifact{Name: "classification_table.csv", MIMEType: "text/csv", Data: []byte("v2")}, "exports")
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	rc, err := st.Fetch(ctx, id)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "exports"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDirStoreFetchMissing(t *testing.T) {
	_, err := NewDirStore(t.TempDir()).Fetch(context.Background(), "nope.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirStoreRejectsTraversal(t *testing.T) {
	st := NewDirStore(t.TempDir())
	_, err := st.Fetch(context.Background(), "../etc/passwd")
	assert.Error(t, err)
	_, err = st.Store(context.Background(), Artifact{Name: "x.csv"}, "../outside")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	st, err := Open(context.Background(), Config{Backend: "dir", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &DirStore{}, st)

	_, err = Open(context.Background(), Config{Backend: "dir"})
	assert.Error(t, err)

	_, err = Open(context.Background(), Config{Backend: "s3"})
	assert.Error(t, err)
}

// fakeDrive answers the subset of the Drive v3 API the store uses
type fakeDrive struct {
	mu      sync.Mutex
	files   map[string]string // name -> id
	content map[string]string // id -> data
	created int
	updated int
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Query().Get("alt") == "media":
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		data, ok := f.content[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte(data))
	case r.Method == http.MethodGet:
		q := r.URL.Query().Get("q")
		var files []map[string]string
		for name, id := range f.files {
			if strings.Contains(q, "name = '"+name+"'") {
				files = append(files, map[string]string{"id": id, "name": name})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"files": files})
	case r.Method == http.MethodPost:
		f.created++
		id := "file-" + string(rune('a'+f.created))
		body, _ := io.ReadAll(r.Body)
		name := "unknown"
		for _, n := range []string{"classification_table.csv", "additional_labels_table.csv"} {
			if strings.Contains(string(body), n) {
				name = n
			}
		}
		f.files[name] = id
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	case r.Method == http.MethodPatch:
		f.updated++
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newDriveTestStore(t *testing.T, fake *fakeDrive) *DriveStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	st, err := NewDriveStore(context.Background(), Config{},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return st
}

func TestDriveStoreCreatesThenUpdates(t *testing.T) {
	fake := &fakeDrive{files: map[string]string{}, content: map[string]string{}}
	st := newDriveTestStore(t, fake)
	ctx := context.Background()

	artifact := Artifact{Name: "classification_table.csv", MIMEType: "text/csv", Data: []byte("image_name\n")}
	id, err := st.Store(ctx, artifact, "folder-1")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, fake.created)

	id2, err := st.Store(ctx, artifact, "folder-1")
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	assert.Equal(t, 1, fake.created)
	assert.Equal(t, 1, fake.updated)
}

func TestDriveStoreFetch(t *testing.T) {
	fake := &fakeDrive{files: map[string]string{}, content: map[string]string{"img-1": "jpeg-bytes"}}
	st := newDriveTestStore(t, fake)

	rc, err := st.Fetch(context.Background(), "img-1")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	_, err = st.Fetch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `it\'s`, escapeQuery("it's"))
}
