package local

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostratum/diskx"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "simple file", in: "a.txt", want: "a.txt"},
		{name: "nested file", in: "a/b/c.txt", want: filepath.FromSlash("a/b/c.txt")},
		{name: "empty is root", in: "", want: "."},
		{name: "dot is root", in: ".", want: "."},
		{name: "inner dot dot stays inside", in: "a/../b.txt", want: "b.txt"},
		{name: "dot segments", in: "./a/./b", want: filepath.FromSlash("a/b")},
		{name: "trailing slash", in: "dir/", want: "dir"},
		{name: "dotfile", in: ".hidden", want: ".hidden"},
		{name: "double dots in name", in: "a..b", want: "a..b"},
		{name: "parent", in: "..", wantErr: true},
		{name: "escape", in: "../etc/passwd", wantErr: true},
		{name: "escape after descent", in: "a/../../b", wantErr: true},
		{name: "deep escape", in: "a/b/../../../c", wantErr: true},
		{name: "absolute", in: "/etc/passwd", wantErr: true},
		{name: "nul byte", in: "a\x00b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root)

	full, err := r.Resolve("get", "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b.txt"), full)

	full, err = r.Resolve("list", "")
	require.NoError(t, err)
	assert.Equal(t, root, full)

	_, err = r.Resolve("get", "../outside")
	require.Error(t, err)
	assert.True(t, diskx.IsPathRejected(err))

	var se *diskx.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "get", se.Op)
	assert.Equal(t, "../outside", se.Path)
}

func TestResolver_Relative(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root)

	rel, err := r.Relative(filepath.Join(root, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a/b.txt", rel)
}
