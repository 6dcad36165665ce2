package summary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpmbot/rpmbot/pkg/errors"
)

// artifactDir lays out fake artifacts in one flat directory and resolves
// records against it.
func artifactDir(t *testing.T) (string, PathResolver) {
	t.Helper()
	dir := t.TempDir()
	return dir, func(class, name string) string {
		return filepath.Join(dir, name)
	}
}

func makeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testArtifacts(t *testing.T, dir string) []Artifact {
	t.Helper()
	return []Artifact{
		{ClassSrpm, makeArtifact(t, dir, "foo-1.2-3.oc00.src.rpm", "source")},
		{ClassZip, makeArtifact(t, dir, "foo-1_2-3_oc00.zip", "zipped")},
		{"pentium4", makeArtifact(t, dir, "foo-1.2-3.oc00.pentium4.rpm", "binary")},
		{"pentium4", makeArtifact(t, dir, "foo-doc-1.2-3.oc00.noarch.rpm", "docs")},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir, resolve := artifactDir(t)
	path := filepath.Join(dir, "summary")
	built := time.Unix(1700000000, 0)

	require.NoError(t, Write(path, "1.2-3.oc00", "builder@buildhost", built, testArtifacts(t, dir)))

	s, err := Read(path, resolve)
	require.NoError(t, err)

	assert.Equal(t, "1.2-3.oc00", s.Version)
	assert.Equal(t, "builder@buildhost", s.BuildUser)
	assert.True(t, s.BuildTime.Equal(built))
	require.Len(t, s.Records, 4)

	// mtime and size match the files on disk exactly.
	for _, r := range s.Records {
		fi, err := os.Stat(r.Path)
		require.NoError(t, err)
		assert.Equal(t, fi.ModTime().UnixNano(), r.Mtime)
		assert.Equal(t, fi.Size(), r.Size)
	}

	srpm, ok := s.One(ClassSrpm)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "foo-1.2-3.oc00.src.rpm"), srpm)

	byClass := s.PathsByClass()
	assert.Len(t, byClass["pentium4"], 2)
	assert.Equal(t, []string{"srpm", "zip", "pentium4"}, s.Classes())
}

func TestWriteIsAtomic(t *testing.T) {
	dir, _ := artifactDir(t)
	path := filepath.Join(dir, "summary")

	require.NoError(t, Write(path, "1.2-3.oc00", "builder@host", time.Now(), testArtifacts(t, dir)))

	// No staging file is left behind.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFailsOnMissingArtifact(t *testing.T) {
	dir, _ := artifactDir(t)
	path := filepath.Join(dir, "summary")

	err := Write(path, "1.2-3.oc00", "builder@host", time.Now(),
		[]Artifact{{ClassSrpm, filepath.Join(dir, "missing.src.rpm")}})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrIO))

	// Nothing was committed.
	_, serr := os.Stat(path)
	assert.True(t, os.IsNotExist(serr))
}

func TestReadDetectsSizeTamper(t *testing.T) {
	dir, resolve := artifactDir(t)
	path := filepath.Join(dir, "summary")
	arts := testArtifacts(t, dir)
	require.NoError(t, Write(path, "1.2-3.oc00", "builder@host", time.Now(), arts))

	require.NoError(t, os.WriteFile(arts[2].Path, []byte("binary grew bigger"), 0644))

	_, err := Read(path, resolve)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrIntegrity))
	assert.Contains(t, err.Error(), "foo-1.2-3.oc00.pentium4.rpm")
}

func TestReadDetectsMtimeTamper(t *testing.T) {
	dir, resolve := artifactDir(t)
	path := filepath.Join(dir, "summary")
	arts := testArtifacts(t, dir)
	require.NoError(t, Write(path, "1.2-3.oc00", "builder@host", time.Now(), arts))

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(arts[0].Path, later, later))

	_, err := Read(path, resolve)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrIntegrity))
	assert.Contains(t, err.Error(), "mtime differs")
	assert.Contains(t, err.Error(), "foo-1.2-3.oc00.src.rpm")
	// The failing line is named.
	assert.Contains(t, err.Error(), path+":3")
}

func TestReadDetectsMissingArtifact(t *testing.T) {
	dir, resolve := artifactDir(t)
	path := filepath.Join(dir, "summary")
	arts := testArtifacts(t, dir)
	require.NoError(t, Write(path, "1.2-3.oc00", "builder@host", time.Now(), arts))

	require.NoError(t, os.Remove(arts[1].Path))

	_, err := Read(path, resolve)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrIntegrity))
	assert.Contains(t, err.Error(), "missing")
}

func TestReadMissingSummaryIsNotFound(t *testing.T) {
	dir, resolve := artifactDir(t)

	_, err := Read(filepath.Join(dir, "summary"), resolve)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
	assert.Contains(t, errors.GetHint(err), "build")
}

func TestReadRejectsBadVersion(t *testing.T) {
	dir, resolve := artifactDir(t)
	path := filepath.Join(dir, "summary")
	require.NoError(t, os.WriteFile(path, []byte("not-a-version\nbuilder@host|100\n"), 0644))

	_, err := Read(path, resolve)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrIntegrity))
	assert.Contains(t, err.Error(), "invalid version")
}

func TestReadRejectsBadBuildUser(t *testing.T) {
	dir, resolve := artifactDir(t)
	path := filepath.Join(dir, "summary")
	require.NoError(t, os.WriteFile(path, []byte("1.2-3.oc00\nnot a user|100\n"), 0644))

	_, err := Read(path, resolve)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrIntegrity))
	assert.Contains(t, err.Error(), "invalid build user")
}

func TestReadRejectsMalformedRecord(t *testing.T) {
	dir, resolve := artifactDir(t)
	path := filepath.Join(dir, "summary")
	content := "1.2-3.oc00\nbuilder@host|100\nsrpm|only-two\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Read(path, resolve)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrIntegrity))
	assert.True(t, strings.Contains(err.Error(), ":3:"))
}

func TestVersionPeek(t *testing.T) {
	dir, _ := artifactDir(t)
	path := filepath.Join(dir, "summary")
	require.NoError(t, Write(path, "1.2-3.oc00", "builder@host", time.Now(), testArtifacts(t, dir)))

	v, err := Version(path)
	require.NoError(t, err)
	assert.Equal(t, "1.2-3.oc00", v)
}
