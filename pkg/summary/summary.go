// Package summary reads and writes the build summary: the integrity-checked
// manifest of artifacts produced for one package version in one repository.
//
// The file format is line-oriented UTF-8 text:
//
//	line 1: full package version
//	line 2: user@host|unix-timestamp
//	rest:   class|basename|mtime-ns|size, one line per artifact
//
// where class is `srpm`, `zip` or a target architecture. A summary is only
// trusted when every referenced file exists with exactly the recorded mtime
// and size; any mismatch invalidates the whole summary.
package summary

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rpmbot/rpmbot/pkg/errors"
	"github.com/rpmbot/rpmbot/pkg/rpm"
)

// Artifact classes that hold exactly one file per build. Every other class
// is a target architecture and may hold several.
const (
	ClassSrpm = "srpm"
	ClassZip  = "zip"
)

// Record is one artifact entry of a summary.
type Record struct {
	Class string
	Name  string
	Mtime int64 // unix nanoseconds
	Size  int64

	// Path is the resolved on-disk location, filled by Read.
	Path string
}

// Summary is the parsed, validated manifest.
type Summary struct {
	Version   string
	BuildUser string
	BuildTime time.Time
	Records   []Record
}

// PathsByClass groups resolved artifact paths by class.
func (s *Summary) PathsByClass() map[string][]string {
	m := make(map[string][]string)
	for _, r := range s.Records {
		m[r.Class] = append(m[r.Class], r.Path)
	}
	return m
}

// One returns the single artifact path of a one-file class.
func (s *Summary) One(class string) (string, bool) {
	for _, r := range s.Records {
		if r.Class == class {
			return r.Path, true
		}
	}
	return "", false
}

// Classes returns the distinct record classes in file order.
func (s *Summary) Classes() []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range s.Records {
		if !seen[r.Class] {
			seen[r.Class] = true
			out = append(out, r.Class)
		}
	}
	return out
}

// Artifact names a file to be recorded by Write.
type Artifact struct {
	Class string
	Path  string
}

// PathResolver maps a record's class and basename to its expected on-disk
// location within a repository layout.
type PathResolver func(class, name string) string

// Write stages the summary at a temporary path and atomically renames it
// into place. Every artifact is stat'ed first, so the rename happens only
// after all listed files are confirmed to exist; a crash before the rename
// leaves any previous summary intact.
func Write(path, version, buildUser string, buildTime time.Time, artifacts []Artifact) error {
	records := make([]Record, 0, len(artifacts))
	for _, a := range artifacts {
		fi, err := os.Stat(a.Path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrIO, "cannot stat artifact `%s`", a.Path)
		}
		records = append(records, Record{
			Class: a.Class,
			Name:  fi.Name(),
			Mtime: fi.ModTime().UnixNano(),
			Size:  fi.Size(),
		})
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot create `%s`", tmp)
	}

	w := bufio.NewWriter(f)
	_, _ = fmt.Fprintf(w, "%s\n", version)
	_, _ = fmt.Fprintf(w, "%s|%d\n", buildUser, buildTime.Unix())
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s|%s|%d|%d\n", r.Class, r.Name, r.Mtime, r.Size)
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, errors.ErrIO, "cannot write `%s`", tmp)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, errors.ErrIO, "cannot sync `%s`", tmp)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot write `%s`", tmp)
	}

	// The commit point.
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot rename `%s` into place", tmp)
	}
	return nil
}

// Read parses and validates the summary at path, resolving every record's
// location through resolve and re-stating it. Any grammar violation,
// missing file or mtime/size mismatch fails with an integrity error naming
// the file and line; callers treat such a summary as absent.
func Read(path string, resolve PathResolver) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "no build summary (%s)", path).
				WithHint("use the `build` command to build the packages first")
		}
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot read build summary `%s`", path)
	}
	defer func() { _ = f.Close() }()

	s := &Summary{}
	scanner := bufio.NewScanner(f)
	ln := 0

	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		ln++
		return strings.TrimSpace(scanner.Text()), true
	}

	line, ok := next()
	if !ok {
		return nil, integrityErr(path, ln, "empty summary file")
	}
	if !rpm.ValidVersion(line) {
		return nil, integrityErr(path, ln, fmt.Sprintf("invalid version specification: `%s`", line))
	}
	s.Version = line

	line, ok = next()
	if !ok {
		return nil, integrityErr(path, ln, "missing build user line")
	}
	user, ts, found := strings.Cut(line, "|")
	if !found {
		return nil, integrityErr(path, ln, "invalid field type or number of fields")
	}
	if !rpm.ValidBuildUser(user) {
		return nil, integrityErr(path, ln, fmt.Sprintf("invalid build user specification: `%s`", user))
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, integrityErr(path, ln, "invalid field type or number of fields")
	}
	s.BuildUser = user
	s.BuildTime = time.Unix(sec, 0)

	for {
		line, ok = next()
		if !ok {
			break
		}
		if line == "" {
			continue
		}

		fields := strings.Split(line, "|")
		if len(fields) != 4 {
			return nil, integrityErr(path, ln, "invalid field type or number of fields")
		}
		mtime, merr := strconv.ParseInt(fields[2], 10, 64)
		size, serr := strconv.ParseInt(fields[3], 10, 64)
		if merr != nil || serr != nil {
			return nil, integrityErr(path, ln, "invalid field type or number of fields")
		}

		r := Record{Class: fields[0], Name: fields[1], Mtime: mtime, Size: size}
		r.Path = resolve(r.Class, r.Name)

		fi, err := os.Stat(r.Path)
		if err != nil {
			return nil, integrityErr(path, ln, fmt.Sprintf("recorded artifact `%s` is missing", r.Path))
		}
		if fi.ModTime().UnixNano() != r.Mtime {
			return nil, integrityErr(path, ln, fmt.Sprintf("recorded mtime differs from actual for `%s`", r.Path))
		}
		if fi.Size() != r.Size {
			return nil, integrityErr(path, ln, fmt.Sprintf("recorded size differs from actual for `%s`", r.Path))
		}

		s.Records = append(s.Records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot read build summary `%s`", path)
	}

	return s, nil
}

// Version reads only the version line, without integrity validation. Used
// to name an existing build when refusing to overwrite it.
func Version(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrIO, "cannot read build summary `%s`", path)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", errors.Newf(errors.ErrIntegrity, "%s:1: empty summary file", path)
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func integrityErr(path string, line int, msg string) error {
	return errors.Newf(errors.ErrIntegrity, "%s:%d: %s", path, line, msg)
}
