// Package rpm is the facade over the external rpmbuild tool: macro
// evaluation, the grammars of its output, and the patterns used to extract
// artifact names from its progress lines.
package rpm

import (
	"fmt"
	"regexp"

	"github.com/rpmbot/rpmbot/pkg/errors"
)

// DefaultExe is the builder executable looked up on PATH when no override is
// configured.
const DefaultExe = "rpmbuild"

// VersionPattern is the grammar of a full package version
// (version-release.dist), e.g. `1.2-3.oc00`.
const VersionPattern = `\d+[.\d]*-\w+[.\w]*\.\w+`

// BuildUserPattern is the mail-address-like grammar of the builder identity
// (user@host).
const BuildUserPattern = `[a-zA-Z0-9_.-]+@[a-zA-Z0-9_.-]+`

var (
	versionRe = regexp.MustCompile(`^` + VersionPattern + `$`)
	userRe    = regexp.MustCompile(`^` + BuildUserPattern + `$`)
)

// ValidVersion reports whether v matches the full version grammar.
func ValidVersion(v string) bool { return versionRe.MatchString(v) }

// ValidBuildUser reports whether u matches the user@host grammar.
func ValidBuildUser(u string) bool { return userRe.MatchString(u) }

// WrotePattern matches rpmbuild's `Wrote: <path>` progress lines for a given
// target, accepting both target-specific and noarch artifacts. The captured
// group is the artifact path.
func WrotePattern(target string) *regexp.Regexp {
	return regexp.MustCompile(
		fmt.Sprintf(`^Wrote: +(.+\.(?:%s|noarch)\.rpm)$`, regexp.QuoteMeta(target)))
}

// SrpmWrotePattern matches the `Wrote:` line for the source artifact.
func SrpmWrotePattern() *regexp.Regexp {
	return regexp.MustCompile(`^Wrote: +(.+\.src\.rpm)$`)
}

// ParseSrpmBase splits the basename of a source RPM into the package name
// and the full version. The name must match specBase; a mismatch means the
// spec file's `Name:` tag and its filename disagree.
func ParseSrpmBase(srpmBase, specBase string) (name, version string, err error) {
	re := regexp.MustCompile(fmt.Sprintf(`^(.+)-(%s)\.src\.rpm$`, VersionPattern))
	m := re.FindStringSubmatch(srpmBase)
	if m == nil {
		return "", "", errors.Newf(errors.ErrInvalidInput,
			"cannot deduce package version from `%s`", srpmBase)
	}
	name, version = m[1], m[2]
	if name != specBase {
		return "", "", errors.Newf(errors.ErrNameMismatch,
			"package name in `%s` does not match spec name `%s`", srpmBase, specBase).
			WithHint(fmt.Sprintf("either rename `%s.spec` to `%s.spec` or set the `Name:` tag to `%s`",
				specBase, name, specBase))
	}
	return name, version, nil
}
