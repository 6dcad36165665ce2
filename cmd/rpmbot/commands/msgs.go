package commands

// Short messages (one-liners)
const (
	MsgRootShort = "A frontend to rpmbuild for centralized package builds"
	MsgRootLong  = `rpmbot is a frontend to rpmbuild that provides a centralized way to build
RPM packages from spec files and promote the results across configured
repository groups.`

	MsgBuildShort  = "Do a normal build (all configured archs)"
	MsgTestShort   = "Do a test build (one arch)"
	MsgUploadShort = "Upload build results to a repository group"
	MsgMoveShort   = "Move uploaded packages to the next repository"

	MsgFlagVerbose    = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagLogConsole = "Echo log output to console"
	MsgFlagForce      = "Force command execution"
)

// Long messages
const (
	MsgBuildLong = `Builds SPEC for all configured architectures, plus the SRPM and the ZIP
with the base architecture's files, and records everything in a build
summary. If SPEC does not have a path (recommended), it is searched in the
configured spec directories. Several specs may be given comma-separated.`

	MsgTestLong = `Runs a test build of SPEC for the base architecture only. STEP may select
an rpmbuild shortcut to go to a specific build step.`

	MsgUploadLong = `Uploads all packages generated from SPEC to a repository of a configured
repository group. If REPO is not specified, the first repository of GROUP
is used.`

	MsgMoveLong = `Moves previously uploaded packages of SPEC to the next repository of
GROUP, or between the explicitly named ones.`
)
