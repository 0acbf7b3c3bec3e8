package provision

import "fmt"

// ResolutionError reports a team slug or username that could not be turned
// into a numeric ID.
type ResolutionError struct {
	Kind ReviewerType
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	what := "username"
	if e.Kind == ReviewerTeam {
		what = "team slug"
	}
	return fmt.Sprintf("failed to resolve %s '%s': %s", what, e.Name, errorMessage(e.Err))
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// TopicsError reports a failed topic read or replace.
type TopicsError struct {
	Op  string
	Err error
}

func (e *TopicsError) Error() string {
	return fmt.Sprintf("%s topics: %s", e.Op, errorMessage(e.Err))
}

func (e *TopicsError) Unwrap() error { return e.Err }

// BranchProtectionError reports a ruleset that could not be built or installed.
type BranchProtectionError struct {
	Preset Preset
	Branch string
	Err    error
}

func (e *BranchProtectionError) Error() string {
	return fmt.Sprintf("create %s branch protection on %s: %s", e.Preset, e.Branch, errorMessage(e.Err))
}

func (e *BranchProtectionError) Unwrap() error { return e.Err }

// PublicKeyError aborts secret provisioning: nothing can be sealed without
// the repository key.
type PublicKeyError struct {
	Err error
}

func (e *PublicKeyError) Error() string {
	return "failed to get repository public key: " + errorMessage(e.Err)
}

func (e *PublicKeyError) Unwrap() error { return e.Err }

func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
