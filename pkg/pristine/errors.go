package pristine

import "fmt"

// BlockNotFoundError is returned when find_block cannot locate a vertex
// covering the requested position. Fatal for the current operation; the
// caller's transaction must abort.
type BlockNotFoundError struct {
	Position Position
}

func (e *BlockNotFoundError) Error() string {
	return fmt.Sprintf("pristine: no block covers position %s", e.Position)
}

// InconsistentChangeError is returned when a change's atoms contradict each
// other (e.g. an edge referencing a vertex range that was never
// introduced). The change is rejected before any mutation.
type InconsistentChangeError struct {
	Reason string
}

func (e *InconsistentChangeError) Error() string {
	return fmt.Sprintf("pristine: inconsistent change: %s", e.Reason)
}

// ChangeAlreadyOnChannelError is returned by Apply when the change is
// already present on the target channel. Per P4 this is treated as an
// idempotent no-op success by callers, not a hard failure.
type ChangeAlreadyOnChannelError struct {
	Hash Hash
}

func (e *ChangeAlreadyOnChannelError) Error() string {
	return fmt.Sprintf("pristine: change %s is already on this channel", e.Hash)
}

// ChangeNotOnChannelError is returned by Unrecord when the change being
// unrecorded is not present on the channel.
type ChangeNotOnChannelError struct {
	Hash Hash
}

func (e *ChangeNotOnChannelError) Error() string {
	return fmt.Sprintf("pristine: change %s is not on this channel", e.Hash)
}

// ChangeIsDependedUponError is returned by Unrecord when removing the
// change would leave a dependent change's dependency unsatisfied.
type ChangeIsDependedUponError struct {
	Dep Hash
}

func (e *ChangeIsDependedUponError) Error() string {
	return fmt.Sprintf("pristine: change is depended upon by %s", e.Dep)
}

// InvalidChangeError is returned when Apply detects a flag-combination rule
// violation (e.g. an edge carrying both PARENT and a flag only valid on the
// forward copy).
type InvalidChangeError struct {
	Reason string
}

func (e *InvalidChangeError) Error() string {
	return fmt.Sprintf("pristine: invalid change: %s", e.Reason)
}
