package wizard

import "errors"

var (
	// ErrConfiguration means the reference data for a flow is missing or
	// empty. Fatal to the run: no widgets are shown, the user gets a plain
	// notice, and the command can simply be re-invoked once fixed.
	ErrConfiguration = errors.New("wizard: reference data missing or empty")

	// ErrFatalPublish means the final report could not be sent. Everything
	// collected by the run is lost; nothing is pinned, recorded or scheduled.
	ErrFatalPublish = errors.New("wizard: publishing the report failed")

	// ErrStaleInteraction means the platform reports the interaction context
	// no longer exists (message deleted, session invalidated). The run is
	// abandoned without a report.
	ErrStaleInteraction = errors.New("wizard: interaction context no longer exists")
)
