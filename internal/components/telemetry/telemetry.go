package telemetry

import (
	"fmt"
)

// API is where the connector sends its logs and counts. Tests swap in a
// Recorder to assert on what was reported.
type API interface {
	// ReportBroken reports a failure someone should look at.
	//
	// id names the operation that failed, not the line: the UDA client uses
	// `client.authenticate`, `client.authenticity-token` and
	// `client.retrieve-members`. Details go into params or a wrapped error.
	// Ids are lowercase, dash separated within a component.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unexpected that did not fail the
	// operation, such as a skipped export row. Ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug is only shown in verbose mode.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the latest value of a quantity, e.g.
	// `client.members-from-rows` for the members kept from one export.
	// Values are points in time, not increments.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, as in "uda_client: client.authenticate".
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI scopes inner under namespace.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
