package uda

import "errors"

// The closed set of failures the connector reports. They carry no details,
// the cause is reported to telemetry where the failure is classified.
var (
	// ErrConnectionFailed covers every authentication failure that is not a
	// credential rejection: transport, decoding, missing token, non-2xx status
	// or a sign-in response that could not be classified.
	ErrConnectionFailed = errors.New("uda: connection failed")
	// ErrWrongCredentials is returned when UDA explicitly rejects the login.
	ErrWrongCredentials = errors.New("uda: wrong credentials")
	// ErrOrganizationMembershipsAccessFailed covers transport errors and
	// unexpected statuses on the membership export.
	ErrOrganizationMembershipsAccessFailed = errors.New("uda: organization memberships access failed")
	// ErrLackOfPermissions is returned when the export answers 401.
	ErrLackOfPermissions = errors.New("uda: lack of permissions")
	// ErrMalformedXlsFile is returned when the export cannot be decoded.
	ErrMalformedXlsFile = errors.New("uda: malformed xls file")
)
