package errors

import "errors"

// Domain errors
var (
	// Target errors
	ErrEmptyTarget = errors.New("target cannot be empty")

	// Template errors
	ErrTemplateMissingID = errors.New("template missing required field: id")
	ErrTemplateParse     = errors.New("failed to parse template")
	ErrTemplatesNotFound = errors.New("no templates found")

	// Probe errors
	ErrUnsupportedQueryType = errors.New("unsupported DNS query type")
	ErrDNSNameNotFound      = errors.New("dns: name does not exist")
	ErrDNSNoAnswer          = errors.New("dns: no answer")
	ErrDNSRcode             = errors.New("dns: unsuccessful response code")

	// Scan run errors
	ErrScanRunNotFound         = errors.New("scan run not found")
	ErrScanRunAlreadyStarted   = errors.New("scan run already started")
	ErrScanRunNotRunning       = errors.New("scan run is not running")
	ErrScanRunAlreadyCompleted = errors.New("scan run already completed")
	ErrEmptyOperator           = errors.New("operator cannot be empty")

	// Repository errors
	ErrRepositoryOperation   = errors.New("repository operation failed")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")

	// Validation errors
	ErrMissingRequired = errors.New("missing required field")
)
