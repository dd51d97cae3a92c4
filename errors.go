package chemked

import "github.com/chemked/chemked/schema"

// The validation error model is defined in the schema package; these aliases
// keep the public surface on the root package.
type (
	Issue    = schema.Issue
	Issues   = schema.Issues
	Warning  = schema.Warning
	Warnings = schema.Warnings
)

const (
	CodeInvalidType       = schema.CodeInvalidType
	CodeRequired          = schema.CodeRequired
	CodeUnknownKey        = schema.CodeUnknownKey
	CodeInvalidEnum       = schema.CodeInvalidEnum
	CodeTooSmall          = schema.CodeTooSmall
	CodeTooBig            = schema.CodeTooBig
	CodeEmpty             = schema.CodeEmpty
	CodeExcluded          = schema.CodeExcluded
	CodeRequiredWith      = schema.CodeRequiredWith
	CodeParseError        = schema.CodeParseError
	CodeDimensionMismatch = schema.CodeDimensionMismatch
	CodeBounds            = schema.CodeBounds
	CodeSumMismatch       = schema.CodeSumMismatch
	CodeBadChecksum       = schema.CodeBadChecksum
	CodeUnknownIdentifier = schema.CodeUnknownIdentifier
	CodeNameMismatch      = schema.CodeNameMismatch
	CodeDOIMismatch       = schema.CodeDOIMismatch
	CodeUnmappedValue     = schema.CodeUnmappedValue
	CodeMissingElement    = schema.CodeMissingElement
	CodeMissingAttribute  = schema.CodeMissingAttribute
)

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) { return schema.AsIssues(err) }
