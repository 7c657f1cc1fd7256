// Package validator checks `validate` struct tags. Module dependencies and
// auth server request bodies both go through it.
package validator

type Validator interface {
	Validate(data any) error
}
