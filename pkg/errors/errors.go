// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeInputEmpty     Code = "input.text.empty"
	CodeInputOversized Code = "input.text.oversized"

	CodeConfigMissingCredential Code = "config.credential.missing"
	CodeConfigUnsupportedModel  Code = "config.model.unsupported"
	CodeConfigInvalidValue      Code = "config.validate.invalid_value"
	CodeConfigLoadFailure       Code = "config.load.failure"
	CodeConfigDimensionMismatch Code = "config.dimension.mismatch"

	CodeProviderRateLimited Code = "provider.transient.rate_limited"
	CodeProviderNetwork     Code = "provider.transient.network"
	CodeProviderUpstream    Code = "provider.transient.upstream"
	CodeProviderAuth        Code = "provider.permanent.auth"
	CodeProviderBadRequest  Code = "provider.permanent.bad_request"
	CodeProviderTimeout     Code = "provider.timeout"
	CodeProviderCanceled    Code = "provider.canceled"

	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreNotFound           Code = "store.record.not_found"
	CodeStoreInvalidInput       Code = "store.record.invalid_input"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"

	CodeCacheFailure Code = "cache.operation.failure"

	CodeSearchTimeout Code = "search.timeout"
	CodeSearchFailure Code = "search.failure"

	CodeSecretNotFound       Code = "secret.not_found"
	CodeSecretInvalidInput   Code = "secret.invalid_input"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldOwner(value string) Attr {
	return Field("owner", value)
}

func FieldRecordID(value string) Attr {
	return Field("record_id", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldModel(value string) Attr {
	return Field("model", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeSearchFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsTransient reports whether the error is a retryable provider failure
// (rate limit, network fault, upstream 5xx).
func IsTransient(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "provider.transient.")
}

// IsPermanent reports whether the error is a non-retryable provider failure.
func IsPermanent(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "provider.permanent.")
}

func IsInputError(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "input.")
}

func IsConfigError(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "config.")
}

func IsStoreError(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "store.")
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsDimensionMismatch(err error) bool {
	return HasCode(err, CodeConfigDimensionMismatch)
}

func Join(errs ...error) error {
	return oops.Code(CodeSearchFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
