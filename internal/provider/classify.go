// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package provider

import (
	"context"
	"errors"

	recallerr "github.com/recall-dev/recall/pkg/errors"
)

// ClassifyHTTPStatus maps an upstream HTTP status to a structured error
// code. 401/403 are permanent credential failures, 429 and 5xx are
// transient, everything else in the 4xx range means the request itself
// was malformed.
func ClassifyHTTPStatus(status int) recallerr.Code {
	switch {
	case status == 401 || status == 403:
		return recallerr.CodeProviderAuth
	case status == 429:
		return recallerr.CodeProviderRateLimited
	case status >= 500:
		return recallerr.CodeProviderUpstream
	default:
		return recallerr.CodeProviderBadRequest
	}
}

// WrapHTTPError wraps an upstream failure with the code derived from
// its HTTP status, attaching provider and model context.
func WrapHTTPError(err error, status int, name, model string) error {
	return recallerr.Wrap(err, ClassifyHTTPStatus(status), "embedding request failed",
		recallerr.FieldProvider(name),
		recallerr.FieldModel(model),
		recallerr.Field("status", status),
	)
}

// WrapContextError classifies a dead-context failure. Neither code is
// transient: retrying against a context that already expired cannot
// succeed, so callers with retry policies skip straight to surfacing
// the error.
func WrapContextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return recallerr.Wrap(err, recallerr.CodeProviderTimeout, "embedding request deadline exceeded")
	}
	return recallerr.Wrap(err, recallerr.CodeProviderCanceled, "embedding request canceled")
}

// WrapTransportError wraps a transport-level failure (DNS, dial, TLS,
// timeout). All transport failures are classified transient.
func WrapTransportError(err error, name, model string) error {
	return recallerr.Wrap(err, recallerr.CodeProviderNetwork, "embedding request failed",
		recallerr.FieldProvider(name),
		recallerr.FieldModel(model),
	)
}
