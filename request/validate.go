// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/http/httpguts"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateConfig checks that every field of cfg has a legal value,
// returning a *ValidationError if not.
func ValidateConfig(cfg Config) error {
	if err := validatorInstance().Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			return newValidationError(errs)
		}
		return err
	}
	return nil
}

// Validate checks that p can be sent as described, returning a
// *ValidationError if not. In addition to ValidateConfig, it checks that
// the URL is an absolute http or https URL, that the header names are
// legal, and that a GET or HEAD request does not carry a body.
func (p *Plan) Validate() error {
	var ve *ValidationError
	if err := ValidateConfig(p.Config); err != nil && !errors.As(err, &ve) {
		return err
	}
	if ve == nil {
		ve = &ValidationError{}
	}
	add := func(field, msg, value string) {
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: msg, Value: value})
	}

	switch {
	case p.URL == nil:
		add("Plan.URL", "Plan.URL is required", "")
	case p.URL.Scheme != "http" && p.URL.Scheme != "https":
		add("Plan.URL", "Plan.URL scheme must be http or https", p.URL.String())
	case p.URL.Host == "":
		add("Plan.URL", "Plan.URL must have a host", p.URL.String())
	}

	for name, values := range p.Header {
		if strings.HasPrefix(name, ":") {
			continue
		}
		if !httpguts.ValidHeaderFieldName(name) {
			add("Plan.Header", fmt.Sprintf("Plan.Header has invalid name %q", name), name)
			continue
		}
		for _, v := range values {
			if !httpguts.ValidHeaderFieldValue(v) {
				add("Plan.Header", fmt.Sprintf("Plan.Header %q has invalid value", name), v)
			}
		}
	}

	if p.Body != nil && (p.Method == http.MethodGet || p.Method == http.MethodHead) {
		add("Plan.Body", fmt.Sprintf("Plan.Body is not allowed with method %s", p.Method), "")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}
