// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/drone/envsubst"
	"github.com/hashicorp/go-multierror"
)

// expandEnv substitutes ${VAR} and ${env:VAR} references from the process
// environment. Resolution happens exactly once, at load; a reference to an
// unset variable is a fatal configuration error rather than an empty string
// silently flowing into an endpoint or credential.
func expandEnv(document string) (string, error) {
	// The collector configuration dialect writes ${env:VAR}; envsubst
	// understands the plain shell form.
	document = strings.ReplaceAll(document, "${env:", "${")

	missing := map[string]struct{}{}
	expanded, err := envsubst.Eval(document, func(name string) string {
		val, ok := os.LookupEnv(name)
		if !ok {
			missing[name] = struct{}{}
		}
		return val
	})
	if err != nil {
		return "", fmt.Errorf("failed to expand environment references: %w", err)
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		var errs error
		for _, name := range names {
			errs = multierror.Append(errs, fmt.Errorf("environment variable %s referenced in configuration is not set", name))
		}
		return "", errs
	}
	return expanded, nil
}
