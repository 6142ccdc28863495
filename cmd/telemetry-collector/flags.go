// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

// This file contains flag wrappers that support reading from an environment
// variable. We want flags to take precedence over environment variables, so
// flag parsing must occur after calling the functions here, so that
// environment variables are processed prior to flags.

import (
	"flag"
	"fmt"
	"strconv"
	"time"
)

func StringVar(p **string, name, env, usage string) {
	usage = includeEnvUsage(env, usage)
	// The order here is important. The flag sets the value to the default
	// value, prior to flag parsing. So after the flag is created, we override
	// the value to the env var, if it is set.
	flag.Var(newStringPtrValue(p), name, usage)
	*p = parseEnv(env, asString)
}

func BoolVar(p **bool, name, env, usage string) {
	usage = includeEnvUsage(env, usage)
	flag.Var(newBoolPtrValue(p), name, usage)
	*p = parseEnv(env, asBool)
}

func DurationVar(p **time.Duration, name, env, usage string) {
	usage = includeEnvUsage(env, usage)
	flag.Var(newDurationPtrValue(p), name, usage)
	*p = parseEnv(env, asDuration)
}

func includeEnvUsage(env, usage string) string {
	return fmt.Sprintf("%s Environment variable: %s.", usage, env)
}

// stringPtrValue is a flag.Value which stores the value in a *string.
// If the value was not set the pointer is nil.
type stringPtrValue struct {
	v **string
	b bool
}

func newStringPtrValue(p **string) *stringPtrValue {
	return &stringPtrValue{p, false}
}

func (s *stringPtrValue) Set(val string) error {
	*s.v, s.b = &val, true
	return nil
}

func (s *stringPtrValue) Get() interface{} {
	if s.b {
		return *s.v
	}
	return (*string)(nil)
}

func (s *stringPtrValue) String() string {
	if s.b {
		return **s.v
	}
	return ""
}

// boolPtrValue is a flag.Value which stores the value in a *bool if it
// can be parsed with strconv.ParseBool. If the value was not set the
// pointer is nil.
type boolPtrValue struct {
	v **bool
	b bool
}

func newBoolPtrValue(p **bool) *boolPtrValue {
	return &boolPtrValue{p, false}
}

func (s *boolPtrValue) IsBoolFlag() bool { return true }

func (s *boolPtrValue) Set(val string) error {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return err
	}
	*s.v, s.b = &b, true
	return nil
}

func (s *boolPtrValue) Get() interface{} {
	if s.b {
		return *s.v
	}
	return (*bool)(nil)
}

func (s *boolPtrValue) String() string {
	if s.b {
		return strconv.FormatBool(**s.v)
	}
	return ""
}

// durationPtrValue is a flag.Value which stores the value in a
// *time.Duration if it can be parsed with time.ParseDuration. If the
// value was not set the pointer is nil.
type durationPtrValue struct {
	v **time.Duration
	b bool
}

func newDurationPtrValue(p **time.Duration) *durationPtrValue {
	return &durationPtrValue{p, false}
}

func (s *durationPtrValue) Set(val string) error {
	d, err := time.ParseDuration(val)
	if err != nil {
		return err
	}
	*s.v, s.b = &d, true
	return nil
}

func (s *durationPtrValue) Get() interface{} {
	if s.b {
		return *s.v
	}
	return (*time.Duration)(nil)
}

func (s *durationPtrValue) String() string {
	if s.b {
		return (**s.v).String()
	}
	return ""
}

func stringVal(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func boolVal(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func durationVal(d *time.Duration, def time.Duration) time.Duration {
	if d == nil {
		return def
	}
	return *d
}
