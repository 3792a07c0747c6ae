// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package tracing traces request executions with OpenTelemetry.
//
//	handlers := &hopper.HandlerGroup{}
//	tracing.Install(handlers, tracing.WithTracerProvider(tp))
//	client := &hopper.Client{Handlers: handlers}
package tracing
