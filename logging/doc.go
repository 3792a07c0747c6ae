// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package logging logs the progress of request executions using zerolog.

Install the logging handlers into the handler group of a client:

	handlers := &hopper.HandlerGroup{}
	logging.Install(handlers, logging.New("debug", true))
	client := &hopper.Client{Handlers: handlers}

Each entry carries the execution ID, attempt number and hop number, so
the entries of concurrent executions can be told apart. Header values
which carry credentials are masked.
*/
package logging
