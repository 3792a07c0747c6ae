// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package config loads a request.Config from YAML and the environment.

A configuration file uses the same keys as the koanf tags of
request.Config:

	credentials: include
	follow: 5
	timeout: 30s
	headers:
	  User-Agent: [my-agent/1.0]
	retry:
	  attempts: 3
	  backoff: fixed
	  interval: 500ms
	  statusCodes: [429, 503]

Keys missing from the file keep their default values. Use the loaded
configuration as a client default:

	cfg, err := config.Load(config.WithFile("hopper.yaml"))
	...
	client := &hopper.Client{Config: &cfg}
*/
package config
