// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout holds the policies a client consults to time out
// individual attempts.
//
// FromPlan, the default, honors the Timeout of each hop's plan
// configuration. Fixed, Adaptive and Capped build other policies, and
// PolicyFunc turns any function into one.
package timeout
