// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package cookie provides the cookie jar shared by the requests a client
// makes.
//
// A Jar maps each origin (scheme, host and port) to a Store of cookie
// names and values. A cookie may carry an expiry; expired cookies are
// invisible to readers immediately and are evicted from the Store by a
// timer shortly after their deadline. Each name has at most one live
// timer: setting a name again replaces its timer.
//
// Unlike net/http/cookiejar, a Jar deliberately ignores cookie Path,
// Domain and Secure attributes. Cookies are scoped to exactly the origin
// that set them.
//
// Jar and Store are safe for concurrent use by multiple goroutines.
package cookie
