// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package hopper provides an HTTP client which follows redirects, retries
failed attempts, keeps cookies and speaks HTTP/1.1 or HTTP/2, within a
simple and familiar interface.

Create a Client to begin making requests.

	client := &hopper.Client{}
	ex, err := client.Get("https://www.example.com")
	...
	ex, err := client.Post("https://www.example.com/upload",
		"application/json", &buf)
	...
	ex, err := client.PostForm("http://example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

Each call is one logical request, sent as one or more hops. For an
https URL the client first negotiates the protocol using ALPN. It then
attaches cookies from its jar, canonicalizes the header and strips
credentials if the plan says so, sends the request, stores any cookies
the response sets and either accepts the response, follows it to a new
hop if it is a redirect, or fails. Failed attempts are retried according
to the plan's retry.Policy. A plaintext server which answers an HTTP/1.1
request with HTTP/2 framing is retried once over h2c.

For control over redirects, retries, cookies and timeouts, build a plan
with options:

	p, err := request.NewPlan("PUT", "https://www.example.com/item", item,
		request.WithAttempts(5),
		request.WithCredentials(request.Include),
		request.WithRedirect(request.RedirectManual))
	...
	ex, err := client.Do(p)

or derive a client which applies them to every plan it creates:

	api := client.Extend(request.WithBaseURL("https://api.example.com/v1/"))
	ex, err := api.Get("items")

For control over the client's individual attempt timeouts, set a custom
timeout policy using package timeout:

	client := &hopper.Client{
		TimeoutPolicy: timeout.Fixed(10*time.Second),
	}

To hook into the fine-grained details of the client's request execution
logic, install a handler into the appropriate handler chain:

	handlers := &hopper.HandlerGroup{}
	handlers.PushBack(hopper.BeforeRetry, hopper.HandlerFunc(
		func(_ hopper.Event, e *request.Execution) {
			log.Printf("Retry %d of %s in %v", e.Retries, e.ID, e.Wait)
		})
	)
	client := &hopper.Client{
		Handlers: handlers,
	}

Packages logging and tracing provide ready-made handlers.

Package hopper provides basic interfaces for each method of the client
(Doer, Getter, Header, Poster, FormPoster, Streamer and IdleCloser); a
combined interface that composes all the basic methods (Executor); and
utility functions for working with a Doer (Inflate, Get, Head, Post,
PostForm and Stream).
*/
package hopper
