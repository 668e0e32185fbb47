/*
Package cruet is a pre-fork HTTP/1.1 application server core.

Cruet sits beneath a web application the way a classic gateway server
does: it owns the sockets, parses requests, routes them, invokes the
application through a CGI-style environ contract, and writes the
serialized response back. Each worker is a single-threaded cooperative
reactor; parallelism comes from running several worker processes over
one shared listening socket.

# Quick start

	package main

	import (
	    "github.com/searchktools/cruet/app"
	    "github.com/searchktools/cruet/config"
	    "github.com/searchktools/cruet/core/gateway"
	)

	func main() {
	    cfg := config.New()
	    application, err := app.New(cfg)
	    if err != nil {
	        panic(err)
	    }

	    application.Route("/hello/<name>", "hello", []string{"GET"},
	        func(req *gateway.Request) *gateway.Response {
	            name := req.PathParams["name"].(string)
	            resp := gateway.NewResponse([]byte("Hello, "+name+"!"), 200)
	            resp.SetContentType("text/plain; charset=utf-8")
	            return resp
	        })

	    application.Run()
	}

# Modules

	app                - route registration, dispatch, process lifecycle
	config             - flag, file and environment configuration
	core               - the reactor: event loop and connection states
	core/buffer        - growable byte accumulation
	core/wire          - query string, form and multipart decoding
	core/http          - HTTP/1.1 request parsing
	core/router        - pattern rules, matching and URL building
	core/gateway       - the application-invocation bridge
	core/poller        - epoll and kqueue readiness notification
	core/prefork       - socket binding and the worker supervisor
	core/pools         - byte, connection and object pools
	core/observability - reactor counters

# Design

Within a worker, accept, read, parse, dispatch and write all run on one
goroutine, so connection state needs no locks and a slow handler stalls
only its own worker. Requests on a keep-alive connection are strictly
serialized. Route tables are immutable once serving begins.
*/
package cruet
