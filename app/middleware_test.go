package app

import (
	"testing"

	"github.com/searchktools/cruet/core/gateway"
)

func TestBeforeHooksRunInOrder(t *testing.T) {
	a := newTestApp(t)
	if err := a.Route("/", "index", []string{"GET"}, okHandler); err != nil {
		t.Fatal(err)
	}

	var order []string
	a.Before(func(req *gateway.Request) *gateway.Response {
		order = append(order, "first")
		return nil
	})
	a.Before(func(req *gateway.Request) *gateway.Response {
		order = append(order, "second")
		return nil
	})

	status, _ := dispatch(t, a, "GET", "/")
	if status != "200 OK" {
		t.Fatalf("status = %q", status)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v", order)
	}
}

func TestBeforeHookSeesRouting(t *testing.T) {
	a := newTestApp(t)
	if err := a.Route("/users/<int:id>", "user", []string{"GET"}, okHandler); err != nil {
		t.Fatal(err)
	}

	var endpoint string
	var id any
	a.Before(func(req *gateway.Request) *gateway.Response {
		endpoint = req.Endpoint
		id = req.PathParams["id"]
		return nil
	})

	dispatch(t, a, "GET", "/users/9")
	if endpoint != "user" {
		t.Errorf("endpoint = %q", endpoint)
	}
	if id != 9 {
		t.Errorf("id = %v", id)
	}
}

func TestBeforeHookShortCircuits(t *testing.T) {
	a := newTestApp(t)
	var handlerRan bool
	err := a.Route("/", "index", []string{"GET"}, func(req *gateway.Request) *gateway.Response {
		handlerRan = true
		return gateway.NewResponse([]byte("view"), 200)
	})
	if err != nil {
		t.Fatal(err)
	}

	var laterRan bool
	a.Before(func(req *gateway.Request) *gateway.Response {
		return gateway.NewResponse([]byte("denied"), 403)
	})
	a.Before(func(req *gateway.Request) *gateway.Response {
		laterRan = true
		return nil
	})

	status, body := dispatch(t, a, "GET", "/")
	if status != "403 Forbidden" || body != "denied" {
		t.Errorf("response = %q, %q", status, body)
	}
	if handlerRan {
		t.Error("handler ran despite short-circuit")
	}
	if laterRan {
		t.Error("later before hook ran despite short-circuit")
	}
}

func TestAfterHooksReverseOrder(t *testing.T) {
	a := newTestApp(t)
	if err := a.Route("/", "index", []string{"GET"}, okHandler); err != nil {
		t.Fatal(err)
	}

	var order []string
	a.After(func(req *gateway.Request, resp *gateway.Response) *gateway.Response {
		order = append(order, "first")
		return nil
	})
	a.After(func(req *gateway.Request, resp *gateway.Response) *gateway.Response {
		order = append(order, "second")
		return nil
	})

	dispatch(t, a, "GET", "/")
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("order = %v, want reverse registration order", order)
	}
}

func TestAfterHookMutatesAndReplaces(t *testing.T) {
	a := newTestApp(t)
	if err := a.Route("/", "index", []string{"GET"}, okHandler); err != nil {
		t.Fatal(err)
	}

	a.After(func(req *gateway.Request, resp *gateway.Response) *gateway.Response {
		resp.Headers.Set("X-Request-Id", "req-12345")
		return nil
	})
	a.After(func(req *gateway.Request, resp *gateway.Response) *gateway.Response {
		replacement := gateway.NewResponse([]byte("replaced"), 200)
		replacement.SetContentType("text/plain")
		return replacement
	})

	env := &gateway.Environ{Method: "GET", Path: "/"}
	var capture gateway.Capture
	body := a.Gateway()(env, capture.Respond)
	chunks := gateway.DrainBody(body)

	if len(chunks) != 1 || string(chunks[0]) != "replaced" {
		t.Errorf("body = %q", chunks)
	}
	var requestID string
	for _, h := range capture.Headers {
		if h[0] == "X-Request-Id" {
			requestID = h[1]
		}
	}
	if requestID != "req-12345" {
		t.Error("first after hook did not see the replacement response")
	}
}

func TestAfterHookRunsOnNotFound(t *testing.T) {
	a := newTestApp(t)
	if err := a.Route("/", "index", []string{"GET"}, okHandler); err != nil {
		t.Fatal(err)
	}

	var sawStatus int
	a.After(func(req *gateway.Request, resp *gateway.Response) *gateway.Response {
		sawStatus = resp.StatusCode
		return nil
	})

	status, _ := dispatch(t, a, "GET", "/missing")
	if status != "404 Not Found" {
		t.Fatalf("status = %q", status)
	}
	if sawStatus != 404 {
		t.Errorf("after hook saw status %d", sawStatus)
	}
}

func TestAfterHookRunsOnShortCircuit(t *testing.T) {
	a := newTestApp(t)
	if err := a.Route("/", "index", []string{"GET"}, okHandler); err != nil {
		t.Fatal(err)
	}

	a.Before(func(req *gateway.Request) *gateway.Response {
		return gateway.NewResponse([]byte("blocked"), 429)
	})
	var sawStatus int
	a.After(func(req *gateway.Request, resp *gateway.Response) *gateway.Response {
		sawStatus = resp.StatusCode
		return nil
	})

	dispatch(t, a, "GET", "/")
	if sawStatus != 429 {
		t.Errorf("after hook saw status %d, want 429", sawStatus)
	}
}
