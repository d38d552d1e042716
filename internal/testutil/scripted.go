// Package testutil holds test doubles shared across packages.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/petasbytes/deepagent/inference"
)

// ScriptedClient replays queued responses in order and records every request.
// When the script runs out it repeats Fallback, or fails if Fallback is nil.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []*inference.Response
	errs      []error
	requests  []inference.Request

	Fallback *inference.Response
}

// NewScriptedClient queues the given responses.
func NewScriptedClient(responses ...*inference.Response) *ScriptedClient {
	return &ScriptedClient{responses: responses, errs: make([]error, len(responses))}
}

// Then queues another response.
func (c *ScriptedClient) Then(resp *inference.Response) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, resp)
	c.errs = append(c.errs, nil)
	return c
}

// ThenError queues a failing call.
func (c *ScriptedClient) ThenError(err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, nil)
	c.errs = append(c.errs, err)
	return c
}

func (c *ScriptedClient) Complete(_ context.Context, req inference.Request) (*inference.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if len(c.responses) == 0 {
		if c.Fallback != nil {
			return c.Fallback, nil
		}
		return nil, fmt.Errorf("scripted client: no response queued for call %d", len(c.requests))
	}
	resp, err := c.responses[0], c.errs[0]
	c.responses, c.errs = c.responses[1:], c.errs[1:]
	return resp, err
}

// Requests returns a copy of the recorded requests.
func (c *ScriptedClient) Requests() []inference.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]inference.Request(nil), c.requests...)
}

// Calls reports how many requests were made.
func (c *ScriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// Reply builds a response from items.
func Reply(items ...inference.ContentItem) *inference.Response {
	return &inference.Response{Content: items}
}
