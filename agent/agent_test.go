package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/deepagent/agent"
	"github.com/petasbytes/deepagent/inference"
	"github.com/petasbytes/deepagent/internal/metrics"
	"github.com/petasbytes/deepagent/internal/testutil"
	"github.com/petasbytes/deepagent/internal/windowing"
	"github.com/petasbytes/deepagent/memory"
	"github.com/petasbytes/deepagent/tools"
)

type doubleInput struct {
	X int `json:"x"`
}

func newRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	reg.MustRegister(
		tools.ToolDefinition{
			Name:        "double",
			Description: "Double an integer",
			Params:      []tools.Param{{Name: "x", Type: "integer", Required: true}},
			Function: tools.Typed(func(_ *tools.Context, in doubleInput) (any, error) {
				return in.X * 2, nil
			}),
		},
		tools.ToolDefinition{
			Name:        "fail",
			Description: "Always fails",
			Function: func(*tools.Context, json.RawMessage) (any, error) {
				return nil, errors.New("kaboom")
			},
		},
		tools.ToolDefinition{
			Name:        "explode",
			Description: "Always panics",
			Function: func(*tools.Context, json.RawMessage) (any, error) {
				panic("fuse lit")
			},
		},
	)
	return reg
}

func turns(t *testing.T, a *agent.Agent) []memory.Turn {
	t.Helper()
	ts, err := a.Session().Turns(context.Background())
	require.NoError(t, err)
	return ts
}

func speakers(ts []memory.Turn) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Speaker
	}
	return out
}

func toolNames(req inference.Request) []string {
	out := make([]string, len(req.Tools))
	for i, d := range req.Tools {
		out[i] = d.Name
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Emit(name string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

func TestInvoke_EchoTerminatesAfterOneIteration(t *testing.T) {
	client := testutil.NewScriptedClient(testutil.Reply(inference.Text("hi")))
	a, err := agent.New(client, tools.NewRegistry(), agent.WithInstructions("echo"))
	require.NoError(t, err)

	res, err := a.Invoke(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, res.Status)
	assert.Equal(t, "hi", res.Output)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 1, client.Calls())

	req := client.Requests()[0]
	assert.Equal(t, []memory.Message{{Role: memory.RoleUser, Content: "hello"}}, req.Messages)
	assert.True(t, strings.HasPrefix(req.System, "echo"))
	assert.Equal(t, []string{agent.CompleteTaskName}, toolNames(req))
}

func TestInvoke_ToolResultIsRecordedBeforeNextCall(t *testing.T) {
	client := testutil.NewScriptedClient(
		testutil.Reply(inference.ToolUse("t1", "double", map[string]any{"x": 4})),
		testutil.Reply(inference.Text("8")),
	)
	a, err := agent.New(client, newRegistry(t), agent.WithTools("double"))
	require.NoError(t, err)

	res, err := a.Invoke(context.Background(), "double 4")
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, res.Status)
	assert.Equal(t, "8", res.Output)
	assert.Equal(t, 2, res.Iterations)

	ts := turns(t, a)
	require.Len(t, ts, 3)
	assert.Equal(t, memory.SpeakerToolCaller, ts[1].Speaker)
	assert.Equal(t, "Tool double returned: 8", ts[1].Content)
	assert.Equal(t, "double", ts[1].Metadata["tool"])
	assert.Equal(t, agent.DefaultName, ts[2].Speaker)

	second := client.Requests()[1]
	require.Len(t, second.Messages, 2)
	assert.Equal(t, memory.Message{Role: memory.RoleUser, Content: "Tool double returned: 8"}, second.Messages[1])
}

func TestInvoke_StringResultsAreJSONQuoted(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(tools.ToolDefinition{
		Name: "greet",
		Function: func(*tools.Context, json.RawMessage) (any, error) {
			return "a <b> & c", nil
		},
	})
	client := testutil.NewScriptedClient(
		testutil.Reply(inference.ToolUse("t1", "greet", nil)),
		testutil.Reply(inference.Text("done")),
	)
	a, err := agent.New(client, reg, agent.WithTools("greet"))
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), "greet")
	require.NoError(t, err)
	assert.Equal(t, `Tool greet returned: "a <b> & c"`, turns(t, a)[1].Content)
}

func TestInvoke_StructuredResultsAreIndented(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(tools.ToolDefinition{
		Name: "info",
		Function: func(*tools.Context, json.RawMessage) (any, error) {
			return map[string]int{"n": 1}, nil
		},
	})
	client := testutil.NewScriptedClient(
		testutil.Reply(inference.ToolUse("t1", "info", nil)),
		testutil.Reply(inference.Text("done")),
	)
	a, err := agent.New(client, reg, agent.WithTools("info"))
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), "info")
	require.NoError(t, err)
	assert.Equal(t, "Tool info returned: {\n  \"n\": 1\n}", turns(t, a)[1].Content)
}

func TestInvoke_UnknownSubagentLeavesTranscriptUnchanged(t *testing.T) {
	client := testutil.NewScriptedClient(
		testutil.Reply(inference.ToolUse("t1", agent.InvokeSubagentName, map[string]any{
			"subagent_name": "ghost",
			"prompt":        "boo",
		})),
		testutil.Reply(inference.Text("done")),
	)
	a, err := agent.New(client, tools.NewRegistry(), agent.WithSubAgents(agent.SubAgent{
		Name:        "researcher",
		Description: "Looks things up",
	}))
	require.NoError(t, err)

	res, err := a.Invoke(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, res.Status)
	assert.Equal(t, "done", res.Output)
	assert.Equal(t, 2, res.Iterations)

	reqs := client.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, len(reqs[0].Messages), len(reqs[1].Messages))
	assert.Equal(t, []string{memory.SpeakerUser, agent.DefaultName}, speakers(turns(t, a)))
}

func TestInvoke_IterationCapIsHardBound(t *testing.T) {
	client := testutil.NewScriptedClient()
	client.Fallback = testutil.Reply(
		inference.Text("working"),
		inference.ToolUse("t", "double", map[string]any{"x": 1}),
	)
	a, err := agent.New(client, newRegistry(t), agent.WithTools("double"), agent.WithMaxIterations(3))
	require.NoError(t, err)

	res, err := a.Invoke(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Equal(t, agent.StatusExhausted, res.Status)
	assert.Empty(t, res.Output)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 3, client.Calls())
}

func TestInvoke_DefaultIterationCap(t *testing.T) {
	client := testutil.NewScriptedClient()
	client.Fallback = testutil.Reply(inference.ToolUse("t", "double", map[string]any{"x": 1}))
	a, err := agent.New(client, newRegistry(t), agent.WithTools("double"))
	require.NoError(t, err)

	res, err := a.Invoke(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Equal(t, agent.StatusExhausted, res.Status)
	assert.Equal(t, agent.DefaultMaxIterations, client.Calls())
}

func TestInvoke_LogLengthAccounting(t *testing.T) {
	double := func(id string) inference.ContentItem {
		return inference.ToolUse(id, "double", map[string]any{"x": 2})
	}
	client := testutil.NewScriptedClient(
		testutil.Reply(inference.Text("a"), double("1"), double("2")),
		testutil.Reply(inference.Text("b"), double("3"), inference.ToolUse("4", "fail", nil)),
		testutil.Reply(inference.Text("c")),
	)
	a, err := agent.New(client, newRegistry(t), agent.WithTools("double", "fail"))
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), "seed")
	require.NoError(t, err)

	const texts, toolResults, seed = 3, 4, 1
	ts := turns(t, a)
	assert.Len(t, ts, texts+toolResults+seed)
	assert.Equal(t, []string{
		memory.SpeakerUser,
		agent.DefaultName, memory.SpeakerToolCaller, memory.SpeakerToolCaller,
		agent.DefaultName, memory.SpeakerToolCaller, memory.SpeakerToolCaller,
		agent.DefaultName,
	}, speakers(ts))
	assert.Equal(t, "Error executing fail: kaboom", ts[6].Content)
	assert.Equal(t, true, ts[6].Metadata["error"])
}

func TestInvoke_DelegationIsTransparent(t *testing.T) {
	client := testutil.NewScriptedClient(
		// parent
		testutil.Reply(inference.ToolUse("t1", agent.InvokeSubagentName, map[string]any{
			"subagent_name": "researcher",
			"prompt":        "find X",
		})),
		// child
		testutil.Reply(inference.Text("X is 42")),
		// parent
		testutil.Reply(inference.ToolUse("t2", agent.CompleteTaskName, map[string]any{"result": "42"})),
	)
	a, err := agent.New(client, newRegistry(t),
		agent.WithName("coordinator"),
		agent.WithInstructions("coordinate"),
		agent.WithModel("parent-model"),
		agent.WithTools("double"),
		agent.WithSubAgents(agent.SubAgent{
			Name:         "researcher",
			Description:  "Looks things up",
			Instructions: "research carefully",
		}),
	)
	require.NoError(t, err)

	res, err := a.Invoke(context.Background(), "what is X?")
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, res.Status)
	assert.Equal(t, "42", res.Output)
	assert.Equal(t, 2, res.Iterations)

	ts := turns(t, a)
	assert.Equal(t, []string{memory.SpeakerUser, "coordinator", "researcher", "coordinator"}, speakers(ts))
	assert.Equal(t, "find X", ts[1].Content)
	assert.Equal(t, "X is 42", ts[2].Content)

	reqs := client.Requests()
	require.Len(t, reqs, 3)

	parentReq, childReq, nextReq := reqs[0], reqs[1], reqs[2]
	assert.Equal(t, []string{"double", agent.InvokeSubagentName, agent.CompleteTaskName}, toolNames(parentReq))
	assert.Contains(t, parentReq.System, "- researcher: Looks things up")

	assert.Equal(t, []string{"double"}, toolNames(childReq))
	assert.Equal(t, "parent-model", childReq.Model)
	assert.True(t, strings.HasPrefix(childReq.System, "research carefully"))
	assert.NotContains(t, childReq.System, agent.CompleteTaskName)
	require.NotEmpty(t, childReq.Messages)
	assert.Equal(t, memory.Message{Role: memory.RoleUser, Content: "find X"}, childReq.Messages[len(childReq.Messages)-1])

	last := nextReq.Messages[len(nextReq.Messages)-1]
	assert.Equal(t, memory.Message{Role: memory.RoleUser, Content: "X is 42"}, last)
}

func TestInvoke_SubagentUsesOwnToolsAndModel(t *testing.T) {
	client := testutil.NewScriptedClient(
		testutil.Reply(inference.ToolUse("t1", agent.InvokeSubagentName, map[string]any{
			"subagent_name": "failer",
			"prompt":        "try",
		})),
		testutil.Reply(inference.Text("tried")),
		testutil.Reply(inference.Text("ok")),
	)
	a, err := agent.New(client, newRegistry(t),
		agent.WithTools("double"),
		agent.WithSubAgents(agent.SubAgent{Name: "failer", Tools: []string{"fail"}, Model: "small"}),
	)
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), "go")
	require.NoError(t, err)
	childReq := client.Requests()[1]
	assert.Equal(t, []string{"fail"}, toolNames(childReq))
	assert.Equal(t, "small", childReq.Model)
}

func TestInvoke_InvokeSubagentWithoutTableIsProtocolViolation(t *testing.T) {
	client := testutil.NewScriptedClient(
		testutil.Reply(inference.ToolUse("t1", agent.InvokeSubagentName, map[string]any{
			"subagent_name": "any",
			"prompt":        "p",
		})),
		testutil.Reply(inference.Text("ok")),
	)
	a, err := agent.New(client, tools.NewRegistry())
	require.NoError(t, err)

	res, err := a.Invoke(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Output)
	assert.NotContains(t, toolNames(client.Requests()[0]), agent.InvokeSubagentName)

	ts := turns(t, a)
	require.Len(t, ts, 3)
	assert.Equal(t, memory.SpeakerToolCaller, ts[1].Speaker)
	assert.True(t, strings.HasPrefix(ts[1].Content, "Error executing invoke_subagent: protocol violation"), ts[1].Content)
}

func TestInvoke_CompleteTaskTerminates(t *testing.T) {
	client := testutil.NewScriptedClient(testutil.Reply(
		inference.Text("finishing"),
		inference.ToolUse("t1", agent.CompleteTaskName, map[string]any{"result": "all done"}),
		inference.ToolUse("t2", "double", map[string]any{"x": 3}),
	))
	a, err := agent.New(client, newRegistry(t), agent.WithTools("double"))
	require.NoError(t, err)

	res, err := a.Invoke(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, res.Status)
	assert.Equal(t, "all done", res.Output)

	ts := turns(t, a)
	require.Len(t, ts, 3)
	assert.Equal(t, "all done", ts[2].Content)
	assert.Equal(t, agent.DefaultName, ts[2].Speaker)
}

func TestInvoke_UserExchangeRecordsBothSides(t *testing.T) {
	reg := tools.NewRegistry()
	var asked string
	reg.MustRegister(tools.AskUserDefinition(tools.PromptFunc(func(_ context.Context, msg string) (string, error) {
		asked = msg
		return "blue", nil
	})))
	client := testutil.NewScriptedClient(
		testutil.Reply(inference.ToolUse("t1", tools.AskUserName, map[string]any{"message": "favourite colour?"})),
		testutil.Reply(inference.Text("blue it is")),
	)
	a, err := agent.New(client, reg, agent.WithName("helper"), agent.WithTools(tools.AskUserName))
	require.NoError(t, err)

	res, err := a.Invoke(context.Background(), "pick a colour")
	require.NoError(t, err)
	assert.Equal(t, "blue it is", res.Output)
	assert.Equal(t, "favourite colour?", asked)

	ts := turns(t, a)
	assert.Equal(t, []string{memory.SpeakerUser, "helper", memory.SpeakerUser, "helper"}, speakers(ts))
	assert.Equal(t, "favourite colour?", ts[1].Content)
	assert.Equal(t, "blue", ts[2].Content)
}

func TestInvoke_ToolErrorsAreRecoverable(t *testing.T) {
	cases := []struct {
		name     string
		tools    []string
		call     inference.ContentItem
		contains string
	}{
		{
			name:     "not registered",
			tools:    []string{"double"},
			call:     inference.ToolUse("t", "nope", nil),
			contains: "Error executing nope: tool nope not found",
		},
		{
			name:     "registered but not offered",
			tools:    nil,
			call:     inference.ToolUse("t", "double", map[string]any{"x": 1}),
			contains: "Error executing double: tool double not found",
		},
		{
			name:     "invalid arguments",
			tools:    []string{"double"},
			call:     inference.ToolUse("t", "double", map[string]any{"x": "four"}),
			contains: "Error executing double: invalid arguments for double",
		},
		{
			name:     "callable error",
			tools:    []string{"fail"},
			call:     inference.ToolUse("t", "fail", nil),
			contains: "Error executing fail: kaboom",
		},
		{
			name:     "callable panic",
			tools:    []string{"explode"},
			call:     inference.ToolUse("t", "explode", nil),
			contains: "Error executing explode: tool explode panicked: fuse lit",
		},
		{
			name:     "bad complete_task arguments",
			tools:    nil,
			call:     inference.ToolUse("t", agent.CompleteTaskName, `{"result": 5}`),
			contains: "Error executing complete_task: decode arguments",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := testutil.NewScriptedClient(
				testutil.Reply(tc.call),
				testutil.Reply(inference.Text("recovered")),
			)
			a, err := agent.New(client, newRegistry(t), agent.WithTools(tc.tools...))
			require.NoError(t, err)

			res, err := a.Invoke(context.Background(), "go")
			require.NoError(t, err)
			assert.Equal(t, "recovered", res.Output)

			ts := turns(t, a)
			require.Len(t, ts, 3)
			assert.Equal(t, memory.SpeakerToolCaller, ts[1].Speaker)
			assert.Contains(t, ts[1].Content, tc.contains)
		})
	}
}

func TestInvoke_TransportErrorIsFatal(t *testing.T) {
	client := testutil.NewScriptedClient(
		testutil.Reply(inference.ToolUse("t1", "double", map[string]any{"x": 1})),
	).ThenError(&inference.TransportError{Provider: "test", Err: errors.New("rate limited")})
	a, err := agent.New(client, newRegistry(t), agent.WithTools("double"))
	require.NoError(t, err)

	res, err := a.Invoke(context.Background(), "go")
	require.Error(t, err)
	var te *inference.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "test", te.Provider)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, 2, client.Calls())
}

func TestInvoke_PlainClientErrorsBecomeTransportErrors(t *testing.T) {
	client := testutil.NewScriptedClient().ThenError(errors.New("connection reset"))
	a, err := agent.New(client, tools.NewRegistry())
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), "go")
	var te *inference.TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestInvoke_CancelledContextStopsBeforeInference(t *testing.T) {
	client := testutil.NewScriptedClient(testutil.Reply(inference.Text("never")))
	a, err := agent.New(client, tools.NewRegistry())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := a.Invoke(ctx, "go")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 0, client.Calls())
	assert.Len(t, turns(t, a), 1)
}

func TestInvoke_TokenBudget(t *testing.T) {
	t.Run("over budget is fatal", func(t *testing.T) {
		client := testutil.NewScriptedClient(testutil.Reply(inference.Text("never")))
		a, err := agent.New(client, tools.NewRegistry(), agent.WithTokenBudget(1))
		require.NoError(t, err)

		_, err = a.Invoke(context.Background(), "hello")
		require.ErrorIs(t, err, windowing.ErrOverBudget)
		assert.Equal(t, 0, client.Calls())
	})

	t.Run("window drops oldest groups", func(t *testing.T) {
		session := memory.NewSession(memory.NewInMemoryStore())
		ctx := context.Background()
		_, err := session.Append(ctx, memory.SpeakerUser, strings.Repeat("x", 40), nil)
		require.NoError(t, err)
		_, err = session.Append(ctx, agent.DefaultName, strings.Repeat("y", 40), nil)
		require.NoError(t, err)

		client := testutil.NewScriptedClient(testutil.Reply(inference.Text("ok")))
		// "abc" costs 3+4 tokens; each older message costs 44.
		a, err := agent.New(client, tools.NewRegistry(), agent.WithSession(session), agent.WithTokenBudget(20))
		require.NoError(t, err)

		_, err = a.Invoke(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []memory.Message{{Role: memory.RoleUser, Content: "abc"}}, client.Requests()[0].Messages)
	})
}

func TestNew_Validation(t *testing.T) {
	client := testutil.NewScriptedClient()

	_, err := agent.New(nil, tools.NewRegistry())
	assert.Error(t, err)

	_, err = agent.New(client, tools.NewRegistry(), agent.WithName(memory.SpeakerToolCaller))
	assert.Error(t, err)

	_, err = agent.New(client, tools.NewRegistry(), agent.WithSubAgents(
		agent.SubAgent{Name: "a"}, agent.SubAgent{Name: "a"},
	))
	assert.Error(t, err)

	_, err = agent.New(client, tools.NewRegistry(), agent.WithSubAgents(agent.SubAgent{Name: memory.SpeakerUser}))
	assert.Error(t, err)

	a, err := agent.New(client, newRegistry(t), agent.WithTools("double", "missing", "double", agent.CompleteTaskName))
	require.NoError(t, err)
	assert.Equal(t, []string{"double"}, a.Tools())
	assert.Equal(t, agent.DefaultName, a.Name())
}

func TestRegistryDescribeIsStableAcrossCalls(t *testing.T) {
	reg := newRegistry(t)
	d1, err := reg.Describe("double")
	require.NoError(t, err)
	d2, err := reg.Describe("double")
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	client := testutil.NewScriptedClient(
		testutil.Reply(inference.ToolUse("t", "double", map[string]any{"x": 1})),
		testutil.Reply(inference.Text("done")),
	)
	a, err := agent.New(client, reg, agent.WithTools("double"))
	require.NoError(t, err)
	_, err = a.Invoke(context.Background(), "go")
	require.NoError(t, err)

	reqs := client.Requests()
	assert.Equal(t, reqs[0].Tools, reqs[1].Tools)
	assert.Equal(t, reqs[0].System, reqs[1].System)
}

func TestInvoke_SharedSessionAcrossInvocations(t *testing.T) {
	session := memory.NewSession(memory.NewInMemoryStore())
	client := testutil.NewScriptedClient(
		testutil.Reply(inference.Text("first")),
		testutil.Reply(inference.Text("second")),
	)
	a, err := agent.New(client, tools.NewRegistry(), agent.WithSession(session))
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), "one")
	require.NoError(t, err)
	_, err = a.Invoke(context.Background(), "two")
	require.NoError(t, err)

	n, err := session.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, client.Requests()[1].Messages, 3)
}

func TestInvoke_EmitsTelemetryAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collectors, err := metrics.NewCollectors(reg)
	require.NoError(t, err)
	rec := &recorder{}

	client := testutil.NewScriptedClient(
		testutil.Reply(inference.ToolUse("t1", agent.InvokeSubagentName, map[string]any{
			"subagent_name": "helper",
			"prompt":        "help",
		})),
		testutil.Reply(inference.ToolUse("t2", "double", map[string]any{"x": 2})),
		testutil.Reply(inference.Text("4")),
		testutil.Reply(inference.Text("done")),
	)
	a, err := agent.New(client, newRegistry(t),
		agent.WithTools("double"),
		agent.WithSubAgents(agent.SubAgent{Name: "helper"}),
		agent.WithTelemetry(rec),
		agent.WithMetrics(collectors),
		agent.WithTokenBudget(10_000),
	)
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), "go")
	require.NoError(t, err)

	assert.Equal(t, 4, rec.count("inference_call"))
	assert.Equal(t, 4, rec.count("window_prepared"))
	assert.Equal(t, 1, rec.count("tool_exec"))
	assert.Equal(t, 1, rec.count("delegation"))
	assert.Equal(t, len(turns(t, a)), rec.count("turn_features"))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"deepagent_inference_calls_total",
		"deepagent_tool_executions_total",
		"deepagent_delegations_total",
		"deepagent_invocations_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}
