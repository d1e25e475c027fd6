package assignment_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/JaimeStill/kontrib/internal/assignment"
	"github.com/JaimeStill/kontrib/internal/kontent"
)

func run(t *testing.T, cms *fakeCMS, opts assignment.Options, requests ...assignment.Request) []assignment.Result {
	t.Helper()
	o := assignment.NewOrchestrator(cms, opts, discardLogger())
	results, err := o.Run(context.Background(), requests, nil)
	require.NoError(t, err)
	require.Len(t, results, len(requests))
	return results
}

func TestDraftItemAssignedDirectly(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepDraft, "u-cy")

	results := run(t, cms, testOptions(),
		request("item-1", "default", "ana@example.com", "bo@example.com"))

	res := results[0]
	assert.True(t, res.Success)
	assert.Equal(t, assignment.OutcomeSuccess, res.Outcome)
	assert.Equal(t, "Contributors assigned successfully", res.Message)
	assert.Equal(t, []string{"u-ana", "u-bo"}, res.Contributors)
	assert.Equal(t, []string{"u-ana", "u-bo"}, contributorIDs(cms.variant("item-1", langDefaultID)))

	assert.NotContains(t, strings.Join(cms.callLog(), ","), "new-version")
}

func TestPublishedItemMovedToDraftFirst(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepPublished)

	results := run(t, cms, testOptions(), request("item-1", "default", "ana@example.com"))

	res := results[0]
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Message, "after moving the item from published to draft")

	v := cms.variant("item-1", langDefaultID)
	assert.Equal(t, stepDraft, v.Pointer().Step.ID)
	assert.Equal(t, []string{"u-ana"}, contributorIDs(v))

	assert.Equal(t, []string{
		"get item-1/default",
		"new-version item-1/" + langDefaultID,
		"workflow item-1/" + langDefaultID,
		"get item-1/default",
		"upsert item-1/default",
	}, cms.callLog())
}

func TestPublishedItemBlockedByWorkflow(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepPublished)
	cms.newVersionErr = func(string, kontent.LanguageRef) error {
		return rejected("The content item is published and cannot be updated.")
	}
	cms.unpublishErr = func(string, kontent.LanguageRef) error {
		return rejected("The content item is published and cannot be updated.")
	}

	results := run(t, cms, testOptions(), request("item-1", "default", "ana@example.com"))

	res := results[0]
	assert.False(t, res.Success)
	assert.True(t, res.RequiresManualIntervention)
	assert.Equal(t, assignment.OutcomeManual, res.Outcome)
	assert.Equal(t, assignment.ReasonWorkflowBlocked, res.Reason)
	assert.NotEmpty(t, res.Instructions)
	assert.Empty(t, cms.upsertLog(), "no write after a failed transition")
}

func TestWorkflowBlockPhrasings(t *testing.T) {
	tests := []struct {
		message string
		manual  bool
	}{
		{"The content item is published and cannot be updated.", true},
		{"Cannot update a published language variant", true},
		{"Language variant can't be modified because it is published", true},
		{"You cannot edit a variant in the Published workflow step", true},
		{"Scheduled variants are not allowed to change", true},
		{"Create a new version of the item before editing it", true},
		{"Element 'title' cannot be empty", false},
		{"Invalid request", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			cms := newFakeCMS()
			cms.addVariant("item-1", langDefaultID, stepPublished)
			cms.newVersionErr = func(string, kontent.LanguageRef) error {
				return rejected(tt.message)
			}
			cms.unpublishErr = func(string, kontent.LanguageRef) error {
				return rejected("Invalid request")
			}

			res := run(t, cms, testOptions(), request("item-1", "default", "ana@example.com"))[0]

			assert.Equal(t, tt.manual, res.RequiresManualIntervention)
			if tt.manual {
				assert.Equal(t, assignment.OutcomeManual, res.Outcome)
				assert.Equal(t, assignment.ReasonWorkflowBlocked, res.Reason)
			} else {
				assert.Equal(t, assignment.OutcomeFailed, res.Outcome)
				assert.Equal(t, assignment.ReasonTransitionFailed, res.Reason)
			}
		})
	}
}

func TestUnpublishFallback(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepScheduled)
	cms.newVersionErr = func(string, kontent.LanguageRef) error {
		return rejected("Invalid request")
	}

	results := run(t, cms, testOptions(), request("item-1", "default", "ana@example.com"))

	require.True(t, results[0].Success, results[0].Error)
	assert.Contains(t, results[0].Message, "from scheduled to draft")
	calls := strings.Join(cms.callLog(), ",")
	assert.Contains(t, calls, "new-version")
	assert.Contains(t, calls, "unpublish")
	assert.Equal(t, stepDraft, cms.variant("item-1", langDefaultID).Pointer().Step.ID)
}

func TestTransportFailureStopsStrategyChain(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepPublished)
	cms.newVersionErr = func(string, kontent.LanguageRef) error {
		return fmt.Errorf("%w: connection reset", kontent.ErrNoResponse)
	}

	results := run(t, cms, testOptions(), request("item-1", "default", "ana@example.com"))

	assert.Equal(t, assignment.OutcomeFailed, results[0].Outcome)
	assert.Equal(t, assignment.ReasonNetwork, results[0].Reason)
	assert.NotContains(t, strings.Join(cms.callLog(), ","), "unpublish")
}

func TestWorkflowEndpointUnavailableUsesUpsert(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepPublished, "u-cy")
	cms.changeStepErr = func(string, kontent.LanguageRef) error {
		return &kontent.APIError{StatusCode: http.StatusMethodNotAllowed}
	}

	results := run(t, cms, testOptions(), request("item-1", "default", "ana@example.com"))
	require.True(t, results[0].Success, results[0].Error)

	upserts := cms.upsertLog()
	require.Len(t, upserts, 2)
	step := upserts[0].Payload
	require.NotNil(t, step.Workflow)
	assert.Equal(t, stepDraft, step.Workflow.Step.ID)
	assert.Equal(t, []kontent.Reference{{ID: "u-cy"}}, step.Contributors, "step change keeps current contributors")
	assert.Equal(t, []kontent.Reference{{ID: "u-ana"}}, upserts[1].Payload.Contributors)
}

func TestArchivedTransitionFailureNeedsManualIntervention(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepArchived)
	cms.newVersionErr = func(string, kontent.LanguageRef) error {
		return rejected("Invalid request")
	}

	results := run(t, cms, testOptions(), request("item-1", "default", "ana@example.com"))

	res := results[0]
	assert.True(t, res.RequiresManualIntervention)
	assert.Equal(t, assignment.OutcomeManual, res.Outcome)
	assert.Equal(t, assignment.ReasonArchivedTransitionFailed, res.Reason)
	assert.NotContains(t, strings.Join(cms.callLog(), ","), "unpublish", "archived items only try a new version")
}

// An archived item whose transition fails is always reported for manual
// intervention, whatever the cause of the failure.
func TestArchivedFailureAlwaysManualProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom([]string{"rejected", "blocked", "server", "network", "not-found"}).Draw(t, "kind")
		message := rapid.StringMatching(`[A-Za-z ]{0,40}`).Draw(t, "message")

		var failure error
		switch kind {
		case "rejected":
			failure = rejected(message)
		case "blocked":
			failure = rejected("The item is archived and cannot be modified. " + message)
		case "server":
			failure = &kontent.APIError{StatusCode: http.StatusInternalServerError, Message: message}
		case "network":
			failure = fmt.Errorf("%w: %s", kontent.ErrNoResponse, message)
		case "not-found":
			failure = notFound("/new-version")
		}

		cms := newFakeCMS()
		cms.addVariant("item-1", langDefaultID, stepArchived)
		cms.newVersionErr = func(string, kontent.LanguageRef) error { return failure }

		o := assignment.NewOrchestrator(cms, testOptions(), discardLogger())
		results, err := o.Run(context.Background(), []assignment.Request{
			request("item-1", "default", "ana@example.com"),
		}, nil)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		res := results[0]
		if !res.RequiresManualIntervention || res.Outcome != assignment.OutcomeManual {
			t.Fatalf("%s failure not manual: %+v", kind, res)
		}
	})
}

func TestRepeatedAssignmentIsIdempotent(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepDraft, "u-cy")
	req := request("item-1", "default", "ana@example.com", "bo@example.com")

	first := run(t, cms, testOptions(), req)
	afterFirst := contributorIDs(cms.variant("item-1", langDefaultID))

	second := run(t, cms, testOptions(), req)
	afterSecond := contributorIDs(cms.variant("item-1", langDefaultID))

	assert.True(t, first[0].Success)
	assert.True(t, second[0].Success)
	assert.Equal(t, afterFirst, afterSecond)
	assert.Equal(t, []string{"u-ana", "u-bo"}, afterSecond)
}

func TestBatchIsolatesFailures(t *testing.T) {
	cms := newFakeCMS()
	var requests []assignment.Request
	for i := range 5 {
		id := fmt.Sprintf("item-%d", i)
		if i != 2 {
			cms.addVariant(id, langDefaultID, stepDraft)
		}
		requests = append(requests, request(id, "default", "ana@example.com"))
	}

	var observed []string
	o := assignment.NewOrchestrator(cms, testOptions(), discardLogger())
	results, err := o.Run(context.Background(), requests, func(r assignment.Result) {
		observed = append(observed, r.ContentItemID)
	})
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("item-%d", i), res.ContentItemID, "results keep input order")
		if i == 2 {
			assert.False(t, res.Success)
			assert.Equal(t, assignment.ReasonNotFound, res.Reason)
			continue
		}
		assert.True(t, res.Success, res.Error)
	}
	assert.Equal(t, []string{"item-0", "item-1", "item-2", "item-3", "item-4"}, observed)

	s := assignment.Summarize(results)
	assert.Equal(t, assignment.Summary{Total: 5, Succeeded: 4, Failed: 1}, s)
}

// For any batch with one missing item, exactly that item fails and results
// stay in input order.
func TestBatchIsolationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "items")
		missing := rapid.IntRange(0, n-1).Draw(t, "missing")

		cms := newFakeCMS()
		requests := make([]assignment.Request, 0, n)
		for i := range n {
			id := fmt.Sprintf("item-%d", i)
			if i != missing {
				step := rapid.SampledFrom([]string{stepDraft, stepReview, stepPublished, stepScheduled}).Draw(t, "step")
				cms.addVariant(id, langDefaultID, step)
			}
			requests = append(requests, request(id, "default", "ana@example.com"))
		}

		o := assignment.NewOrchestrator(cms, testOptions(), discardLogger())
		results, err := o.Run(context.Background(), requests, nil)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(results) != n {
			t.Fatalf("got %d results, want %d", len(results), n)
		}
		for i, res := range results {
			if res.ContentItemID != requests[i].ContentItemID {
				t.Fatalf("result %d is for %s", i, res.ContentItemID)
			}
			if (i == missing) == res.Success {
				t.Fatalf("item %d success=%t, missing=%d", i, res.Success, missing)
			}
		}
	})
}

func TestWritePayloadPreservesElements(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepPublished, "u-cy", "u-old")

	results := run(t, cms, testOptions(), request("item-1", "default", "ana@example.com"))
	require.True(t, results[0].Success, results[0].Error)

	upserts := cms.upsertLog()
	require.NotEmpty(t, upserts)
	final := upserts[len(upserts)-1].Payload

	want, err := json.Marshal(testElements)
	require.NoError(t, err)
	got, err := json.Marshal(final.Elements)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))

	assert.Equal(t, []kontent.Reference{{ID: "u-ana"}}, final.Contributors, "contributors replaced, not merged")
	require.NotNil(t, final.Workflow)
	assert.Equal(t, stepDraft, final.Workflow.Step.ID)
}

func TestUnresolvedContributorFallsBackToEmail(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepDraft)
	logger, logs := bufferLogger()

	o := assignment.NewOrchestrator(cms, testOptions(), logger)
	results, err := o.Run(context.Background(), []assignment.Request{
		request("item-1", "default", "ana@example.com", "ghost@example.com"),
	}, nil)
	require.NoError(t, err)

	res := results[0]
	assert.True(t, res.Success)
	assert.Equal(t, []string{"u-ana", "ghost@example.com"}, res.Contributors)
	assert.Contains(t, logs.String(), "using email as user id")
	assert.Contains(t, logs.String(), "email=ghost@example.com")
	assert.Contains(t, logs.String(), "policy=fallback")
}

func TestUnresolvedContributorRejectedByCMS(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepDraft)
	cms.upsertErr = func(_ string, _ kontent.LanguageRef, p kontent.VariantPayload) error {
		for _, c := range p.Contributors {
			if strings.Contains(c.ID, "@") {
				return rejected("Invalid user identifier")
			}
		}
		return nil
	}

	results := run(t, cms, testOptions(), request("item-1", "default", "ghost@example.com"))

	res := results[0]
	assert.Equal(t, assignment.OutcomeFailed, res.Outcome)
	assert.Equal(t, assignment.ReasonUnresolvedContributor, res.Reason)
	assert.Contains(t, res.Message, "ghost@example.com")
}

func TestFailPolicySkipsWrite(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepDraft)
	opts := testOptions()
	opts.Policy = assignment.PolicyFail

	results := run(t, cms, opts, request("item-1", "default", "ana@example.com", "ghost@example.com"))

	assert.Equal(t, assignment.ReasonUnresolvedContributor, results[0].Reason)
	assert.Empty(t, cms.upsertLog())
}

func TestLanguageCodenameRetriedWithID(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langSpanishID, stepDraft)
	codenameRejected := func(_ string, lang kontent.LanguageRef) error {
		if !lang.IsID() {
			return rejected("Language codename not supported here")
		}
		return nil
	}
	cms.getErr = codenameRejected
	cms.upsertErr = func(itemID string, lang kontent.LanguageRef, _ kontent.VariantPayload) error {
		return codenameRejected(itemID, lang)
	}

	results := run(t, cms, testOptions(), request("item-1", "es-ES", "ana@example.com"))
	require.True(t, results[0].Success, results[0].Error)

	assert.Equal(t, []string{
		"get item-1/es-ES",
		"get item-1/" + langSpanishID,
		"upsert item-1/es-ES",
		"upsert item-1/" + langSpanishID,
	}, cms.callLog())
}

func TestVariantFoundByListingAfterNotFound(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langSpanishID, stepDraft)
	cms.getErr = func(string, kontent.LanguageRef) error { return notFound("/variants") }

	results := run(t, cms, testOptions(), request("item-1", "es-ES", "ana@example.com"))

	require.True(t, results[0].Success, results[0].Error)
	assert.Contains(t, cms.callLog(), "list item-1")
}

func TestMissingLanguageVariant(t *testing.T) {
	cms := newFakeCMS()
	cms.addVariant("item-1", langDefaultID, stepDraft)

	results := run(t, cms, testOptions(), request("item-1", "es-ES", "ana@example.com"))

	assert.Equal(t, assignment.ReasonNotFound, results[0].Reason)
	assert.Contains(t, results[0].Error, assignment.ErrVariantNotFound.Error())
}

func TestWorkflowCatalogUnavailableUsesFallbackSteps(t *testing.T) {
	cms := newFakeCMS()
	cms.workflowsErr = fmt.Errorf("%w: timeout", kontent.ErrNoResponse)
	cms.addVariant("item-1", langDefaultID, kontent.DefaultPublishedStepID)
	logger, logs := bufferLogger()

	o := assignment.NewOrchestrator(cms, testOptions(), logger)
	results, err := o.Run(context.Background(), []assignment.Request{
		request("item-1", "default", "ana@example.com"),
	}, nil)
	require.NoError(t, err)

	require.True(t, results[0].Success, results[0].Error)
	assert.Contains(t, results[0].Message, "from published to draft")
	assert.Contains(t, logs.String(), "workflow catalog unavailable")
	assert.NotContains(t, strings.Join(cms.callLog(), ","), "workflow item-1", "no draft target is known")
}

func TestMalformedWorkflowCatalogAbortsBatch(t *testing.T) {
	cms := newFakeCMS()
	cms.workflowsErr = &kontent.ShapeError{Resource: "workflows", Got: "string"}

	o := assignment.NewOrchestrator(cms, testOptions(), discardLogger())
	_, err := o.Run(context.Background(), []assignment.Request{request("item-1", "default", "ana@example.com")}, nil)

	assert.ErrorIs(t, err, assignment.ErrBatchSetup)
	assert.ErrorIs(t, err, kontent.ErrMalformedResponse)
}

func TestUserDirectoryFailureAbortsBatch(t *testing.T) {
	cms := newFakeCMS()
	cms.usersErr = &kontent.APIError{StatusCode: http.StatusUnauthorized, Message: "bad key"}

	o := assignment.NewOrchestrator(cms, testOptions(), discardLogger())
	_, err := o.Run(context.Background(), []assignment.Request{request("item-1", "default", "ana@example.com")}, nil)

	assert.ErrorIs(t, err, assignment.ErrBatchSetup)
	assert.Equal(t, http.StatusBadGateway, assignment.MapHTTPStatus(err))
}

func TestEmptyBatch(t *testing.T) {
	o := assignment.NewOrchestrator(newFakeCMS(), testOptions(), discardLogger())
	results, err := o.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestCancellationStopsRemainingItems(t *testing.T) {
	cms := newFakeCMS()
	for i := range 3 {
		cms.addVariant(fmt.Sprintf("item-%d", i), langDefaultID, stepDraft)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var processed int
	o := assignment.NewOrchestrator(cms, testOptions(), discardLogger())
	results, err := o.Run(ctx, []assignment.Request{
		request("item-0", "default", "ana@example.com"),
		request("item-1", "default", "ana@example.com"),
		request("item-2", "default", "ana@example.com"),
	}, func(r assignment.Result) {
		processed++
		if processed == 1 {
			cancel()
		}
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	for _, res := range results[1:] {
		assert.Equal(t, assignment.ReasonCanceled, res.Reason)
		assert.Contains(t, res.Error, context.Canceled.Error())
	}
	assert.Len(t, cms.upsertLog(), 1)
}
