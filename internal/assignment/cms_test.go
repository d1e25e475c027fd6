package assignment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/JaimeStill/kontrib/internal/assignment"
	"github.com/JaimeStill/kontrib/internal/kontent"
)

const (
	langDefaultID = "00000000-0000-0000-0000-000000000000"
	langSpanishID = "d1f95fde-af02-b3b5-bd9e-f232311ccab8"

	workflowID    = "wf-default"
	stepDraft     = "step-draft"
	stepReview    = "step-review"
	stepPublished = "step-published"
	stepScheduled = "step-scheduled"
	stepArchived  = "step-archived"
)

var (
	testUsers = []kontent.User{
		{ID: "u-ana", Email: "ana@example.com", FirstName: "Ana"},
		{ID: "u-bo", Email: "Bo@Example.com", FirstName: "Bo"},
		{ID: "u-cy", Email: "cy@example.com", FirstName: "Cy"},
	}

	testLanguages = []kontent.Language{
		{ID: langDefaultID, Codename: "default", Name: "English", IsDefault: true},
		{ID: langSpanishID, Codename: "es-ES", Name: "Spanish"},
	}

	testWorkflow = kontent.Workflow{
		ID:       workflowID,
		Codename: "default",
		Name:     "Default",
		Steps: []kontent.WorkflowStep{
			{ID: stepDraft, Codename: "draft", Name: "Draft"},
			{ID: stepReview, Codename: "review", Name: "Review"},
		},
		PublishedStep: &kontent.WorkflowStep{ID: stepPublished, Codename: "published"},
		ScheduledStep: &kontent.WorkflowStep{ID: stepScheduled, Codename: "scheduled"},
		ArchivedStep:  &kontent.WorkflowStep{ID: stepArchived, Codename: "archived"},
	}

	testElements = kontent.Elements{
		{Ref: kontent.Reference{ID: "el-title"}, Value: json.RawMessage(`"Hello"`)},
		{Ref: kontent.Reference{ID: "el-body"}, Value: json.RawMessage(`"<p>Body</p>"`),
			Extra: map[string]json.RawMessage{"components": json.RawMessage(`[]`)}},
	}
)

type refHook func(itemID string, lang kontent.LanguageRef) error

type upsertCall struct {
	ItemID   string
	Language string
	Payload  kontent.VariantPayload
}

// fakeCMS is an in-memory CMS. Variants are keyed by item id and language id;
// hooks inject failures per operation.
type fakeCMS struct {
	mu sync.Mutex

	users        []kontent.User
	usersErr     error
	languages    []kontent.Language
	languagesErr error
	workflows    []kontent.Workflow
	workflowsErr error

	variants map[string]*kontent.Variant

	getErr        refHook
	listErr       func(itemID string) error
	upsertErr     func(itemID string, lang kontent.LanguageRef, p kontent.VariantPayload) error
	changeStepErr refHook
	newVersionErr refHook
	unpublishErr  refHook

	// onGet runs before every GetVariant; tests use it to block or cancel.
	onGet func(ctx context.Context)

	calls   []string
	upserts []upsertCall
}

func newFakeCMS() *fakeCMS {
	return &fakeCMS{
		users:     slices.Clone(testUsers),
		languages: slices.Clone(testLanguages),
		workflows: []kontent.Workflow{testWorkflow},
		variants:  make(map[string]*kontent.Variant),
	}
}

func (f *fakeCMS) addVariant(itemID, langID, stepID string, contributors ...string) {
	refs := make([]kontent.Reference, 0, len(contributors))
	for _, c := range contributors {
		refs = append(refs, kontent.Reference{ID: c})
	}
	lang := kontent.Reference{ID: langID}
	for _, l := range f.languages {
		if l.ID == langID {
			lang.Codename = l.Codename
		}
	}
	f.variants[itemID+"|"+langID] = &kontent.Variant{
		Item:     kontent.Reference{ID: itemID},
		Language: lang,
		Elements: slices.Clone(testElements),
		Workflow: &kontent.WorkflowPointer{
			Workflow: kontent.Reference{ID: workflowID},
			Step:     kontent.Reference{ID: stepID},
		},
		Contributors: refs,
	}
}

func (f *fakeCMS) variant(itemID, langID string) *kontent.Variant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.variants[itemID+"|"+langID]
}

func (f *fakeCMS) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeCMS) upsertLog() []upsertCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.upserts)
}

func (f *fakeCMS) record(op, itemID string, lang kontent.LanguageRef) {
	f.calls = append(f.calls, op+" "+itemID+"/"+lang.String())
}

func (f *fakeCMS) langID(ref kontent.LanguageRef) string {
	if ref.IsID() {
		return ref.String()
	}
	for _, l := range f.languages {
		if l.Codename == ref.String() {
			return l.ID
		}
	}
	return ""
}

func (f *fakeCMS) lookup(itemID string, ref kontent.LanguageRef) (*kontent.Variant, error) {
	v, ok := f.variants[itemID+"|"+f.langID(ref)]
	if !ok {
		return nil, notFound("/items/" + itemID + "/variants/" + ref.String())
	}
	return v, nil
}

func (f *fakeCMS) ListUsers(context.Context) ([]kontent.User, error) {
	return f.users, f.usersErr
}

func (f *fakeCMS) ListLanguages(context.Context) ([]kontent.Language, error) {
	return f.languages, f.languagesErr
}

func (f *fakeCMS) ListWorkflows(context.Context) ([]kontent.Workflow, error) {
	return f.workflows, f.workflowsErr
}

func (f *fakeCMS) GetVariant(ctx context.Context, itemID string, lang kontent.LanguageRef) (*kontent.Variant, error) {
	if f.onGet != nil {
		f.onGet(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get", itemID, lang)
	if f.getErr != nil {
		if err := f.getErr(itemID, lang); err != nil {
			return nil, err
		}
	}
	v, err := f.lookup(itemID, lang)
	if err != nil {
		return nil, err
	}
	return cloneVariant(v), nil
}

func (f *fakeCMS) ListVariants(_ context.Context, itemID string) ([]kontent.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list "+itemID)
	if f.listErr != nil {
		if err := f.listErr(itemID); err != nil {
			return nil, err
		}
	}
	var out []kontent.Variant
	for _, v := range f.variants {
		if v.Item.ID == itemID {
			out = append(out, *cloneVariant(v))
		}
	}
	if out == nil {
		return nil, notFound("/items/" + itemID + "/variants")
	}
	return out, nil
}

func (f *fakeCMS) UpsertVariant(_ context.Context, itemID string, lang kontent.LanguageRef, payload kontent.VariantPayload) (*kontent.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upsert", itemID, lang)
	f.upserts = append(f.upserts, upsertCall{ItemID: itemID, Language: lang.String(), Payload: payload})
	if f.upsertErr != nil {
		if err := f.upsertErr(itemID, lang, payload); err != nil {
			return nil, err
		}
	}
	v, err := f.lookup(itemID, lang)
	if err != nil {
		return nil, err
	}
	v.Elements = slices.Clone(payload.Elements)
	v.Contributors = slices.Clone(payload.Contributors)
	if payload.Workflow != nil {
		ptr := *payload.Workflow
		v.Workflow = &ptr
	}
	return cloneVariant(v), nil
}

func (f *fakeCMS) ChangeWorkflowStep(_ context.Context, itemID string, lang kontent.LanguageRef, ptr kontent.WorkflowPointer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("workflow", itemID, lang)
	if f.changeStepErr != nil {
		if err := f.changeStepErr(itemID, lang); err != nil {
			return err
		}
	}
	v, err := f.lookup(itemID, lang)
	if err != nil {
		return err
	}
	v.Workflow = &ptr
	return nil
}

// CreateNewVersion and Unpublish move the variant to the first workflow step,
// as the CMS does.
func (f *fakeCMS) CreateNewVersion(_ context.Context, itemID string, lang kontent.LanguageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("new-version", itemID, lang)
	if f.newVersionErr != nil {
		if err := f.newVersionErr(itemID, lang); err != nil {
			return err
		}
	}
	return f.moveToFirstStep(itemID, lang)
}

func (f *fakeCMS) Unpublish(_ context.Context, itemID string, lang kontent.LanguageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unpublish", itemID, lang)
	if f.unpublishErr != nil {
		if err := f.unpublishErr(itemID, lang); err != nil {
			return err
		}
	}
	return f.moveToFirstStep(itemID, lang)
}

func (f *fakeCMS) moveToFirstStep(itemID string, lang kontent.LanguageRef) error {
	v, err := f.lookup(itemID, lang)
	if err != nil {
		return err
	}
	v.Workflow = &kontent.WorkflowPointer{
		Workflow: kontent.Reference{ID: workflowID},
		Step:     kontent.Reference{ID: stepReview},
	}
	return nil
}

func cloneVariant(v *kontent.Variant) *kontent.Variant {
	c := *v
	c.Elements = slices.Clone(v.Elements)
	c.Contributors = slices.Clone(v.Contributors)
	if v.Workflow != nil {
		ptr := *v.Workflow
		c.Workflow = &ptr
	}
	return &c
}

func notFound(path string) error {
	return &kontent.APIError{Method: "GET", Path: path, StatusCode: http.StatusNotFound, Message: "not found"}
}

func rejected(message string) error {
	return &kontent.APIError{
		Method:     "PUT",
		Path:       "/items",
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Messages:   []string{message},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func testOptions() assignment.Options {
	return assignment.Options{
		Policy: assignment.PolicyFallback,
		Steps: assignment.StepFallback{
			Published: kontent.DefaultPublishedStepID,
			Scheduled: kontent.DefaultScheduledStepID,
			Archived:  kontent.DefaultArchivedStepID,
		},
	}
}

func request(itemID, language string, contributors ...string) assignment.Request {
	return assignment.Request{
		ContentItemID: itemID,
		Language:      language,
		Contributors:  contributors,
	}
}

func contributorIDs(v *kontent.Variant) []string {
	if v == nil {
		return nil
	}
	return v.ContributorIDs()
}
