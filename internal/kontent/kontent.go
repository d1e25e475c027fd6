// Package kontent is a narrow client for the headless CMS management and
// subscription REST APIs. It covers the reference-data listings and the
// language variant operations needed to assign contributors, and nothing more.
package kontent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Reference addresses a CMS object by id or codename. The API accepts either
// form in most places; a bare JSON string is decoded as an id.
type Reference struct {
	ID       string `json:"id,omitempty"`
	Codename string `json:"codename,omitempty"`
}

// UnmarshalJSON accepts either an object reference or a bare id string.
func (r *Reference) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		*r = Reference{ID: id}
		return nil
	}

	type plain Reference
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*r = Reference(p)
	return nil
}

// Key returns the codename when present, otherwise the id.
func (r Reference) Key() string {
	if r.Codename != "" {
		return r.Codename
	}
	return r.ID
}

// IsZero reports whether the reference carries neither id nor codename.
func (r Reference) IsZero() bool {
	return r.ID == "" && r.Codename == ""
}

// User is an entry of the subscription user directory.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// FullName joins the first and last name, falling back to the email.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// ContentItem is a content item listing entry. Language, Contributors and
// WorkflowStep are only populated by listings that inline variant data.
type ContentItem struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Codename     string      `json:"codename"`
	Type         Reference   `json:"type"`
	LastModified string      `json:"last_modified,omitempty"`
	Language     *Reference  `json:"language,omitempty"`
	Contributors []Reference `json:"contributors,omitempty"`
	WorkflowStep *Reference  `json:"workflow_step,omitempty"`
}

// ContentType is a content type listing entry.
type ContentType struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Codename string `json:"codename"`
}

// Language is a project language.
type Language struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Codename  string `json:"codename"`
	IsActive  bool   `json:"is_active"`
	IsDefault bool   `json:"is_default"`
}

// WorkflowStep is a single node of a workflow definition.
type WorkflowStep struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Codename string `json:"codename"`
}

// Workflow is a read-only workflow definition. Steps holds the draft-class
// steps in order; the distinguished steps are carried separately.
type Workflow struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Codename      string         `json:"codename"`
	Steps         []WorkflowStep `json:"steps"`
	PublishedStep *WorkflowStep  `json:"published_step,omitempty"`
	ScheduledStep *WorkflowStep  `json:"scheduled_step,omitempty"`
	ArchivedStep  *WorkflowStep  `json:"archived_step,omitempty"`
}

// IsDistinguished reports whether stepID is the published, scheduled or
// archived step of the workflow.
func (w *Workflow) IsDistinguished(stepID string) bool {
	for _, s := range []*WorkflowStep{w.PublishedStep, w.ScheduledStep, w.ArchivedStep} {
		if s != nil && s.ID != "" && strings.EqualFold(s.ID, stepID) {
			return true
		}
	}
	return false
}

// DraftSteps returns every step that is not a distinguished step, in order.
func (w *Workflow) DraftSteps() []WorkflowStep {
	steps := make([]WorkflowStep, 0, len(w.Steps))
	for _, s := range w.Steps {
		if !w.IsDistinguished(s.ID) {
			steps = append(steps, s)
		}
	}
	return steps
}

// DraftTarget returns the canonical draft step: the first draft-class step.
func (w *Workflow) DraftTarget() (WorkflowStep, bool) {
	steps := w.DraftSteps()
	if len(steps) == 0 {
		return WorkflowStep{}, false
	}
	return steps[0], true
}

// WorkflowPointer locates a variant within a workflow.
type WorkflowPointer struct {
	Workflow Reference `json:"workflow_identifier"`
	Step     Reference `json:"step_identifier"`
}

// IsZero reports whether the pointer does not reference a step.
func (p WorkflowPointer) IsZero() bool {
	return p.Step.IsZero()
}

// Variant is a content item's content in one language.
type Variant struct {
	Item         Reference        `json:"item"`
	Language     Reference        `json:"language"`
	Elements     Elements         `json:"elements"`
	Workflow     *WorkflowPointer `json:"workflow,omitempty"`
	WorkflowStep *Reference       `json:"workflow_step,omitempty"`
	Contributors []Reference      `json:"contributors,omitempty"`
	LastModified string           `json:"last_modified,omitempty"`
	Version      json.RawMessage  `json:"version,omitempty"`
}

// Pointer returns the variant's workflow position, preferring the workflow
// object and falling back to the legacy workflow_step reference.
func (v *Variant) Pointer() WorkflowPointer {
	if v.Workflow != nil && !v.Workflow.IsZero() {
		return *v.Workflow
	}
	if v.WorkflowStep != nil {
		return WorkflowPointer{Step: *v.WorkflowStep}
	}
	return WorkflowPointer{}
}

// ContributorIDs returns the ids of the current contributors in order.
func (v *Variant) ContributorIDs() []string {
	ids := make([]string, 0, len(v.Contributors))
	for _, c := range v.Contributors {
		ids = append(ids, c.Key())
	}
	return ids
}

// Payload builds the write form of the variant with the contributor list
// replaced by contributorIDs. Identity and version metadata are not carried.
func (v *Variant) Payload(contributorIDs []string) VariantPayload {
	contributors := make([]Reference, 0, len(contributorIDs))
	for _, id := range contributorIDs {
		contributors = append(contributors, Reference{ID: id})
	}

	p := VariantPayload{
		Elements:     slices.Clone(v.Elements),
		Contributors: contributors,
	}
	if ptr := v.Pointer(); !ptr.IsZero() {
		p.Workflow = &ptr
	}
	if p.Elements == nil {
		p.Elements = Elements{}
	}
	return p
}

// VariantPayload is the body of a full variant upsert.
type VariantPayload struct {
	Elements     Elements         `json:"elements"`
	Contributors []Reference      `json:"contributors"`
	Workflow     *WorkflowPointer `json:"workflow,omitempty"`
}

// WithWorkflow returns a copy of the payload pointing at ptr.
func (p VariantPayload) WithWorkflow(ptr WorkflowPointer) VariantPayload {
	p.Workflow = &ptr
	return p
}

// Element is one element value of a variant. Value and any additional
// properties (rich text components, url slug mode) are kept verbatim.
type Element struct {
	Ref   Reference
	Value json.RawMessage
	Extra map[string]json.RawMessage
}

// UnmarshalJSON decodes the array form `{"element": {...}, "value": ...}`.
func (e *Element) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var el Element
	if raw, ok := fields["element"]; ok {
		if err := json.Unmarshal(raw, &el.Ref); err != nil {
			return fmt.Errorf("element reference: %w", err)
		}
		delete(fields, "element")
	}
	if raw, ok := fields["value"]; ok {
		el.Value = raw
		delete(fields, "value")
	}
	if len(fields) > 0 {
		el.Extra = fields
	}

	*e = el
	return nil
}

// MarshalJSON encodes the element in the array form the write API expects.
func (e Element) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+2)
	for k, v := range e.Extra {
		out[k] = v
	}
	out["element"] = e.Ref
	if e.Value == nil {
		out["value"] = nil
	} else {
		out["value"] = e.Value
	}
	return json.Marshal(out)
}

// Elements is the element collection of a variant. It decodes from both the
// array-of-element form and the codename-keyed mapping form, and always
// encodes as the array form.
type Elements []Element

// UnmarshalJSON accepts an array of elements or an object keyed by element
// codename whose values are either `{"value": ...}` objects or bare values.
func (e *Elements) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*e = nil
		return nil
	}

	switch trimmed[0] {
	case '[':
		var list []Element
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*e = list
		return nil
	case '{':
		var mapped map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &mapped); err != nil {
			return err
		}
		keys := make([]string, 0, len(mapped))
		for k := range mapped {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		list := make([]Element, 0, len(keys))
		for _, k := range keys {
			list = append(list, mappedElement(k, mapped[k]))
		}
		*e = list
		return nil
	default:
		return fmt.Errorf("%w: elements must be an array or object", ErrMalformedResponse)
	}
}

// Map returns element values keyed by element codename (or id).
func (e Elements) Map() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(e))
	for _, el := range e {
		out[el.Ref.Key()] = el.Value
	}
	return out
}

func mappedElement(codename string, raw json.RawMessage) Element {
	el := Element{Ref: Reference{Codename: codename}, Value: raw}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return el
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return el
	}
	value, ok := fields["value"]
	if !ok {
		return el
	}

	el.Value = value
	delete(fields, "value")
	delete(fields, "element")
	if len(fields) > 0 {
		el.Extra = fields
	}
	return el
}
