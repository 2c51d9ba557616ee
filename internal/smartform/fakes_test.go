package smartform

import (
	"context"
	"sync"
)

// ==================== 测试替身 ====================

type fakeValidator struct {
	mu      sync.Mutex
	forms   []Form
	validFn func(ctx context.Context, form Form) ([]ValidationIssue, error)
}

func (f *fakeValidator) ValidatePropertyData(ctx context.Context, _ Session, form Form) ([]ValidationIssue, error) {
	f.mu.Lock()
	f.forms = append(f.forms, form)
	f.mu.Unlock()

	if f.validFn != nil {
		return f.validFn(ctx, form)
	}
	return []ValidationIssue{}, nil
}

func (f *fakeValidator) seen() []Form {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Form(nil), f.forms...)
}

type fakeSuggester struct {
	suggestFn func(ctx context.Context, field string, form Form) ([]Suggestion, error)
}

func (f *fakeSuggester) GetSmartSuggestions(ctx context.Context, _ Session, field string, form Form) ([]Suggestion, error) {
	if f.suggestFn != nil {
		return f.suggestFn(ctx, field, form)
	}
	return nil, nil
}

type fakeHistory struct {
	byField map[string][]Suggestion
}

func (f *fakeHistory) Historical(_ context.Context, field string) ([]Suggestion, error) {
	return append([]Suggestion(nil), f.byField[field]...), nil
}

type fakePricer struct {
	priceFn func(field string, form Form) ([]Suggestion, error)
}

func (f *fakePricer) PriceSuggestions(_ context.Context, _ Session, field string, form Form) ([]Suggestion, error) {
	if f.priceFn != nil {
		return f.priceFn(field, form)
	}
	return nil, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *eventRecorder) has(kind EventKind) bool {
	for _, k := range r.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func fullForm() Form {
	return Form{
		"basicInfo": map[string]any{
			"title":        "Sunny loft near the river",
			"description":  "Spacious loft with a view of the river and fast wifi.",
			"propertyType": "apartment",
		},
		"location": map[string]any{
			"address": "12 Quay Street",
			"city":    "Lisbon",
		},
		"pricing": map[string]any{"basePrice": 120.0},
		"details": map[string]any{"bedrooms": 2.0},
	}
}
