package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"rental_listing_v1/internal/api/dto"
	"rental_listing_v1/internal/client"
	"rental_listing_v1/internal/model"
	"rental_listing_v1/internal/smartform"
)

func testOptions() smartform.Options {
	return smartform.Options{
		ValidationDelay:   20 * time.Millisecond,
		AutocompleteDelay: 10 * time.Millisecond,
		BlurGrace:         10 * time.Millisecond,
		MaxAutocomplete:   5,
	}
}

type smartFormFixture struct {
	svc      *SmartFormService
	ai       *mockAI
	feedback *mockFeedbackRepo
	logs     *mockAILogRepo
	wizard   *WizardService
	drafts   *mockDraftRepo
}

func newSmartFormFixture() *smartFormFixture {
	ai := &mockAI{suggestFn: func(_ context.Context, _ smartform.Session, field string, _ smartform.Form) ([]smartform.Suggestion, error) {
		if field == "basicInfo.title" {
			return []smartform.Suggestion{smartform.NewAISuggestion(field, "Cozy riverside loft", 0.9, "常见标题", "mock-model")}, nil
		}
		return nil, nil
	}}
	feedback := &mockFeedbackRepo{}
	logs := &mockAILogRepo{}
	wizard, drafts := newTestWizard(nil)

	svc := NewSmartFormService(SmartFormDeps{
		AI:       ai,
		Feedback: feedback,
		Recorder: NewAICallRecorder(logs, nil),
		Drafts:   wizard,
		Options:  testOptions(),
		TTL:      time.Minute,
	})
	return &smartFormFixture{svc: svc, ai: ai, feedback: feedback, logs: logs, wizard: wizard, drafts: drafts}
}

func TestSmartFormService_SessionLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSmartFormFixture()
	ctx := context.Background()

	draft, err := f.wizard.Create(ctx, &dto.CreateDraftRequest{UserID: 1, FormData: smartform.Form{
		"location": map[string]any{"city": "Lisbon"},
	}})
	require.NoError(t, err)

	snap, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{UserID: 1, DraftID: draft.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Session.ID)
	city, _ := snap.Form.Get("location.city")
	assert.Equal(t, "Lisbon", city, "以草稿表单为初始值")
	assert.Equal(t, 1, f.svc.ActiveSessions())

	_, err = f.svc.Input(snap.Session.ID, "basicInfo.title", "Loft")
	require.NoError(t, err)

	require.NoError(t, f.svc.CloseSession(ctx, snap.Session.ID))
	assert.Equal(t, 0, f.svc.ActiveSessions())

	// 关闭时回写草稿
	form, err := f.wizard.Form(ctx, draft.ID)
	require.NoError(t, err)
	title, _ := form.Get("basicInfo.title")
	assert.Equal(t, "Loft", title)

	_, err = f.svc.Snapshot(snap.Session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.CloseSession(ctx, snap.Session.ID), ErrSessionNotFound)
}

func TestSmartFormService_CloseKeepsStepsSavedDuringSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSmartFormFixture()
	ctx := context.Background()

	draft, err := f.wizard.Create(ctx, &dto.CreateDraftRequest{UserID: 1, FormData: smartform.Form{
		"location": map[string]any{"city": "Lisbon"},
	}})
	require.NoError(t, err)

	snap, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{UserID: 1, DraftID: draft.ID})
	require.NoError(t, err)

	_, err = f.svc.Input(snap.Session.ID, "basicInfo.title", "Loft")
	require.NoError(t, err)

	// 会话打开期间通过向导保存步骤
	_, err = f.wizard.SaveStep(ctx, draft.ID, model.StepPricing, smartform.Form{
		"pricing":  map[string]any{"basePrice": 120.0},
		"location": map[string]any{"city": "Porto"},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.CloseSession(ctx, snap.Session.ID))

	form, err := f.wizard.Form(ctx, draft.ID)
	require.NoError(t, err)
	price, ok := form.Get("pricing.basePrice")
	require.True(t, ok, "步骤数据不应被会话回写覆盖")
	assert.Equal(t, 120.0, price)
	city, _ := form.Get("location.city")
	assert.Equal(t, "Porto", city, "会话未修改的字段保留草稿值")
	title, _ := form.Get("basicInfo.title")
	assert.Equal(t, "Loft", title)
}

func TestSmartFormService_CloseWithoutChangesSkipsSync(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSmartFormFixture()
	ctx := context.Background()

	draft, err := f.wizard.Create(ctx, &dto.CreateDraftRequest{UserID: 1})
	require.NoError(t, err)
	snap, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{DraftID: draft.ID})
	require.NoError(t, err)

	// 草稿已提交，只读会话关闭时不回写
	f.drafts.drafts[draft.ID].Status = model.DraftStatusSubmitted
	assert.NoError(t, f.svc.CloseSession(ctx, snap.Session.ID))
}

func TestSmartFormService_ApplyRecordsFeedback(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSmartFormFixture()
	ctx := context.Background()

	snap, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{UserID: 1})
	require.NoError(t, err)
	id := snap.Session.ID
	defer f.svc.Shutdown(ctx)

	list, err := f.svc.Suggestions(ctx, id, "basicInfo.title")
	require.NoError(t, err)
	require.Len(t, list, 1)

	result, err := f.svc.Apply(ctx, id, &dto.ApplySuggestionRequest{Field: "basicInfo.title", SuggestionID: list[0].ID})
	require.NoError(t, err)
	assert.Equal(t, "Cozy riverside loft", result.Applied.Value)
	title, _ := result.Form.Get("basicInfo.title")
	assert.Equal(t, "Cozy riverside loft", title)

	// 采纳后从待处理列表移除
	snapAfter, err := f.svc.Snapshot(id)
	require.NoError(t, err)
	assert.Empty(t, snapAfter.Analysis.Suggestions)

	records := f.feedback.records()
	require.Len(t, records, 1)
	assert.Equal(t, "basicInfo.title", records[0].Field)
	assert.Equal(t, "ai", records[0].SuggestionType)
	assert.True(t, records[0].Accepted)
	assert.JSONEq(t, `"Cozy riverside loft"`, string(records[0].Value))

	_, err = f.svc.Apply(ctx, id, &dto.ApplySuggestionRequest{Field: "basicInfo.title", SuggestionID: list[0].ID})
	assert.ErrorIs(t, err, smartform.ErrSuggestionNotFound)

	// AI 建议调用写入日志
	var types []string
	for _, l := range f.logs.entries() {
		types = append(types, l.CallType)
	}
	assert.Contains(t, types, model.AICallTypeSuggestions)
}

func TestSmartFormService_SubscribeReceivesEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSmartFormFixture()
	ctx := context.Background()

	snap, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)
	id := snap.Session.ID

	ch, err := f.svc.Subscribe(id)
	require.NoError(t, err)

	_, err = f.svc.Suggestions(ctx, id, "basicInfo.title")
	require.NoError(t, err)

	select {
	case e := <-ch:
		assert.Equal(t, smartform.EventSuggestions, e.Kind)
		assert.Equal(t, id, e.SessionID)
	case <-time.After(time.Second):
		t.Fatal("未收到事件")
	}

	_, err = f.svc.Input(id, "details.bedrooms", 2)
	require.NoError(t, err)
	_, err = f.svc.Blur(id, "details.bedrooms")
	require.NoError(t, err)

	var states []smartform.InputState
	deadline := time.After(time.Second)
	for len(states) < 3 {
		select {
		case e := <-ch:
			if e.Kind == smartform.EventState {
				assert.Equal(t, "details.bedrooms", e.Field)
				states = append(states, e.State)
			}
		case <-deadline:
			t.Fatalf("状态事件不完整: %v", states)
		}
	}
	assert.Equal(t, []smartform.InputState{smartform.StateTyping, smartform.StateBlurred, smartform.StateIdle}, states)

	require.NoError(t, f.svc.CloseSession(ctx, id))
	// 会话关闭后订阅 channel 被关闭
	for range ch {
	}
	f.svc.Unsubscribe(id, ch)

	_, err = f.svc.Subscribe(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSmartFormService_SubscribeRacingClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSmartFormFixture()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		snap, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
		require.NoError(t, err)
		id := snap.Session.ID

		subscribed := make(chan chan smartform.Event, 1)
		go func() {
			ch, err := f.svc.Subscribe(id)
			if err != nil {
				ch = nil
			}
			subscribed <- ch
		}()
		require.NoError(t, f.svc.CloseSession(ctx, id))

		ch := <-subscribed
		if ch == nil {
			continue
		}
		// 订阅成功则必然随会话关闭
		select {
		case _, open := <-ch:
			for open {
				_, open = <-ch
			}
		case <-time.After(time.Second):
			t.Fatal("会话关闭后订阅 channel 未关闭")
		}
		assert.Zero(t, f.svc.Subscribers(id))
	}
}

func TestSmartFormService_DebouncedValidationEvent(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSmartFormFixture()
	f.ai.validateFn = func(_ context.Context, _ smartform.Session, form smartform.Form) ([]smartform.ValidationIssue, error) {
		return []smartform.ValidationIssue{{Field: "basicInfo.title", Message: "标题偏短", Severity: smartform.SeverityWarning}}, nil
	}
	ctx := context.Background()

	snap, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)
	id := snap.Session.ID
	defer f.svc.Shutdown(ctx)

	ch, err := f.svc.Subscribe(id)
	require.NoError(t, err)

	for _, v := range []string{"L", "Lo", "Lof"} {
		_, err := f.svc.Input(id, "basicInfo.title", v)
		require.NoError(t, err)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case e := <-ch:
			if e.Kind == smartform.EventValidation {
				require.Len(t, e.Issues, 1)
				assert.Equal(t, smartform.SeverityWarning, e.Issues[0].Severity)
				return
			}
		case <-deadline:
			t.Fatal("未收到校验事件")
		}
	}
}

func TestSmartFormService_AutoFill(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSmartFormFixture()
	ctx := context.Background()

	snap, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{Form: smartform.Form{
		"location": map[string]any{"city": "Lisbon"},
	}})
	require.NoError(t, err)
	id := snap.Session.ID
	defer f.svc.Shutdown(ctx)

	_, err = f.svc.Suggestions(ctx, id, "basicInfo.title")
	require.NoError(t, err)

	result, err := f.svc.AutoFill(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Filled)
	assert.Equal(t, 29, result.Analysis.Completeness)
	assert.Len(t, f.feedback.records(), 1)

	// 已填写字段不再覆盖
	result, err = f.svc.AutoFill(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Filled)
}

func TestSmartFormService_SweepIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSmartFormFixture()
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	idle, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	active, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, f.svc.SweepIdle(ctx))

	_, err = f.svc.Snapshot(idle.Session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Snapshot(active.Session.ID)
	assert.NoError(t, err)

	f.svc.Shutdown(ctx)
	assert.Equal(t, 0, f.svc.ActiveSessions())
}

func TestSmartFormService_DraftMissing(t *testing.T) {
	f := newSmartFormFixture()
	_, err := f.svc.CreateSession(context.Background(), &dto.CreateSessionRequest{DraftID: 404})
	assert.True(t, errors.Is(err, ErrDraftNotFound))
}

func TestSmartFormService_LocationSuggestions(t *testing.T) {
	defer goleak.VerifyNone(t)

	places := &mockPlaces{searchFn: func(query string, _ int) ([]client.Place, error) {
		return []client.Place{{Name: "Lisboa", City: "Lisbon"}, {Name: "Lisburn", City: "Lisburn"}}, nil
	}}
	svc := NewSmartFormService(SmartFormDeps{
		AI:       &mockAI{},
		Location: NewLocationService(places, nil),
		Options:  testOptions(),
	})
	ctx := context.Background()
	defer svc.Shutdown(ctx)

	snap, err := svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	list, err := svc.Autocomplete(ctx, snap.Session.ID, "location.city", "Lis")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Lisbon", list[0].Value)

	list, err = svc.Autocomplete(ctx, snap.Session.ID, "location.city", "L")
	require.NoError(t, err)
	assert.Empty(t, list)
}
