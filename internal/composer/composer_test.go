package composer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecards/internal/speech"
	"notecards/internal/toast"
)

type recorder struct {
	created []string
	err     error
}

func (r *recorder) create(_ context.Context, content string) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, content)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestComposer(t *testing.T, opts ...Option) (*Composer, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]Option{WithLogger(discardLogger()), WithID("test")}, opts...)
	c := New(rec.create, opts...)
	t.Cleanup(c.Close)
	return c, rec
}

func pushResults(t *testing.T, c *Composer, alts [][]string) {
	t.Helper()
	p, ok := c.Session().(speech.Pusher)
	require.True(t, ok, "no relay session active")
	require.NoError(t, p.Push(speech.FromStrings(alts)))
}

func TestNewComposerStartsInOnboarding(t *testing.T) {
	c, _ := newTestComposer(t)
	snap := c.Snapshot()
	assert.Equal(t, Onboarding, snap.Mode)
	assert.Equal(t, "", snap.Content)
	assert.Equal(t, "test", snap.ID)
}

func TestTypeAndSave(t *testing.T) {
	c, rec := newTestComposer(t)

	c.StartEditor()
	assert.Equal(t, Editing, c.Snapshot().Mode)

	c.Edit("H")
	c.Edit("Hello")
	require.NoError(t, c.Save(context.Background()))

	assert.Equal(t, []string{"Hello"}, rec.created)
	snap := c.Snapshot()
	assert.Equal(t, "", snap.Content)
	assert.Equal(t, Onboarding, snap.Mode)
	assert.Equal(t, []toast.Toast{{Level: toast.LevelSuccess, Message: MsgNoteCreated}}, c.Pending())
}

func TestSavePassesContentUnmodified(t *testing.T) {
	c, rec := newTestComposer(t)
	c.Edit("  padded note \n")
	require.NoError(t, c.Save(context.Background()))
	assert.Equal(t, []string{"  padded note \n"}, rec.created)
}

func TestSaveEmpty(t *testing.T) {
	for _, tt := range []struct {
		name  string
		setup func(c *Composer)
	}{
		{"never set", func(*Composer) {}},
		{"editor opened", func(c *Composer) { c.StartEditor() }},
		{"typed then cleared", func(c *Composer) { c.Edit("abc"); c.Edit("") }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestComposer(t)
			tt.setup(c)
			before := c.Snapshot().Mode

			err := c.Save(context.Background())
			assert.ErrorIs(t, err, ErrEmptyContent)
			assert.Empty(t, rec.created)
			assert.Equal(t, before, c.Snapshot().Mode)
			assert.Equal(t, []toast.Toast{{Level: toast.LevelError, Message: MsgEmptyContent}}, c.Pending())
		})
	}
}

func TestSaveCallbackFailureKeepsDraft(t *testing.T) {
	c, rec := newTestComposer(t)
	rec.err = errors.New("db down")
	c.Edit("keep me")

	err := c.Save(context.Background())
	assert.ErrorContains(t, err, "db down")
	snap := c.Snapshot()
	assert.Equal(t, "keep me", snap.Content)
	assert.Equal(t, Editing, snap.Mode)
	assert.Equal(t, []toast.Toast{{Level: toast.LevelError, Message: MsgSaveFailed}}, c.Pending())
}

func TestClearingContentReturnsToOnboarding(t *testing.T) {
	c, _ := newTestComposer(t)
	c.StartEditor()
	c.Edit("Hi")
	assert.Equal(t, Editing, c.Snapshot().Mode)
	c.Edit("H")
	c.Edit("")
	assert.Equal(t, Onboarding, c.Snapshot().Mode)
}

func TestRecordWithoutCapability(t *testing.T) {
	for _, rec := range []speech.Recognizer{nil, speech.Unavailable{}, speech.NewRelay(false)} {
		c, _ := newTestComposer(t)
		err := c.StartRecording(rec)
		assert.ErrorIs(t, err, ErrCapabilityUnavailable)
		assert.Equal(t, Onboarding, c.Snapshot().Mode)
		assert.Nil(t, c.Session())
		assert.Equal(t, []toast.Toast{{Level: toast.LevelWarning, Message: MsgNoSpeechAPI}}, c.Pending())
	}
}

func TestRecordScenario(t *testing.T) {
	c, _ := newTestComposer(t)
	require.NoError(t, c.StartRecording(speech.NewRelay(true)))
	assert.Equal(t, Recording, c.Snapshot().Mode)

	pushResults(t, c, [][]string{{"Hello "}})
	assert.Equal(t, "Hello ", c.Snapshot().Content)
	pushResults(t, c, [][]string{{"Hello world"}})
	assert.Equal(t, "Hello world", c.Snapshot().Content)

	c.StopRecording()
	snap := c.Snapshot()
	assert.Equal(t, "Hello world", snap.Content)
	assert.Equal(t, Editing, snap.Mode)
	assert.Nil(t, c.Session())

	// The transcript stays editable.
	c.Edit("Hello world!")
	assert.Equal(t, "Hello world!", c.Snapshot().Content)
}

func TestResultsReplaceNotAppend(t *testing.T) {
	c, _ := newTestComposer(t)
	require.NoError(t, c.StartRecording(speech.NewRelay(true)))

	events := [][][]string{
		{{"one "}},
		{{"one ", "won "}, {"two"}},
		{{"one "}, {"two "}, {"three", "tree", "free"}},
	}
	for _, ev := range events {
		pushResults(t, c, ev)
		assert.Equal(t, speech.Transcript(speech.FromStrings(ev)), c.Snapshot().Content)
	}
	assert.Equal(t, "one two three", c.Snapshot().Content)
}

func TestStartRecordingIsReentrant(t *testing.T) {
	c, _ := newTestComposer(t)
	require.NoError(t, c.StartRecording(speech.NewRelay(true)))
	first := c.Session()
	require.NoError(t, c.StartRecording(speech.NewRelay(true)))
	assert.Same(t, first, c.Session())
}

func TestStopWithoutSession(t *testing.T) {
	c, _ := newTestComposer(t)
	c.Edit("draft")
	c.StopRecording()
	snap := c.Snapshot()
	assert.Equal(t, "draft", snap.Content)
	assert.Equal(t, Editing, snap.Mode)
}

func TestStopWithEmptyTranscriptShowsEditor(t *testing.T) {
	c, _ := newTestComposer(t)
	require.NoError(t, c.StartRecording(speech.NewRelay(true)))
	c.StopRecording()
	snap := c.Snapshot()
	assert.Equal(t, Editing, snap.Mode)
	assert.Equal(t, "", snap.Content)
}

func TestSpeechEventsRefreshIdleTime(t *testing.T) {
	c, _ := newTestComposer(t)
	require.NoError(t, c.StartRecording(speech.NewRelay(true)))
	stale := time.Now().Add(-time.Hour)
	c.mu.Lock()
	c.lastSeen = stale
	c.mu.Unlock()

	pushResults(t, c, [][]string{{"talking"}})
	assert.True(t, c.IdleSince().After(stale))

	c.mu.Lock()
	c.lastSeen = stale
	c.mu.Unlock()
	require.NoError(t, c.Session().(speech.Pusher).Fail(errors.New("no-speech")))
	assert.True(t, c.IdleSince().After(stale))
}

func TestLateResultsAfterStopAreIgnored(t *testing.T) {
	c, _ := newTestComposer(t)
	require.NoError(t, c.StartRecording(speech.NewRelay(true)))
	p := c.Session().(speech.Pusher)
	require.NoError(t, p.Push(speech.FromStrings([][]string{{"kept"}})))
	c.StopRecording()

	assert.ErrorIs(t, p.Push(speech.FromStrings([][]string{{"late"}})), speech.ErrSessionStopped)
	c.ApplyResults(speech.FromStrings([][]string{{"late"}}))
	assert.Equal(t, "kept", c.Snapshot().Content)
}

func TestSaveWhileRecording(t *testing.T) {
	c, rec := newTestComposer(t)
	require.NoError(t, c.StartRecording(speech.NewRelay(true)))
	pushResults(t, c, [][]string{{"text"}})
	assert.ErrorIs(t, c.Save(context.Background()), ErrRecordingActive)
	assert.Empty(t, rec.created)
}

func TestSpeechErrorLogPolicyKeepsRecording(t *testing.T) {
	c, _ := newTestComposer(t)
	require.NoError(t, c.StartRecording(speech.NewRelay(true)))
	p := c.Session().(speech.Pusher)
	require.NoError(t, p.Fail(errors.New("no-speech")))
	assert.Equal(t, Recording, c.Snapshot().Mode)
	assert.NotNil(t, c.Session())
	assert.Empty(t, c.Pending())
}

func TestSpeechErrorStopPolicy(t *testing.T) {
	c, _ := newTestComposer(t, WithSpeechErrorPolicy(SpeechErrorStop))
	require.NoError(t, c.StartRecording(speech.NewRelay(true)))
	pushResults(t, c, [][]string{{"partial"}})
	p := c.Session().(speech.Pusher)
	require.NoError(t, p.Fail(errors.New("network")))

	snap := c.Snapshot()
	assert.Equal(t, Editing, snap.Mode)
	assert.Equal(t, "partial", snap.Content)
	assert.Nil(t, c.Session())
	assert.Equal(t, []toast.Toast{{Level: toast.LevelWarning, Message: MsgSpeechStopped}}, c.Pending())
}

func TestFakeRecognizerFillsDraft(t *testing.T) {
	c, _ := newTestComposer(t)
	f := speech.NewFake(
		speech.FromStrings([][]string{{"Hello "}}),
		speech.FromStrings([][]string{{"Hello world"}}),
	)
	f.Delay = time.Millisecond
	require.NoError(t, c.StartRecording(f))

	require.Eventually(t, func() bool {
		return c.Snapshot().Content == "Hello world"
	}, 2*time.Second, 5*time.Millisecond)

	c.StopRecording()
	assert.Equal(t, "Hello world", c.Snapshot().Content)
}

func TestCloseStopsSession(t *testing.T) {
	c, _ := newTestComposer(t)
	require.NoError(t, c.StartRecording(speech.NewRelay(true)))
	p := c.Session().(speech.Pusher)
	c.Close()
	c.Close()
	assert.Nil(t, c.Session())
	assert.ErrorIs(t, p.Push(nil), speech.ErrSessionStopped)
	assert.ErrorIs(t, c.StartRecording(speech.NewRelay(true)), context.Canceled)
}

func TestComposersAreIndependent(t *testing.T) {
	a, _ := newTestComposer(t)
	b, _ := newTestComposer(t)
	require.NoError(t, a.StartRecording(speech.NewRelay(true)))
	require.NoError(t, b.StartRecording(speech.NewRelay(true)))

	pushResults(t, a, [][]string{{"alpha"}})
	pushResults(t, b, [][]string{{"beta"}})
	a.StopRecording()

	assert.Equal(t, "alpha", a.Snapshot().Content)
	assert.Equal(t, "beta", b.Snapshot().Content)
	assert.Equal(t, Recording, b.Snapshot().Mode)
}

func TestParseSpeechErrorPolicy(t *testing.T) {
	p, err := ParseSpeechErrorPolicy("stop")
	require.NoError(t, err)
	assert.Equal(t, SpeechErrorStop, p)

	p, err = ParseSpeechErrorPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SpeechErrorLog, p)

	_, err = ParseSpeechErrorPolicy("explode")
	assert.Error(t, err)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "onboarding", Onboarding.String())
	assert.Equal(t, "editing", Editing.String())
	assert.Equal(t, "recording", Recording.String())
}
