package onboarding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository())
}

func TestGetRecord_LazyCreation(t *testing.T) {
	svc := newTestService()

	record, err := svc.GetRecord("creator-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, StatusCreated, record.Status)

	// First access writes a synthetic creation transition.
	require.Len(t, record.Transitions, 1)
	assert.Equal(t, "", record.Transitions[0].FromStatus)
	assert.Equal(t, StatusCreated, record.Transitions[0].ToStatus)
	assert.Equal(t, ActorSystem, record.Transitions[0].Actor)
}

func TestTransition_FullProgression(t *testing.T) {
	svc := newTestService()

	steps := []string{
		StatusEmailVerified,
		StatusDepositPaid,
		StatusVeriffStarted,
		StatusVeriffPassed,
		StatusVaultArchived,
		StatusActive,
	}

	for _, to := range steps {
		record, err := svc.Transition("creator-1", to, ActorWebhook, "test")
		require.NoError(t, err, "transition to %s", to)
		assert.Equal(t, to, record.Status)
	}

	record, err := svc.GetRecord("creator-1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, record.Status)
	// Synthetic creation plus the six progression steps.
	assert.Len(t, record.Transitions, 7)
}

func TestTransition_RejectsSkips(t *testing.T) {
	svc := newTestService()

	_, err := svc.Transition("creator-1", StatusVeriffPassed, ActorUser, "test")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusCreated, invalid.From)
	assert.Equal(t, StatusVeriffPassed, invalid.To)
	assert.Equal(t, "invalid onboarding transition: created -> veriff_passed", invalid.Error())

	// The record and its trail are untouched by the failed attempt.
	record, err := svc.GetRecord("creator-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, record.Status)
	assert.Len(t, record.Transitions, 1)
}

func TestTransition_RejectsBackwardsAndTerminal(t *testing.T) {
	svc := newTestService()

	_, err := svc.Transition("creator-1", StatusEmailVerified, ActorUser, "test")
	require.NoError(t, err)

	_, err = svc.Transition("creator-1", StatusCreated, ActorUser, "test")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	for _, to := range []string{StatusDepositPaid, StatusVeriffStarted, StatusVeriffPassed, StatusVaultArchived, StatusActive} {
		_, err = svc.Transition("creator-1", to, ActorWebhook, "test")
		require.NoError(t, err)
	}

	// Active is terminal.
	_, err = svc.Transition("creator-1", StatusCreated, ActorUser, "test")
	require.ErrorAs(t, err, &invalid)
	_, err = svc.Transition("creator-1", StatusActive, ActorUser, "test")
	require.ErrorAs(t, err, &invalid)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{from: StatusCreated, to: StatusEmailVerified, want: true},
		{from: StatusCreated, to: StatusDepositPaid, want: false},
		{from: StatusVaultArchived, to: StatusActive, want: true},
		{from: StatusActive, to: StatusCreated, want: false},
		{from: "garbage", to: StatusEmailVerified, want: true}, // unknown parses as created
		{from: "garbage", to: StatusActive, want: false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if got := ParseStatus(StatusVeriffPassed); got != StatusVeriffPassed {
		t.Fatalf("expected known status to round-trip, got %q", got)
	}
	if got := ParseStatus("nonsense"); got != StatusCreated {
		t.Fatalf("expected unknown status to default to created, got %q", got)
	}
}

func TestAssertActive(t *testing.T) {
	svc := newTestService()

	err := svc.AssertActive("creator-1")
	var notActive *NotActiveError
	require.True(t, errors.As(err, &notActive))
	assert.Equal(t, StatusCreated, notActive.Status)

	for _, to := range []string{StatusEmailVerified, StatusDepositPaid, StatusVeriffStarted, StatusVeriffPassed, StatusVaultArchived, StatusActive} {
		_, err := svc.Transition("creator-1", to, ActorWebhook, "test")
		require.NoError(t, err)
	}

	assert.NoError(t, svc.AssertActive("creator-1"))
}
