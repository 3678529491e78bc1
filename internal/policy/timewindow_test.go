package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajapam/broker/internal/domain/model"
	apperrors "github.com/rajapam/broker/internal/errors"
)

func newTestEvaluator(now time.Time) *TimeWindowEvaluator {
	e := NewTimeWindowEvaluator()
	e.now = func() time.Time { return now }
	return e
}

func TestDeadlineUnboundedWithoutWindows(t *testing.T) {
	e := newTestEvaluator(time.Now())

	deadline, err := e.Deadline(model.AccessRuleMeta{})
	require.NoError(t, err)
	assert.Nil(t, deadline)
}

func TestDeadlineInsideWindow(t *testing.T) {
	// Saturday 2024-06-01 10:30 UTC.
	now := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	e := newTestEvaluator(now)

	deadline, err := e.Deadline(model.AccessRuleMeta{
		TimeWindows: []model.TimeWindow{
			{Days: []string{"sat"}, Start: "09:00", End: "17:00"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, deadline)

	want := time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, *deadline)
}

func TestDeadlineOutsideWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	e := newTestEvaluator(now)

	_, err := e.Deadline(model.AccessRuleMeta{
		TimeWindows: []model.TimeWindow{
			{Days: []string{"sat"}, Start: "09:00", End: "17:00"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodePolicyDenied, apperrors.GetCode(err))
}

func TestDeadlineWrongDay(t *testing.T) {
	// Saturday, but the window only allows weekdays.
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	e := newTestEvaluator(now)

	_, err := e.Deadline(model.AccessRuleMeta{
		TimeWindows: []model.TimeWindow{
			{Days: []string{"mon", "tue", "wed", "thu", "fri"}, Start: "09:00", End: "17:00"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodePolicyDenied, apperrors.GetCode(err))
}

func TestDeadlineEmptyDaysMatchesEveryDay(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	e := newTestEvaluator(now)

	deadline, err := e.Deadline(model.AccessRuleMeta{
		TimeWindows: []model.TimeWindow{
			{Start: "09:00", End: "17:00"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, deadline)
}

func TestDeadlineFirstMatchingWindowWins(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	e := newTestEvaluator(now)

	deadline, err := e.Deadline(model.AccessRuleMeta{
		TimeWindows: []model.TimeWindow{
			{Days: []string{"sun"}, Start: "09:00", End: "12:00"},
			{Days: []string{"sat"}, Start: "09:00", End: "11:00"},
			{Days: []string{"sat"}, Start: "09:00", End: "23:00"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, deadline)

	want := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, *deadline)
}

func TestDeadlineTimezone(t *testing.T) {
	// 14:00 UTC is 10:00 in New York during DST.
	now := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	e := newTestEvaluator(now)

	deadline, err := e.Deadline(model.AccessRuleMeta{
		TimeWindows: []model.TimeWindow{
			{Days: []string{"sat"}, Start: "09:00", End: "17:00", TZ: "America/New_York"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, deadline)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	want := time.Date(2024, 6, 1, 17, 0, 0, 0, loc).UnixMilli()
	assert.Equal(t, want, *deadline)
}

func TestDeadlineBoundaries(t *testing.T) {
	e := func(now time.Time) *TimeWindowEvaluator { return newTestEvaluator(now) }
	window := model.TimeWindow{Days: []string{"sat"}, Start: "09:00", End: "17:00"}

	// Exactly at start: inside.
	_, err := e(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)).Deadline(model.AccessRuleMeta{
		TimeWindows: []model.TimeWindow{window},
	})
	assert.NoError(t, err)

	// Exactly at end: outside.
	_, err = e(time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC)).Deadline(model.AccessRuleMeta{
		TimeWindows: []model.TimeWindow{window},
	})
	assert.Error(t, err)
}

func TestDeadlineMalformedWindows(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	tcs := []struct {
		name   string
		window model.TimeWindow
	}{
		{name: "unknown day", window: model.TimeWindow{Days: []string{"caturday"}, Start: "09:00", End: "17:00"}},
		{name: "bad start", window: model.TimeWindow{Days: []string{"sat"}, Start: "9am", End: "17:00"}},
		{name: "bad end", window: model.TimeWindow{Days: []string{"sat"}, Start: "09:00", End: "25:99"}},
		{name: "bad timezone", window: model.TimeWindow{Days: []string{"sat"}, Start: "09:00", End: "17:00", TZ: "Mars/Olympus"}},
		{name: "end before start", window: model.TimeWindow{Days: []string{"sat"}, Start: "17:00", End: "09:00"}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestEvaluator(now).Deadline(model.AccessRuleMeta{
				TimeWindows: []model.TimeWindow{tc.window},
			})
			require.Error(t, err)
			// Malformed metadata is an infrastructure fault, not a denial.
			assert.NotEqual(t, apperrors.ErrCodePolicyDenied, apperrors.GetCode(err))
		})
	}
}
