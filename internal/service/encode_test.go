package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rajapam/broker/config"
	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/domain/model"
	"github.com/rajapam/broker/internal/mocks"
)

type encodeTestEnv struct {
	queue       *mocks.MockEncodeQueue
	encoder     *mocks.MockEncoderAPI
	transparent *mocks.MockTransparentAPI
	svc         *EncodeService
}

func newEncodeTestEnv(t *testing.T) *encodeTestEnv {
	t.Helper()
	ctrl := gomock.NewController(t)

	env := &encodeTestEnv{
		queue:       mocks.NewMockEncodeQueue(ctrl),
		encoder:     mocks.NewMockEncoderAPI(ctrl),
		transparent: mocks.NewMockTransparentAPI(ctrl),
	}

	var err error
	env.svc, err = NewEncodeService(EncodeServiceOptions{
		Queue:       env.queue,
		Encoder:     env.encoder,
		Transparent: env.transparent,
		Config: config.EncoderConfig{
			PollInterval: time.Minute,
			Delay:        2 * time.Minute,
			BatchSize:    10,
		},
	})
	require.NoError(t, err)
	env.svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return env
}

func TestScheduleSessionClose(t *testing.T) {
	env := newEncodeTestEnv(t)
	due := env.svc.now().Add(2 * time.Minute)
	env.queue.EXPECT().
		Schedule(gomock.Any(), core.EncodeTask{SessionID: "s-1", Kind: core.EncodeKeystrokes}, due).
		Return(nil)

	session := &model.Session{ID: "s-1", Status: model.SessionStatusClosed}
	assert.NoError(t, env.svc.ScheduleSessionClose(context.Background(), session))
}

func TestScheduleSessionCloseTransparent(t *testing.T) {
	env := newEncodeTestEnv(t)
	due := env.svc.now().Add(2 * time.Minute)
	env.queue.EXPECT().
		Schedule(gomock.Any(), core.EncodeTask{SessionID: "s-1", Kind: core.EncodeKeystrokes}, due).
		Return(nil)
	env.transparent.EXPECT().RequestVideoRendering(gomock.Any(), "s-1").Return(nil)
	env.queue.EXPECT().
		Schedule(gomock.Any(), core.EncodeTask{SessionID: "s-1", Kind: core.EncodeOCR}, due).
		Return(nil)

	session := &model.Session{
		ID:     "s-1",
		Status: model.SessionStatusClosed,
		Meta:   model.SessionMeta{TransparentMode: true, TransparentFile: "s-1.rdp"},
	}
	assert.NoError(t, env.svc.ScheduleSessionClose(context.Background(), session))
}

func TestScheduleSessionCloseRenderingFailureStillSchedulesOCR(t *testing.T) {
	env := newEncodeTestEnv(t)
	env.queue.EXPECT().
		Schedule(gomock.Any(), core.EncodeTask{SessionID: "s-1", Kind: core.EncodeKeystrokes}, gomock.Any()).
		Return(nil)
	env.transparent.EXPECT().
		RequestVideoRendering(gomock.Any(), "s-1").
		Return(errors.New("renderer down"))
	env.queue.EXPECT().
		Schedule(gomock.Any(), core.EncodeTask{SessionID: "s-1", Kind: core.EncodeOCR}, gomock.Any()).
		Return(nil)

	session := &model.Session{
		ID:   "s-1",
		Meta: model.SessionMeta{TransparentMode: true},
	}
	assert.NoError(t, env.svc.ScheduleSessionClose(context.Background(), session))
}

func TestScheduleSessionCloseQueueError(t *testing.T) {
	env := newEncodeTestEnv(t)
	env.queue.EXPECT().
		Schedule(gomock.Any(), core.EncodeTask{SessionID: "s-1", Kind: core.EncodeKeystrokes}, gomock.Any()).
		Return(errors.New("redis down"))

	session := &model.Session{
		ID:   "s-1",
		Meta: model.SessionMeta{TransparentMode: true},
	}
	assert.Error(t, env.svc.ScheduleSessionClose(context.Background(), session))
}

func TestScheduleOCR(t *testing.T) {
	env := newEncodeTestEnv(t)
	due := env.svc.now().Add(2 * time.Minute)
	env.queue.EXPECT().
		Schedule(gomock.Any(), core.EncodeTask{SessionID: "s-1", Kind: core.EncodeOCR}, due).
		Return(nil)

	assert.NoError(t, env.svc.ScheduleOCR(context.Background(), "s-1"))
}

func TestProcessDueDispatchesClaimedTasks(t *testing.T) {
	env := newEncodeTestEnv(t)
	task := core.EncodeTask{SessionID: "s-1", Kind: core.EncodeKeystrokes}

	env.queue.EXPECT().PopDue(gomock.Any(), env.svc.now(), 10).Return([]core.EncodeTask{task}, nil)
	env.queue.EXPECT().TryClaim(gomock.Any(), task).Return(true, nil)
	env.encoder.EXPECT().Encode(gomock.Any(), task).Return(nil)

	assert.NoError(t, env.svc.ProcessDue(context.Background()))
}

func TestProcessDueSkipsAlreadyClaimed(t *testing.T) {
	env := newEncodeTestEnv(t)
	task := core.EncodeTask{SessionID: "s-1", Kind: core.EncodeKeystrokes}

	env.queue.EXPECT().PopDue(gomock.Any(), gomock.Any(), 10).Return([]core.EncodeTask{task}, nil)
	env.queue.EXPECT().TryClaim(gomock.Any(), task).Return(false, nil)

	assert.NoError(t, env.svc.ProcessDue(context.Background()))
}

func TestProcessDueContinuesAfterDispatchFailure(t *testing.T) {
	env := newEncodeTestEnv(t)
	failing := core.EncodeTask{SessionID: "s-1", Kind: core.EncodeKeystrokes}
	healthy := core.EncodeTask{SessionID: "s-2", Kind: core.EncodeOCR}

	env.queue.EXPECT().PopDue(gomock.Any(), gomock.Any(), 10).Return([]core.EncodeTask{failing, healthy}, nil)
	env.queue.EXPECT().TryClaim(gomock.Any(), failing).Return(true, nil)
	env.encoder.EXPECT().Encode(gomock.Any(), failing).Return(errors.New("encoder down"))
	env.queue.EXPECT().TryClaim(gomock.Any(), healthy).Return(true, nil)
	env.encoder.EXPECT().Encode(gomock.Any(), healthy).Return(nil)

	assert.NoError(t, env.svc.ProcessDue(context.Background()))
}

func TestProcessDueContinuesAfterClaimError(t *testing.T) {
	env := newEncodeTestEnv(t)
	broken := core.EncodeTask{SessionID: "s-1", Kind: core.EncodeKeystrokes}
	healthy := core.EncodeTask{SessionID: "s-2", Kind: core.EncodeKeystrokes}

	env.queue.EXPECT().PopDue(gomock.Any(), gomock.Any(), 10).Return([]core.EncodeTask{broken, healthy}, nil)
	env.queue.EXPECT().TryClaim(gomock.Any(), broken).Return(false, errors.New("redis down"))
	env.queue.EXPECT().TryClaim(gomock.Any(), healthy).Return(true, nil)
	env.encoder.EXPECT().Encode(gomock.Any(), healthy).Return(nil)

	assert.NoError(t, env.svc.ProcessDue(context.Background()))
}

func TestProcessDuePopError(t *testing.T) {
	env := newEncodeTestEnv(t)
	env.queue.EXPECT().PopDue(gomock.Any(), gomock.Any(), 10).Return(nil, errors.New("redis down"))

	assert.Error(t, env.svc.ProcessDue(context.Background()))
}

func TestEncodeRunStopsOnCancel(t *testing.T) {
	env := newEncodeTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, env.svc.Run(ctx))
}
