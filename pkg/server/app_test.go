package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ events []string }

type fakeService struct {
	name     string
	rec      *recorder
	startErr error
	stopErr  error
}

func (f *fakeService) Start() error {
	f.rec.events = append(f.rec.events, "start "+f.name)
	return f.startErr
}

func (f *fakeService) Stop(context.Context) error {
	f.rec.events = append(f.rec.events, "stop "+f.name)
	return f.stopErr
}

func TestAppLifecycleOrder(t *testing.T) {
	rec := &recorder{}
	app := New(nil, 0)
	app.AddService("http", &fakeService{name: "http", rec: rec})
	app.AddService("queue", &fakeService{name: "queue", rec: rec})
	app.AddService("none", nil)
	app.AddCloser("redis", func() error { rec.events = append(rec.events, "close redis"); return nil })
	app.AddCloser("clickhouse", func() error { rec.events = append(rec.events, "close clickhouse"); return nil })

	require.NoError(t, app.Start())
	require.NoError(t, app.Shutdown(context.Background()))

	assert.Equal(t, []string{
		"start http", "start queue",
		"stop queue", "stop http",
		"close clickhouse", "close redis",
	}, rec.events)
}

func TestAppStartFailureRollsBack(t *testing.T) {
	rec := &recorder{}
	app := New(nil, 0)
	app.AddService("http", &fakeService{name: "http", rec: rec})
	app.AddService("consumer", &fakeService{name: "consumer", rec: rec, startErr: errors.New("no handlers")})
	app.AddService("scheduler", &fakeService{name: "scheduler", rec: rec})

	err := app.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start consumer")
	assert.Equal(t, []string{"start http", "start consumer", "stop http"}, rec.events)
}

func TestAppShutdownJoinsErrors(t *testing.T) {
	rec := &recorder{}
	app := New(nil, 0)
	app.AddService("a", &fakeService{name: "a", rec: rec, stopErr: errors.New("stuck")})
	app.AddService("b", &fakeService{name: "b", rec: rec})
	app.AddCloser("db", func() error { return errors.New("already closed") })
	require.NoError(t, app.Start())

	err := app.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop a")
	assert.Contains(t, err.Error(), "close db")
	assert.Equal(t, "stop b", rec.events[2])
}
