package process

import (
	"errors"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTable struct {
	procs []Info
	err   error
	calls int
}

func (f *fakeTable) Processes() ([]Info, error) {
	f.calls++
	return f.procs, f.err
}

type killRecorder struct {
	pids []int
	err  error
}

func (k *killRecorder) kill(pid int) error {
	k.pids = append(k.pids, pid)
	return k.err
}

func TestSaveIsIdempotentOverwrite(t *testing.T) {
	r := NewReaper("chrome", nil, WithTable(&fakeTable{}))

	r.Save("u1", 100)
	r.Save("u1", 200)
	r.Save("u2", 0) // ignored

	pid, ok := r.Find("u1")
	require.True(t, ok)
	assert.Equal(t, 200, pid)
	assert.Equal(t, 1, r.Len())
}

func TestFindUsesCacheBeforeScan(t *testing.T) {
	table := &fakeTable{}
	r := NewReaper("chrome", nil, WithTable(table))
	r.Save("u1", 42)

	pid, ok := r.Find("u1")
	assert.True(t, ok)
	assert.Equal(t, 42, pid)
	assert.Zero(t, table.calls)
}

func TestFindFallsBackToProcessScan(t *testing.T) {
	table := &fakeTable{procs: []Info{
		{PID: 10, CmdLine: "/usr/bin/node server.js u1"},
		{PID: 11, CmdLine: "/usr/bin/google-chrome --user-data-dir=/srv/sessions/u2"},
		{PID: 12, CmdLine: "/usr/bin/Google-Chrome --user-data-dir=/srv/sessions/u1"},
		{PID: 13, CmdLine: "/usr/bin/google-chrome --user-data-dir=/srv/sessions/u1 --type=renderer"},
	}}
	r := NewReaper("chrome", nil, WithTable(table))

	pid, ok := r.Find("u1")
	require.True(t, ok)
	assert.Equal(t, 12, pid, "first match wins and the marker is case-insensitive")

	_, ok = r.Find("u9")
	assert.False(t, ok)
}

func TestFindSkipsOwnProcess(t *testing.T) {
	table := &fakeTable{procs: []Info{
		{PID: os.Getpid(), CmdLine: "relay --marker chrome u1"},
	}}
	r := NewReaper("chrome", nil, WithTable(table))

	_, ok := r.Find("u1")
	assert.False(t, ok)
}

func TestFindScanError(t *testing.T) {
	r := NewReaper("chrome", nil, WithTable(&fakeTable{err: errors.New("no procfs")}))

	_, ok := r.Find("u1")
	assert.False(t, ok)
}

func TestKill(t *testing.T) {
	tests := []struct {
		name     string
		saved    int
		killErr  error
		want     bool
		wantKill []int
	}{
		{"unknown session", 0, nil, false, nil},
		{"killed", 77, nil, true, []int{77}},
		{"signal fails", 77, errors.New("no such process"), false, []int{77}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &killRecorder{err: tt.killErr}
			r := NewReaper("chrome", nil, WithTable(&fakeTable{}), WithKill(rec.kill))
			r.Save("u1", tt.saved)

			assert.Equal(t, tt.want, r.Kill("u1"))
			assert.Equal(t, tt.wantKill, rec.pids)

			// the record never survives a kill attempt
			assert.Zero(t, r.Len())
			assert.False(t, r.Kill("u1"))
		})
	}
}

func TestForget(t *testing.T) {
	rec := &killRecorder{}
	r := NewReaper("chrome", nil, WithTable(&fakeTable{}), WithKill(rec.kill))
	r.Save("u1", 5)

	r.Forget("u1")
	assert.False(t, r.Kill("u1"))
	assert.Empty(t, rec.pids)
}

func TestProcTableListsSelf(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("procfs is linux only")
	}

	procs, err := NewProcTable().Processes()
	require.NoError(t, err)

	found := false
	for _, p := range procs {
		if p.PID == os.Getpid() {
			found = true
			break
		}
	}
	assert.True(t, found)
}
