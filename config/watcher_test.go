package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Constructor ---

func TestNewFileWatcher_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "test.yaml")
	require.NoError(t, os.WriteFile(f, []byte("key: val"), 0644))

	w, err := NewFileWatcher([]string{f})
	require.NoError(t, err)
	require.NotNil(t, w)

	assert.Equal(t, []string{f}, w.Paths())
	assert.False(t, w.IsRunning())
	assert.Equal(t, 100*time.Millisecond, w.debounceDelay)
	assert.Equal(t, time.Second, w.pollInterval)
}

func TestNewFileWatcher_WithOptions(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "test.yaml")
	require.NoError(t, os.WriteFile(f, []byte("key: val"), 0644))

	w, err := NewFileWatcher([]string{f},
		WithDebounceDelay(500*time.Millisecond),
		WithPollInterval(10*time.Millisecond),
		WithWatcherLogger(zap.NewNop()),
	)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, w.debounceDelay)
	assert.Equal(t, 10*time.Millisecond, w.pollInterval)
}

func TestNewFileWatcher_NonExistentPathWarns(t *testing.T) {
	// 文件不存在只告警不报错，等待其被创建
	w, err := NewFileWatcher([]string{"/nonexistent/path/config.yaml"})
	require.NoError(t, err)
	require.NotNil(t, w)
}

// --- Start / Stop / IsRunning lifecycle ---

func TestFileWatcher_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(f, []byte("key: val"), 0644))

	w, err := NewFileWatcher([]string{f}, WithDebounceDelay(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	assert.False(t, w.IsRunning())

	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())

	// Double start should error
	err = w.Start(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())

	// Stop when already stopped is a no-op
	require.NoError(t, w.Stop())
}

// --- Change detection ---

// eventSink 收集回调事件供断言
type eventSink struct {
	mu     sync.Mutex
	events []FileEvent
}

func (s *eventSink) record(evt FileEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *eventSink) snapshot() []FileEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *eventSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestFileWatcher_DetectsWrite(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(f, []byte("v1"), 0644))

	w, err := NewFileWatcher([]string{f},
		WithPollInterval(10*time.Millisecond),
		WithDebounceDelay(20*time.Millisecond),
	)
	require.NoError(t, err)

	sink := &eventSink{}
	w.OnChange(sink.record)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	// 写入不同长度的内容，mtime 精度不够时由大小变化兜底
	require.NoError(t, os.WriteFile(f, []byte("version: two"), 0644))

	require.Eventually(t, func() bool { return sink.count() >= 1 },
		2*time.Second, 10*time.Millisecond, "should detect the write")

	events := sink.snapshot()
	assert.Equal(t, f, events[0].Path)
	assert.Equal(t, FileOpWrite, events[0].Op)
}

func TestFileWatcher_DetectsCreateAndRemove(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "late.yaml")

	w, err := NewFileWatcher([]string{f},
		WithPollInterval(10*time.Millisecond),
		WithDebounceDelay(20*time.Millisecond),
	)
	require.NoError(t, err)

	sink := &eventSink{}
	w.OnChange(sink.record)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	// 文件在监听开始后才被创建
	require.NoError(t, os.WriteFile(f, []byte("created: true"), 0644))

	require.Eventually(t, func() bool { return sink.count() >= 1 },
		2*time.Second, 10*time.Millisecond, "should detect creation")
	assert.Equal(t, FileOpCreate, sink.snapshot()[0].Op)

	// 随后又被删除
	require.NoError(t, os.Remove(f))

	require.Eventually(t, func() bool { return sink.count() >= 2 },
		2*time.Second, 10*time.Millisecond, "should detect removal")
	assert.Equal(t, FileOpRemove, sink.snapshot()[1].Op)
}

// --- Debounce behavior ---

// TestFileWatcher_CoalescesSamePath 同一路径的连续事件在去抖窗口内
// 只触发一次回调。
func TestFileWatcher_CoalescesSamePath(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "coalesce.yaml")
	require.NoError(t, os.WriteFile(f, []byte("v0"), 0644))

	// 长轮询间隔，事件由测试直接注入
	w, err := NewFileWatcher([]string{f},
		WithPollInterval(time.Hour),
		WithDebounceDelay(50*time.Millisecond),
	)
	require.NoError(t, err)

	sink := &eventSink{}
	w.OnChange(sink.record)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	for i := 0; i < 3; i++ {
		w.eventChan <- FileEvent{Path: f, Op: FileOpWrite, Timestamp: time.Now()}
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return sink.count() >= 1 },
		2*time.Second, 10*time.Millisecond)

	// 去抖窗口过去后不应再有额外回调
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, sink.count(),
		"events for the same path should be coalesced into a single dispatch")
}

// TestFileWatcher_RapidEventsNoRace 大量密集事件不应触发并发 map 访问。
// pending 表只属于 dispatchLoop goroutine，-race 下应保持干净。
func TestFileWatcher_RapidEventsNoRace(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "race.yaml")
	require.NoError(t, os.WriteFile(f, []byte("v0"), 0644))

	w, err := NewFileWatcher([]string{f},
		WithPollInterval(time.Hour),
		WithDebounceDelay(10*time.Millisecond),
	)
	require.NoError(t, err)

	sink := &eventSink{}
	w.OnChange(sink.record)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	for i := 0; i < 50; i++ {
		w.eventChan <- FileEvent{Path: f, Op: FileOpWrite, Timestamp: time.Now()}
	}

	require.Eventually(t, func() bool { return sink.count() >= 1 },
		2*time.Second, 10*time.Millisecond,
		"expected at least 1 dispatched event after rapid writes")
}

// --- Context cancellation ---

func TestFileWatcher_ContextCancel(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(f, []byte("v1"), 0644))

	w, err := NewFileWatcher([]string{f}, WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())

	// 取消 context 后 goroutine 退出，running 标志要等 Stop 才复位
	cancel()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}

// --- FileOp String ---

func TestFileOp_String(t *testing.T) {
	tests := []struct {
		op   FileOp
		want string
	}{
		{FileOpCreate, "CREATE"},
		{FileOpWrite, "WRITE"},
		{FileOpRemove, "REMOVE"},
		{FileOp(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
}
