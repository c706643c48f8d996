package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

// syncBuffer は複数 goroutine からの書き込みを直列化する（フォレストは並列に学習する）
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Recorder はテスト用の LoggerProvider。zerolog の JSON 行をメモリに保持する。
//
//	rec := log.Install(t, log.LevelDebug)
//	p := automl.NewPipeline()
//	p.Run(ctx, req)
//	entry, ok := rec.Find("Pipeline failed")
type Recorder struct {
	*ZerologProvider
	out *syncBuffer
}

// Entry は 1 行分のログ
type Entry map[string]interface{}

// NewRecorder は level 以上のログを記録する Recorder を作る
func NewRecorder(level Level) *Recorder {
	out := &syncBuffer{}
	return &Recorder{ZerologProvider: NewZerologProviderTo(out, level), out: out}
}

// Install は Recorder をプロセス全体のプロバイダに設定し、テスト終了時に元へ戻す。
// ロガーは生成時にプロバイダから取得されるため、対象を作る前に呼ぶこと。
func Install(t testing.TB, level Level) *Recorder {
	t.Helper()
	rec := NewRecorder(level)
	prev := Provider()
	SetProvider(rec)
	t.Cleanup(func() { SetProvider(prev) })
	return rec
}

// String は記録された生の出力を返す
func (r *Recorder) String() string {
	return r.out.String()
}

// Entries は記録された行をデコードして返す。JSON でない行は無視する
func (r *Recorder) Entries() []Entry {
	var entries []Entry
	for _, line := range strings.Split(r.out.String(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// Find は message が一致する最初の行を返す
func (r *Recorder) Find(message string) (Entry, bool) {
	for _, e := range r.Entries() {
		if e["message"] == message {
			return e, true
		}
	}
	return nil, false
}

// Count は message が一致する行数を返す
func (r *Recorder) Count(message string) int {
	n := 0
	for _, e := range r.Entries() {
		if e["message"] == message {
			n++
		}
	}
	return n
}

// Str はフィールドを文字列として返す
func (e Entry) Str(key string) string {
	s, _ := e[key].(string)
	return s
}
