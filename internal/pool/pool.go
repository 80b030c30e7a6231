// Package pool は境界付きタスクキューとワーカープールを提供する。
// AI分析用と通知用の2つのプールがプロセス起動時に構築され、
// 各サービスへ参照渡しされる。
package pool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueFull はタスクキューが満杯で投入が拒否されたことを表す。
var ErrQueueFull = errors.New("task queue is full")

// ErrPoolClosed はStop後のプールへの投入が拒否されたことを表す。
var ErrPoolClosed = errors.New("pool is closed")

// Task はプール上で実行される処理の単位。
type Task func(ctx context.Context)

// Pool は固定数のワーカーと境界付きキューを持つタスクプール。
// Submitはキュー満杯時に即座に拒否する（呼び出し元をブロックしない）。
type Pool struct {
	name    string
	workers int
	queue   chan Task
	logger  *slog.Logger
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// New はPoolを生成する。workersまたはqueueSizeが0以下の場合はデフォルト値
// （ワーカー5、キュー100）を使用する。Startを呼ぶまでタスクは実行されない。
func New(name string, workers, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 5
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Pool{
		name:    name,
		workers: workers,
		queue:   make(chan Task, queueSize),
		logger:  logger,
	}
}

// Start はワーカーゴルーチンを起動する。
// コンテキストがキャンセルされるとワーカーは停止する。
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("ワーカープールを開始しました",
		slog.String("pool", p.name),
		slog.Int("workers", p.workers),
		slog.Int("queue_size", cap(p.queue)),
	)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// worker はキューからタスクを取り出して実行する。
func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			p.run(ctx, task)
		}
	}
}

// run はタスクを実行する。タスク内のpanicはプール全体を巻き込まないよう回復する。
func (p *Pool) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("タスク実行中にpanicが発生しました",
				slog.String("pool", p.name),
				slog.Any("panic", r),
			)
		}
	}()

	task(ctx)
}

// Submit はタスクをキューへ投入する。キューが満杯の場合はErrQueueFullを、
// Stop後の場合はErrPoolClosedを返す。投入は決してブロックしない。
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolClosed
	}

	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop は新規タスクの受付を閉じる。キューに滞留しているタスクは
// ワーカーが処理し切る（Startに渡したコンテキストが生きている間）。冪等。
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true
	close(p.queue)
}

// Name はプール名を返す。ログとメトリクスのラベルに使用する。
func (p *Pool) Name() string {
	return p.name
}

// QueueDepth は現在キューに滞留しているタスク数を返す。メトリクス用。
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}

// Wait は全ワーカーの停止を待つ。Stopの呼び出し、またはStartに渡した
// コンテキストのキャンセル後に呼び出すこと。
func (p *Pool) Wait() {
	p.wg.Wait()
}
