package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull 队列已满，任务被丢弃
var ErrQueueFull = errors.New("worker: queue full")

// ErrStopped 工作池已停止
var ErrStopped = errors.New("worker: pool stopped")

// Task 异步任务
type Task struct {
	Name  string
	Run   func(ctx context.Context) error
	Retry int // 已重试次数
}

// Pool 带重试队列的工作池
type Pool struct {
	TaskQueue  chan Task
	RetryQueue chan Task // 重试队列
	WorkerNum  int
	MaxRetry   int           // 最大重试次数
	RetryDelay time.Duration // 第 n 次重试前等待 n*RetryDelay
	// OnDeadLetter 任务彻底失败时回调
	OnDeadLetter func(task Task, err error)

	log     *zap.Logger
	ctx     context.Context // 任务执行上下文，Stop 等待超时后取消
	cancel  context.CancelFunc
	quit    chan struct{}
	wg      sync.WaitGroup
	workers sync.WaitGroup
	idle    chan struct{} // 所有 worker 退出后关闭
	mu      sync.RWMutex
	stopped bool
}

func NewPool(workerNum, bufferSize int, log *zap.Logger) *Pool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	retrySize := bufferSize / 2
	if retrySize == 0 {
		retrySize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		TaskQueue:  make(chan Task, bufferSize),
		RetryQueue: make(chan Task, retrySize),
		WorkerNum:  workerNum,
		MaxRetry:   3, // 最多重试3次
		RetryDelay: time.Second,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		quit:       make(chan struct{}),
		idle:       make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		p.workers.Add(1)
		go p.worker(i)
	}
	go func() {
		p.workers.Wait()
		close(p.idle)
	}()
	// 启动重试处理协程
	p.wg.Add(1)
	go p.retryWorker()
	p.log.Info("worker pool started", zap.Int("workers", p.WorkerNum))
}

// Stop 停止接收新任务，等待已入队任务及其重试执行完；ctx 到期后取消剩余任务
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.TaskQueue)
	close(p.quit)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	defer p.workers.Done()
	for task := range p.TaskQueue {
		err := task.Run(p.ctx)
		if err == nil {
			continue
		}
		log := p.log.With(zap.Int("worker", id), zap.String("task", task.Name), zap.Error(err))

		// 如果未达到最大重试次数，加入重试队列
		if task.Retry < p.MaxRetry {
			task.Retry++
			select {
			case p.RetryQueue <- task:
				log.Warn("task failed, queued for retry", zap.Int("attempt", task.Retry), zap.Int("max", p.MaxRetry))
			default:
				log.Error("retry queue full, task dropped")
				p.deadLetter(task, err)
			}
			continue
		}
		log.Error("task exceeded max retries, dropped")
		p.deadLetter(task, err)
	}
}

func (p *Pool) retryWorker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			p.finishRetries()
			return
		case task := <-p.RetryQueue:
			// 延迟重试，避免立即重试
			select {
			case <-time.After(time.Duration(task.Retry) * p.RetryDelay):
			case <-p.quit:
				p.runInline(task)
				p.finishRetries()
				return
			}
			err := p.enqueue(task)
			if errors.Is(err, ErrStopped) {
				p.runInline(task)
				continue
			}
			if err != nil {
				p.log.Error("retry re-queue failed", zap.String("task", task.Name), zap.Error(err))
				p.deadLetter(task, err)
			}
		}
	}
}

// finishRetries 停止后在本协程内执行剩余重试，直到 worker 全部退出且重试队列为空
func (p *Pool) finishRetries() {
	for {
		select {
		case task := <-p.RetryQueue:
			p.runInline(task)
		case <-p.idle:
			for {
				select {
				case task := <-p.RetryQueue:
					p.runInline(task)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) runInline(task Task) {
	for {
		select {
		case <-time.After(time.Duration(task.Retry) * p.RetryDelay):
		case <-p.ctx.Done():
			p.deadLetter(task, ErrStopped)
			return
		}
		err := task.Run(p.ctx)
		if err == nil {
			return
		}
		if task.Retry >= p.MaxRetry || p.ctx.Err() != nil {
			p.deadLetter(task, err)
			return
		}
		task.Retry++
	}
}

func (p *Pool) enqueue(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.TaskQueue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) deadLetter(task Task, err error) {
	p.log.Error("task failed permanently", zap.String("task", task.Name), zap.Int("retries", task.Retry), zap.Error(err))
	if p.OnDeadLetter != nil {
		p.OnDeadLetter(task, err)
	}
}

// AddTask 非阻塞入队
func (p *Pool) AddTask(task Task) error {
	if err := p.enqueue(task); err != nil {
		p.log.Warn("task rejected", zap.String("task", task.Name), zap.Error(err))
		return err
	}
	return nil
}
