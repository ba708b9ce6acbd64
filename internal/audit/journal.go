package audit

/*
Journal — асинхронный журнал событий GMUD (создание, пропуск, решение, смена статуса).

- Record не блокирует: событие кладется в буферизованный канал, при переполнении
  сбрасывается с записью в лог. Журнал не должен тормозить ожидание решения.
- Воркер копит пачку и пишет ее в Storage по таймеру или при заполнении.
- Stop закрывает вход, воркер вычитывает остаток и делает финальный flush.
*/

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const batchSize = 100

// Storage определяет, куда физически сохраняются события.
type Storage interface {
	WriteBatch(ctx context.Context, events []Event) error
}

type Recorder interface {
	Record(event Event)
}

// Nop используется, когда базы нет.
type Nop struct{}

func (Nop) Record(Event) {}

type Journal struct {
	ch       chan Event
	repo     Storage
	interval time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewJournal(repo Storage, bufferSize int, flushInterval time.Duration, logger *zap.Logger) *Journal {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Journal{
		ch:       make(chan Event, bufferSize),
		repo:     repo,
		interval: flushInterval,
		logger:   logger.Named("journal"),
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop запирает вход и ждет, пока воркер всё допишет.
func (j *Journal) Stop() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	close(j.ch)
	j.mu.Unlock()

	j.logger.Info("stopping journal: flushing buffer")
	j.wg.Wait()
	j.logger.Info("journal stopped")
}

func (j *Journal) Record(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.logger.Warn("journal event dropped: journal is stopping",
			zap.String("id", event.ID), zap.String("kind", string(event.Kind)))
		return
	}

	// Load shedding: при переполнении теряем событие, а не ждем
	select {
	case j.ch <- event:
	default:
		j.logger.Error("journal_buffer_overflow",
			zap.String("kind", string(event.Kind)),
			zap.String("task_id", event.TaskID),
			zap.String("trace_id", event.TraceID))
	}
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]Event, 0, batchSize)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: контекст запроса к этому моменту может быть уже закрыт
		if err := j.repo.WriteBatch(context.Background(), batch); err != nil {
			j.logger.Error("journal flush failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		batch = make([]Event, 0, batchSize)
	}

	for {
		select {
		case event, ok := <-j.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
