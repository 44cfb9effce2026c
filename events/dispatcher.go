package events

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/cybermouflons/CTFNote/repositories"
)

// Mutation — полезная нагрузка одного события. Before-обработчики могут
// заменить Input; after-обработчики получают его вместе с транзакцией
// мутации (Tx), чтобы читать её собственные записи.
type Mutation struct {
	Event Event
	Phase Phase
	Input interface{}
	// Tx — транзакция исходной мутации; nil вне транзакции.
	Tx repositories.SQLExecutor
	// ActorID — профиль, инициировавший мутацию (0, если неизвестен).
	ActorID int
}

// Handler обрабатывает одну мутацию. Ошибка в before-фазе накладывает
// вето; в after-фазе — логируется и отбрасывается.
type Handler func(ctx context.Context, m *Mutation) error

type handlerKey struct {
	event Event
	phase Phase
}

type registration struct {
	priority int
	seq      int
	handler  Handler
}

// Dispatcher хранит таблицу обработчиков, ключованную (событие, фаза).
// Обработчики одного ключа выполняются последовательно по возрастанию
// приоритета, ничьи — в порядке регистрации.
type Dispatcher struct {
	logger *slog.Logger

	mu    sync.RWMutex
	seq   int
	table map[handlerKey][]registration
	wg    sync.WaitGroup
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		table:  make(map[handlerKey][]registration),
	}
}

// Subscribe регистрирует обработчик. Меньший приоритет выполняется раньше.
func (d *Dispatcher) Subscribe(event Event, phase Phase, priority int, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	key := handlerKey{event: event, phase: phase}
	regs := append(d.table[key], registration{priority: priority, seq: d.seq, handler: handler})
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority < regs[j].priority
		}
		return regs[i].seq < regs[j].seq
	})
	d.table[key] = regs
}

func (d *Dispatcher) handlers(event Event, phase Phase) []registration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.table[handlerKey{event: event, phase: phase}]
}

// DispatchBefore синхронно вызывает before-обработчики. Первая ошибка
// прерывает цепочку и накладывает вето на мутацию.
func (d *Dispatcher) DispatchBefore(ctx context.Context, m *Mutation) error {
	m.Phase = Before
	for _, reg := range d.handlers(m.Event, Before) {
		if err := reg.handler(ctx, m); err != nil {
			return fmt.Errorf("before handler for %s vetoed: %w", m.Event, err)
		}
	}
	return nil
}

// DispatchAfter запускает after-обработчики в отдельной горутине на
// отвязанном от запроса контексте: ответ вызывающему не ждёт
// синхронизации, а её сбои никогда не всплывают наружу.
func (d *Dispatcher) DispatchAfter(ctx context.Context, m *Mutation) {
	m.Phase = After
	regs := d.handlers(m.Event, After)
	if len(regs) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, reg := range regs {
			d.runIsolated(detached, m, reg)
		}
	}()
}

func (d *Dispatcher) runIsolated(ctx context.Context, m *Mutation, reg registration) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("after handler panicked",
				slog.String("event", m.Event.String()),
				slog.Any("panic", r))
		}
	}()
	if err := reg.handler(ctx, m); err != nil {
		d.logger.Error("after handler failed",
			slog.String("event", m.Event.String()),
			slog.Any("error", err))
	}
}

// Wait блокируется до завершения всех запущенных after-горутин.
// Используется при graceful shutdown и в тестах.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
