package events

import (
	"context"
	"log/slog"
)

// MatchCompleted публикуется после коммита транзакции, завершившей матч.
type MatchCompleted struct {
	EventID int
	MatchID int
}

// Publisher — сторона публикации; сервисы зависят только от неё.
type Publisher interface {
	PublishMatchCompleted(event MatchCompleted)
}

// HandlerFunc обрабатывает событие завершения матча. Ошибка логируется
// диспетчером и никогда не доходит до публикующей операции.
type HandlerFunc func(ctx context.Context, event MatchCompleted) error

// Dispatcher — внутрипроцессная шина post-commit событий. Обработчики
// выполняются последовательно в горутине Run; сбой одного обработчика не
// мешает остальным и не откатывает завершение матча.
type Dispatcher struct {
	ch       chan MatchCompleted
	handlers []HandlerFunc
	logger   *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		ch:     make(chan MatchCompleted, 64),
		logger: logger,
	}
}

// Subscribe регистрирует обработчик. Вызывается при сборке приложения,
// до Run; конкурентная регистрация не поддерживается.
func (d *Dispatcher) Subscribe(h HandlerFunc) {
	d.handlers = append(d.handlers, h)
}

// Run крутит цикл доставки до закрытия канала. Запускается горутиной
// из main.
func (d *Dispatcher) Run() {
	for event := range d.ch {
		for _, h := range d.handlers {
			d.dispatch(h, event)
		}
	}
}

func (d *Dispatcher) dispatch(h HandlerFunc, event MatchCompleted) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("match completed handler panicked",
				slog.Int("event_id", event.EventID),
				slog.Int("match_id", event.MatchID),
				slog.Any("panic", p),
			)
		}
	}()
	if err := h(context.Background(), event); err != nil {
		d.logger.Error("match completed handler failed",
			slog.Int("event_id", event.EventID),
			slog.Int("match_id", event.MatchID),
			slog.Any("error", err),
		)
	}
}

// PublishMatchCompleted ставит событие в очередь доставки. При полном
// буфере событие отбрасывается с логом: свежесть компенсации не критична
// для безопасности, а завершение матча блокироваться не должно.
func (d *Dispatcher) PublishMatchCompleted(event MatchCompleted) {
	select {
	case d.ch <- event:
	default:
		d.logger.Warn("event queue full, dropping match completed event",
			slog.Int("event_id", event.EventID),
			slog.Int("match_id", event.MatchID),
		)
	}
}

// Close останавливает цикл доставки после осушения очереди.
func (d *Dispatcher) Close() {
	close(d.ch)
}
