package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/util"
	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	orderreaderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order-reader/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/matching"
)

// OrderService admits, matches and cancels orders.
type OrderService interface {
	Submit(ctx context.Context, req orderv1.PlaceOrderRequest) (*matching.SubmitResult, error)
	Cancel(ctx context.Context, orderID string) (*orderv1.Order, error)
}

// LedgerService records deposits and withdrawals.
type LedgerService interface {
	Adjust(ctx context.Context, req ledgerv1.AdjustRequest) (*ledgerv1.BalanceAdjustment, error)
}

// Stats counts the commands the engine handled.
type Stats struct {
	Processed int64
	Rejected  int64
	Failed    int64
	Trades    int64
}

// Engine reads settlement commands and routes them to the usecases. Every
// message is committed once handled, rejected or failed: replaying a
// command that already admitted an order would admit it twice.
type Engine struct {
	orderReader orderreaderv1.OrderReader
	orders      OrderService
	ledger      LedgerService
	logger      logger.Interface
	options     *Options

	mu     sync.RWMutex
	offset int64
	stats  Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a new engine with default options.
func NewEngine(
	orderReader orderreaderv1.OrderReader,
	orders OrderService,
	ledger LedgerService,
	logger logger.Interface,
) *Engine {
	return NewEngineWithOptions(orderReader, orders, ledger, logger, DefaultEngineOptions())
}

// NewEngineWithOptions creates a new engine with custom options.
func NewEngineWithOptions(
	orderReader orderreaderv1.OrderReader,
	orders OrderService,
	ledger LedgerService,
	logger logger.Interface,
	options *Options,
) *Engine {
	if options == nil {
		options = DefaultEngineOptions()
	}
	return &Engine{
		orderReader: orderReader,
		orders:      orders,
		ledger:      ledger,
		logger:      logger,
		options:     options,
		offset:      -1,
	}
}

// Start launches the read loop.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go e.runCommandProcessor()

	e.logger.Info("Settlement engine started")
	return nil
}

// Stop cancels the read loop and waits for the command in flight.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Settlement engine stopped gracefully")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Engine stop timeout exceeded")
		return ctx.Err()
	}
}

func (e *Engine) runCommandProcessor() {
	defer e.wg.Done()
	defer func() {
		if err := e.orderReader.Close(); err != nil {
			e.logger.Error(err, logger.Field{Key: "action", Value: "close_order_reader"})
		}
	}()

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Command processor shutting down")
			return
		default:
		}

		msg, cmd, err := e.orderReader.ReadMessage(e.ctx)
		if err != nil {
			if e.ctx.Err() != nil {
				continue
			}
			if !errors.HasCode(err, errors.EventDecodeError) {
				e.logger.ErrorContext(e.ctx, err, logger.Field{Key: "action", Value: "read_command"})
				e.sleep(e.options.ReadBackoff)
				continue
			}
			e.record(msg.Offset, OutcomeRejected, 0)
		}

		// the command in flight finishes even when Stop was called
		ctx, cancel := context.WithTimeout(util.Detach(e.ctx), e.options.CommandTimeout)
		if err == nil {
			outcome, trades := e.Process(ctx, cmd)
			e.record(msg.Offset, outcome, trades)
		}
		if err := e.orderReader.CommitMessages(ctx, msg); err != nil {
			e.logger.ErrorContext(ctx, err, logger.Field{Key: "action", Value: "commit_command"})
		}
		cancel()
	}
}

func (e *Engine) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-e.ctx.Done():
	case <-t.C:
	}
}

// Outcome is how the engine disposed of one command.
type Outcome int

const (
	// OutcomeProcessed means the command took effect.
	OutcomeProcessed Outcome = iota
	// OutcomeRejected means the command was invalid and changed nothing.
	OutcomeRejected
	// OutcomeFailed means the command hit an infrastructure or invariant failure.
	OutcomeFailed
)

// Process handles one command and reports how it ended and how many trades
// it produced.
func (e *Engine) Process(ctx context.Context, cmd orderreaderv1.Command) (Outcome, int) {
	ctx = commandContext(ctx, cmd)
	e.logger.DebugContext(ctx, "Processing command",
		logger.Field{Key: "type", Value: cmd.Type},
		logger.Field{Key: "requestID", Value: cmd.RequestID},
		logger.Field{Key: "offset", Value: cmd.Offset},
	)

	var (
		trades int
		err    error
	)
	switch {
	case cmd.Type == orderreaderv1.CommandPlace && cmd.Order != nil:
		var result *matching.SubmitResult
		result, err = e.orders.Submit(ctx, *cmd.Order)
		if result != nil {
			trades = len(result.Trades)
		}
	case cmd.Type == orderreaderv1.CommandCancel && cmd.OrderID != "":
		_, err = e.orders.Cancel(ctx, cmd.OrderID)
	case cmd.Type == orderreaderv1.CommandAdjust && cmd.Adjustment != nil:
		_, err = e.ledger.Adjust(ctx, *cmd.Adjustment)
	default:
		e.logger.WarnContext(ctx, "Dropping malformed command",
			logger.Field{Key: "type", Value: cmd.Type},
			logger.Field{Key: "requestID", Value: cmd.RequestID},
		)
		return OutcomeRejected, 0
	}

	switch {
	case err == nil:
		return OutcomeProcessed, trades
	case rejected(err):
		e.logger.InfoContext(ctx, "Command rejected",
			logger.Field{Key: "type", Value: cmd.Type},
			logger.Field{Key: "requestID", Value: cmd.RequestID},
			logger.Field{Key: "reason", Value: err.Error()},
		)
		return OutcomeRejected, trades
	default:
		e.logger.ErrorContext(ctx, err,
			logger.Field{Key: "type", Value: cmd.Type},
			logger.Field{Key: "requestID", Value: cmd.RequestID},
			logger.Field{Key: "category", Value: category(err)},
		)
		return OutcomeFailed, trades
	}
}

// commandContext tags ctx so that every log line of the command carries
// its request id, offset and acting user.
func commandContext(ctx context.Context, cmd orderreaderv1.Command) context.Context {
	ctx = util.WithRequestID(ctx, cmd.RequestID)
	ctx = util.WithEventID(ctx, strconv.FormatInt(cmd.Offset, 10))
	switch {
	case cmd.Order != nil:
		ctx = util.WithActorID(ctx, cmd.Order.UserID)
	case cmd.Adjustment != nil:
		ctx = util.WithActorID(ctx, cmd.Adjustment.UserID)
	}
	return ctx
}

func rejected(err error) bool {
	return errors.IsValidation(err) ||
		errors.HasCode(err, errors.OrderNotFound) ||
		errors.HasCode(err, errors.UnknownAdjustmentSource)
}

func category(err error) errors.Category {
	for _, code := range []errors.ErrorCode{errors.PersistenceFailure, errors.InvariantViolation} {
		if errors.HasCode(err, code) {
			return errors.CategoryOf(code)
		}
	}
	return errors.CategoryUnknown
}

func (e *Engine) record(offset int64, o Outcome, trades int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offset = offset
	e.stats.Trades += int64(trades)
	switch o {
	case OutcomeProcessed:
		e.stats.Processed++
	case OutcomeRejected:
		e.stats.Rejected++
	case OutcomeFailed:
		e.stats.Failed++
	}
}

// GetOffset returns the offset of the last handled command.
func (e *Engine) GetOffset() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.offset
}

// GetStats returns the command counters.
func (e *Engine) GetStats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}
