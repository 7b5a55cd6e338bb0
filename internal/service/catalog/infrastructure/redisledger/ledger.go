// Package redisledger keeps inventory counters in Redis hashes. Every
// operation is one Lua script on the product's key, so it is atomic per
// product without any client-side lock.
package redisledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/pkg/logger"
	"globalbooks/internal/pkg/metrics"
	"globalbooks/internal/pkg/redis"
	"globalbooks/internal/service/catalog/domain"
)

const (
	resultNotFound     = 0
	resultOK           = 1
	resultClamped      = 2
	resultInsufficient = -1
)

var scripts = map[domain.Operation]string{
	domain.OperationReserve: reserveScript,
	domain.OperationRelease: releaseScript,
	domain.OperationDeduct:  deductScript,
	domain.OperationRestore: restoreScript,
}

const seedScriptName = "inventory_seed"

type Ledger struct {
	client  *redis.Client
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New loads the ledger scripts into client.
func New(client *redis.Client, log logger.Logger, m *metrics.Metrics) (*Ledger, error) {
	for op, body := range scripts {
		if err := client.LoadScriptFromContent(scriptName(op), body); err != nil {
			return nil, errors.Wrapf(err, "load %s script", op)
		}
	}
	if err := client.LoadScriptFromContent(seedScriptName, seedScript); err != nil {
		return nil, errors.Wrap(err, "load seed script")
	}
	return &Ledger{client: client, log: log, metrics: m, now: time.Now}, nil
}

func scriptName(op domain.Operation) string {
	return "inventory_" + string(op)
}

func key(productID string) string {
	return fmt.Sprintf("inventory:{%s}", productID)
}

func (l *Ledger) Apply(ctx context.Context, op domain.Operation, productID string, qty int) (st domain.InventoryStatus, err error) {
	defer func() { l.metrics.InventoryOp(string(op), err) }()

	if productID == "" {
		return domain.InventoryStatus{}, apperr.InvalidInput("product id is required")
	}
	if qty <= 0 {
		return domain.InventoryStatus{}, apperr.InvalidInput("quantity must be positive, got %d", qty)
	}
	if _, ok := scripts[op]; !ok {
		return domain.InventoryStatus{}, apperr.InvalidInput("unknown inventory operation %q", op)
	}

	now := l.now().UTC()
	raw, err := l.client.RunScript(ctx, scriptName(op), []string{key(productID)}, qty, now.UnixMilli())
	if err != nil {
		return domain.InventoryStatus{}, apperr.Wrap(errors.Wrap(err, "run inventory script"),
			apperr.KindDependencyFailure, apperr.CodeUpdateFailed, "%s product %s", op, productID)
	}
	code, status, err := parseResult(productID, raw)
	if err != nil {
		return domain.InventoryStatus{}, apperr.Wrap(err, apperr.KindDependencyFailure, apperr.CodeUpdateFailed,
			"%s product %s", op, productID)
	}

	switch code {
	case resultOK:
		status.UpdatedAt = now
		return status, nil
	case resultClamped:
		l.metrics.ReleaseClamped()
		l.log.Warn().Str("product_id", productID).Int("requested", qty).
			Msg("release exceeded reserved quantity, reservation clamped to zero")
		status.UpdatedAt = now
		return status, nil
	case resultNotFound:
		return domain.InventoryStatus{}, apperr.ProductNotFound(productID)
	case resultInsufficient:
		if op == domain.OperationDeduct {
			return domain.InventoryStatus{}, apperr.New(apperr.KindInsufficientStock, apperr.CodeInsufficientStock,
				"cannot deduct %d units of product %s: only %d reserved", qty, productID, status.ReservedQuantity)
		}
		return domain.InventoryStatus{}, apperr.InsufficientStock(productID, qty, status.Free())
	}
	return domain.InventoryStatus{}, apperr.New(apperr.KindDependencyFailure, apperr.CodeUpdateFailed,
		"unknown result code %d from inventory script", code)
}

func (l *Ledger) Status(ctx context.Context, productID string) (domain.InventoryStatus, error) {
	if productID == "" {
		return domain.InventoryStatus{}, apperr.InvalidInput("product id is required")
	}
	fields, err := l.client.GetClient().HGetAll(ctx, key(productID)).Result()
	if err != nil {
		return domain.InventoryStatus{}, apperr.Database(errors.Wrap(err, "hgetall"), "inventory of %s", productID)
	}
	if len(fields) == 0 {
		return domain.InventoryStatus{}, apperr.ProductNotFound(productID)
	}
	st := domain.InventoryStatus{ProductID: productID}
	st.AvailableQuantity, _ = strconv.Atoi(fields["available"])
	st.ReservedQuantity, _ = strconv.Atoi(fields["reserved"])
	if ms, err := strconv.ParseInt(fields["updated"], 10, 64); err == nil {
		st.UpdatedAt = time.UnixMilli(ms).UTC()
	}
	return st, nil
}

// Seed creates the counters of a product unless they already exist, so a
// restart does not reset live stock. The check and the write are one script.
func (l *Ledger) Seed(ctx context.Context, st domain.InventoryStatus) error {
	raw, err := l.client.RunScript(ctx, seedScriptName, []string{key(st.ProductID)},
		st.AvailableQuantity, st.ReservedQuantity, l.now().UTC().UnixMilli())
	if err != nil {
		return apperr.Database(errors.Wrap(err, "run seed script"), "seed inventory of %s", st.ProductID)
	}
	if created, _ := raw.(int64); created == 0 {
		l.log.Debug().Str("product_id", st.ProductID).Msg("inventory counters already present, seed skipped")
	}
	return nil
}

// parseResult decodes the {code, available, reserved} reply of a script.
func parseResult(productID string, raw interface{}) (int64, domain.InventoryStatus, error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		return 0, domain.InventoryStatus{}, errors.Errorf("unexpected script reply %T %v", raw, raw)
	}
	nums := make([]int64, 3)
	for i, v := range values {
		n, ok := v.(int64)
		if !ok {
			return 0, domain.InventoryStatus{}, errors.Errorf("unexpected script reply element %T", v)
		}
		nums[i] = n
	}
	return nums[0], domain.InventoryStatus{
		ProductID:         productID,
		AvailableQuantity: int(nums[1]),
		ReservedQuantity:  int(nums[2]),
	}, nil
}
