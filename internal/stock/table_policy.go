package stock

import (
	"context"

	"comexiger-backend/internal/models"

	"gorm.io/gorm"
)

// DefaultTable is used when nothing else identifies the mesa of a manual lot.
const DefaultTable = 1

// TableRequest carries what is known about the mesa of a manually created lot.
type TableRequest struct {
	Explicit     int
	Variety      string
	Size         string
	OperatorMesa *int
}

// TableRule yields a mesa when it can decide, ok=false passes to the next rule.
type TableRule func(ctx context.Context, db *gorm.DB, req TableRequest) (mesa int, ok bool, err error)

// TablePolicy is evaluated in order; the first rule that decides wins.
var TablePolicy = []TableRule{
	ExplicitTable,
	LastLotTable,
	OperatorTable,
	FallbackTable,
}

// ResolveTable applies TablePolicy.
func ResolveTable(ctx context.Context, db *gorm.DB, req TableRequest) (int, error) {
	for _, rule := range TablePolicy {
		mesa, ok, err := rule(ctx, db, req)
		if err != nil {
			return 0, err
		}
		if ok {
			return mesa, nil
		}
	}
	return DefaultTable, nil
}

func ExplicitTable(_ context.Context, _ *gorm.DB, req TableRequest) (int, bool, error) {
	return req.Explicit, req.Explicit > 0, nil
}

// LastLotTable reuses the mesa of the newest lot with the same variety and size.
func LastLotTable(ctx context.Context, db *gorm.DB, req TableRequest) (int, bool, error) {
	var prev models.StockLot
	res := db.WithContext(ctx).
		Where("variety = ? AND size = ?", req.Variety, req.Size).
		Order("opened_at DESC, id DESC").
		Limit(1).
		Find(&prev)
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 || prev.TableNumber <= 0 {
		return 0, false, nil
	}
	return prev.TableNumber, true, nil
}

func OperatorTable(_ context.Context, _ *gorm.DB, req TableRequest) (int, bool, error) {
	if req.OperatorMesa != nil && *req.OperatorMesa > 0 {
		return *req.OperatorMesa, true, nil
	}
	return 0, false, nil
}

func FallbackTable(context.Context, *gorm.DB, TableRequest) (int, bool, error) {
	return DefaultTable, true, nil
}
